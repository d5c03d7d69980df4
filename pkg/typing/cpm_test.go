package typing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPM(t *testing.T) {
	phrase := "abcdefghij" // 10 characters

	t.Run("no buffer", func(t *testing.T) {
		cpm, err := CPM(phrase, 6*time.Second, 0)
		require.NoError(t, err)
		assert.Equal(t, 100, cpm)
	})

	t.Run("reading buffer is subtracted", func(t *testing.T) {
		cpm, err := CPM(phrase, 8*time.Second, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 100, cpm)
	})

	t.Run("effective duration floors at one second", func(t *testing.T) {
		cpm, err := CPM(phrase, 1500*time.Millisecond, 3*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 600, cpm)
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		cpm, err := CPM("rumah ké", 60*time.Second, 0)
		require.NoError(t, err)
		assert.Equal(t, 8, cpm)
	})

	t.Run("non positive duration is rejected", func(t *testing.T) {
		_, err := CPM(phrase, 0, 0)
		assert.ErrorIs(t, err, ErrInvalidDuration)

		_, err = CPM(phrase, -time.Second, 0)
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches(DefaultPhrase, "  My Home is where my SCREEN is "))
	assert.False(t, Matches(DefaultPhrase, "my home is where my heart is"))
}

func TestDiff(t *testing.T) {
	assert.Equal(t, 30, Diff(200, 170))
	assert.Equal(t, 30, Diff(170, 200))
	assert.Equal(t, 0, Diff(5, 5))
}
