// Package storagetest holds the behaviour every storage.Driver must share.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/hazcod/hearth/pkg/models"
	"github.com/hazcod/hearth/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an initialised, empty driver. Cleanup is the factory's job.
type Factory func(t *testing.T) storage.Driver

// Baseline returns a fixture with a fresh revision.
func Baseline(householdID string) models.Baseline {
	return models.Baseline{
		HouseholdID: householdID,
		Revision:    uuid.NewString(),
		Sample: models.Sample{
			IP:          "203.0.113.7",
			IPCountry:   "ID",
			OS:          "macOS",
			Browser:     "Safari",
			DeviceClass: models.DeviceClassDesktop,
			Resolution:  "2560x1440",
			TypingSpeed: 240,
			Latitude:    -6.2088,
			Longitude:   106.8456,
		},
		CreatedAt: time.Date(2024, 3, 9, 18, 30, 0, 123456789, time.UTC),
	}
}

// Run exercises the behaviour every driver must share.
func Run(t *testing.T, newDriver Factory) {
	t.Run("missing baseline", func(t *testing.T) {
		driver := newDriver(t)

		_, err := driver.Load(context.Background(), "nobody")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		driver := newDriver(t)
		want := Baseline("home")

		require.NoError(t, driver.Create(context.Background(), want))

		got, err := driver.Load(context.Background(), "home")
		require.NoError(t, err)

		if diff := cmp.Diff(want, *got); diff != "" {
			t.Errorf("baseline mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("create never overwrites", func(t *testing.T) {
		driver := newDriver(t)
		first := Baseline("home")
		second := Baseline("home")
		second.OS = "Windows"

		require.NoError(t, driver.Create(context.Background(), first))
		assert.ErrorIs(t, driver.Create(context.Background(), second), storage.ErrExists)

		got, err := driver.Load(context.Background(), "home")
		require.NoError(t, err)
		assert.Equal(t, first.Revision, got.Revision)
		assert.Equal(t, "macOS", got.OS)
	})

	t.Run("reset is idempotent", func(t *testing.T) {
		driver := newDriver(t)

		require.NoError(t, driver.Reset(context.Background(), "home"))
		require.NoError(t, driver.Create(context.Background(), Baseline("home")))
		require.NoError(t, driver.Reset(context.Background(), "home"))
		require.NoError(t, driver.Reset(context.Background(), "home"))

		_, err := driver.Load(context.Background(), "home")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		assert.NoError(t, driver.Create(context.Background(), Baseline("home")))
	})

	t.Run("households are independent", func(t *testing.T) {
		driver := newDriver(t)

		require.NoError(t, driver.Create(context.Background(), Baseline("north")))
		require.NoError(t, driver.Create(context.Background(), Baseline("south")))
		require.NoError(t, driver.Reset(context.Background(), "north"))

		_, err := driver.Load(context.Background(), "south")
		assert.NoError(t, err)
	})

	t.Run("concurrent create has one winner", func(t *testing.T) {
		driver := newDriver(t)

		const contenders = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			won     int
			refused int
		)

		for i := 0; i < contenders; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := driver.Create(context.Background(), Baseline("race"))

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					won++
				case assert.ErrorIs(t, err, storage.ErrExists):
					refused++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, won)
		assert.Equal(t, contenders-1, refused)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newDriver(t).Ping(context.Background()))
	})
}

// Corrupter plants a record for householdID that the driver cannot decode.
type Corrupter func(t *testing.T, driver storage.Driver, householdID string)

// RunUnreadable checks that an undecodable record reads as missing, still holds the
// household slot against Create, and is cleared by Reset.
func RunUnreadable(t *testing.T, newDriver Factory, corrupt Corrupter) {
	t.Run("unreadable record", func(t *testing.T) {
		ctx := context.Background()
		driver := newDriver(t)
		corrupt(t, driver, "home")

		_, err := driver.Load(ctx, "home")
		require.ErrorIs(t, err, storage.ErrNotFound)

		assert.ErrorIs(t, driver.Create(ctx, Baseline("home")), storage.ErrExists)

		require.NoError(t, driver.Reset(ctx, "home"))

		want := Baseline("home")
		require.NoError(t, driver.Create(ctx, want))

		got, err := driver.Load(ctx, "home")
		require.NoError(t, err)
		assert.Equal(t, want.Revision, got.Revision)
	})
}
