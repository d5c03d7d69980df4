package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazcod/hearth/pkg/storage"
	"github.com/hazcod/hearth/pkg/storage/storagetest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()

	logger, _ := test.NewNullLogger()
	dir := filepath.Join(t.TempDir(), "baselines")

	store := &Store{}
	require.NoError(t, store.Init(logger, map[string]string{"path": dir}))

	return store, dir
}

func TestFileStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Driver {
		store, _ := newStore(t)
		return store
	})
}

func TestFileStoreUnreadable(t *testing.T) {
	storagetest.RunUnreadable(t, func(t *testing.T) storage.Driver {
		store, _ := newStore(t)
		return store
	}, func(t *testing.T, driver storage.Driver, householdID string) {
		store := driver.(*Store)
		require.NoError(t, os.WriteFile(store.path(householdID), []byte("{garbage"), 0600))
	})
}

func TestInitRequiresPath(t *testing.T) {
	logger, _ := test.NewNullLogger()
	assert.Error(t, (&Store{}).Init(logger, map[string]string{}))
}

func TestCorruptFileIsTreatedAsMissing(t *testing.T) {
	logger, hook := test.NewNullLogger()
	dir := t.TempDir()

	store := &Store{}
	require.NoError(t, store.Init(logger, map[string]string{"path": dir}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "home.json"), []byte("{truncated"), 0600))

	_, err := store.Load(context.Background(), "home")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestCreateLeavesNoTempFiles(t *testing.T) {
	store, dir := newStore(t)

	require.NoError(t, store.Create(context.Background(), storagetest.Baseline("home")))
	assert.ErrorIs(t, store.Create(context.Background(), storagetest.Baseline("home")), storage.ErrExists)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "home.json", entries[0].Name())
}

func TestRejectsUnsafeHouseholdID(t *testing.T) {
	store, _ := newStore(t)

	baseline := storagetest.Baseline("../escape")
	assert.ErrorIs(t, store.Create(context.Background(), baseline), storage.ErrInvalidHouseholdID)

	_, err := store.Load(context.Background(), "../escape")
	assert.ErrorIs(t, err, storage.ErrInvalidHouseholdID)
}
