package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hazcod/hearth/pkg/storage"
	"github.com/hazcod/hearth/pkg/storage/storagetest"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) *Store {
	t.Helper()

	logger, _ := test.NewNullLogger()
	store := NewSQLite()
	require.NoError(t, store.Init(logger, map[string]string{
		"dsn": filepath.Join(t.TempDir(), "hearth.db"),
	}))
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestSQLiteStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Driver {
		return newSQLite(t)
	})
}

// corruptRow inserts a row without a revision, which Load refuses to decode.
func corruptRow(t *testing.T, driver storage.Driver, householdID string) {
	store := driver.(*Store)
	_, err := store.db.ExecContext(context.Background(), store.rebind(
		`INSERT INTO household_baselines (household_id, revision, latitude, longitude, created_at)
		VALUES ($1, '', 0, 0, 0)`), householdID)
	require.NoError(t, err)
}

func TestSQLiteStoreUnreadable(t *testing.T) {
	storagetest.RunUnreadable(t, func(t *testing.T) storage.Driver {
		return newSQLite(t)
	}, corruptRow)
}

func TestSQLiteSchemaIsReentrant(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dsn := filepath.Join(t.TempDir(), "hearth.db")

	first := NewSQLite()
	require.NoError(t, first.Init(logger, map[string]string{"dsn": dsn}))
	require.NoError(t, first.Create(context.Background(), storagetest.Baseline("home")))
	require.NoError(t, first.Close())

	second := NewSQLite()
	require.NoError(t, second.Init(logger, map[string]string{"dsn": dsn}))
	defer second.Close()

	got, err := second.Load(context.Background(), "home")
	require.NoError(t, err)
	assert.Equal(t, "macOS", got.OS)
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = ?1 AND b = ?2", NewSQLite().rebind("a = $1 AND b = $2"))
	assert.Equal(t, "a = $1", NewPostgres().rebind("a = $1"))
}

func TestInitRequiresDSN(t *testing.T) {
	logger, _ := test.NewNullLogger()
	assert.Error(t, NewPostgres().Init(logger, map[string]string{}))
}
