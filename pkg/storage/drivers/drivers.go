package drivers

import (
	"errors"

	"github.com/hazcod/hearth/pkg/storage"
	"github.com/hazcod/hearth/pkg/storage/file"
	"github.com/hazcod/hearth/pkg/storage/memory"
	"github.com/hazcod/hearth/pkg/storage/redis"
	"github.com/hazcod/hearth/pkg/storage/sqlstore"
)

// GetDriver returns an uninitialised driver by its config name.
func GetDriver(name string) (storage.Driver, error) {
	switch name {
	case "memory":
		return &memory.InMemoryStore{}, nil
	case "file":
		return &file.Store{}, nil
	case "redis":
		return &redis.Store{}, nil
	case "postgres":
		return sqlstore.NewPostgres(), nil
	case "sqlite":
		return sqlstore.NewSQLite(), nil
	}

	return nil, errors.New("unknown storage driver: " + name)
}
