// Package sqlstore keeps baselines in a relational table, on postgres or sqlite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazcod/hearth/pkg/models"
	"github.com/hazcod/hearth/pkg/storage"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS household_baselines (
	household_id TEXT PRIMARY KEY,
	revision TEXT NOT NULL,
	ip TEXT NOT NULL DEFAULT '',
	ip_country TEXT NOT NULL DEFAULT '',
	os TEXT NOT NULL DEFAULT '',
	browser TEXT NOT NULL DEFAULT '',
	device_class TEXT NOT NULL DEFAULT '',
	resolution TEXT NOT NULL DEFAULT '',
	typing_speed INTEGER NOT NULL DEFAULT 0,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	created_at BIGINT NOT NULL
)`

const selectBaseline = `SELECT household_id, revision, ip, ip_country, os, browser, device_class,
	resolution, typing_speed, latitude, longitude, created_at
	FROM household_baselines WHERE household_id = $1`

const insertBaseline = `INSERT INTO household_baselines (household_id, revision, ip, ip_country,
	os, browser, device_class, resolution, typing_speed, latitude, longitude, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (household_id) DO NOTHING`

const deleteBaseline = `DELETE FROM household_baselines WHERE household_id = $1`

type Store struct {
	logger  *logrus.Logger
	dialect string
	db      *sql.DB
}

// NewPostgres returns a store backed by lib/pq.
func NewPostgres() *Store {
	return &Store{dialect: DialectPostgres}
}

// NewSQLite returns a store backed by the pure Go sqlite driver.
func NewSQLite() *Store {
	return &Store{dialect: DialectSQLite}
}

func (s *Store) Init(logger *logrus.Logger, settings map[string]string) error {
	dsn, ok := settings["dsn"]
	if !ok || dsn == "" {
		return fmt.Errorf("dsn required for %s store", s.dialect)
	}

	db, err := sql.Open(s.dialect, dsn)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", s.dialect, err)
	}

	if s.dialect == DialectSQLite {
		// single writer
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("could not reach %s: %w", s.dialect, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("could not migrate schema: %w", err)
	}

	s.logger = logger
	s.db = db

	logger.WithField("dialect", s.dialect).Debug("sql store ready")

	return nil
}

// rebind turns $n placeholders into sqlite's ?n form.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectSQLite {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}

func (s *Store) Load(ctx context.Context, householdID string) (*models.Baseline, error) {
	var (
		b         models.Baseline
		createdAt int64
	)

	err := s.db.QueryRowContext(ctx, s.rebind(selectBaseline), householdID).Scan(
		&b.HouseholdID, &b.Revision, &b.IP, &b.IPCountry, &b.OS, &b.Browser, &b.DeviceClass,
		&b.Resolution, &b.TypingSpeed, &b.Latitude, &b.Longitude, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not query baseline: %w", err)
	}

	if b.Revision == "" {
		s.logger.WithField("household_id", householdID).Warn("ignoring baseline row without revision")
		return nil, storage.ErrNotFound
	}

	b.CreatedAt = time.Unix(0, createdAt).UTC()

	return &b, nil
}

func (s *Store) Create(ctx context.Context, b models.Baseline) error {
	res, err := s.db.ExecContext(ctx, s.rebind(insertBaseline),
		b.HouseholdID, b.Revision, b.IP, b.IPCountry, b.OS, b.Browser, b.DeviceClass,
		b.Resolution, b.TypingSpeed, b.Latitude, b.Longitude, b.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("could not insert baseline: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not confirm insert: %w", err)
	}
	if affected == 0 {
		return storage.ErrExists
	}

	return nil
}

func (s *Store) Reset(ctx context.Context, householdID string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(deleteBaseline), householdID); err != nil {
		return fmt.Errorf("could not delete baseline: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
