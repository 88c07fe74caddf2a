package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	_ "modernc.org/sqlite"

	"parking-ledger/internal/parking"
)

var sqliteSystem = attribute.String("db.system", "sqlite")

// SQLiteStore keeps the state as one JSON row in a local key-value table.
type SQLiteStore struct {
	db  *sql.DB
	key string
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path, key string) (*SQLiteStore, error) {
	db, err := otelsql.Open("sqlite", path, otelsql.WithAttributes(sqliteSystem))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	if err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(sqliteSystem)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register sqlite metrics: %w", err)
	}

	// one writer; SQLite serializes writes anyway
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	s := &SQLiteStore{db: db, key: key}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	const createStateTable = `
	CREATE TABLE IF NOT EXISTS parking_state (
		state_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := s.db.ExecContext(ctx, createStateTable); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*parking.SystemState, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM parking_state WHERE state_key = ?`, s.key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state %q: %w", s.key, err)
	}
	return parking.DecodeState([]byte(payload))
}

func (s *SQLiteStore) Save(ctx context.Context, state *parking.SystemState) error {
	data, err := parking.EncodeState(state)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO parking_state (state_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(state_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		s.key, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save state %q: %w", s.key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
