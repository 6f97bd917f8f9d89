package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore reads catalogs from a table with user_id, asset_id and name
// columns.
type PostgresStore struct {
	db    *sql.DB
	query string
}

// NewPostgresStore opens a connection pool. The table name is quoted as an
// identifier.
func NewPostgresStore(dsn, table string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is required")
	}
	if table == "" {
		return nil, errors.New("postgres table is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	return &PostgresStore{db: db, query: snapshotQuery(table)}, nil
}

func snapshotQuery(table string) string {
	return fmt.Sprintf(
		"SELECT asset_id::text, name FROM %s WHERE user_id = $1 ORDER BY asset_id",
		pq.QuoteIdentifier(table),
	)
}

// Snapshot returns the user's assets ordered by ID.
func (s *PostgresStore) Snapshot(ctx context.Context, userID string) ([]Asset, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	rows, err := s.db.QueryContext(ctx, s.query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Asset{}
	for rows.Next() {
		var a Asset
		var id string
		if err := rows.Scan(&id, &a.Name); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		a.ID = AssetID(id)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return out, nil
}

// Close closes the pool.
func (s *PostgresStore) Close(context.Context) error {
	return s.db.Close()
}
