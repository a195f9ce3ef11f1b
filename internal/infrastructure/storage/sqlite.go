package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS archive_days (
	date       TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS archive_snapshots (
	label      TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	created_at TEXT NOT NULL
);`

// SQLPersistence stores one row per archived day in SQLite.
type SQLPersistence struct {
	db *sql.DB
}

var _ ports.ArchivePersistence = (*SQLPersistence)(nil)

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// NewSQLPersistence wires a sql.DB prepared by OpenSQLite.
func NewSQLPersistence(db *sql.DB) *SQLPersistence {
	return &SQLPersistence{db: db}
}

// Load reads every day row.
func (r *SQLPersistence) Load(ctx context.Context) (map[string]*domain.ArchiveRecord, error) {
	rows, err := sq.Select("date", "payload").From("archive_days").RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	records := map[string]*domain.ArchiveRecord{}
	for rows.Next() {
		var date, payload string
		if err := rows.Scan(&date, &payload); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		var rec domain.ArchiveRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode day %s: %w", date, err)
		}
		records[date] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return records, nil
}

// Save replaces the stored days with records inside one transaction.
func (r *SQLPersistence) Save(ctx context.Context, records map[string]*domain.ArchiveRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	dates := make([]string, 0, len(records))
	for date := range records {
		dates = append(dates, date)
	}
	if _, err := sq.Delete("archive_days").Where(sq.NotEq{"date": dates}).RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("delete stale days: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for date, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode day %s: %w", date, err)
		}
		_, err = sq.Insert("archive_days").
			Columns("date", "payload", "updated_at").
			Values(date, string(payload), now).
			Suffix("ON CONFLICT(date) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at").
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("upsert day %s: %w", date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive: %w", err)
	}
	return nil
}

// Snapshot stores the whole archive as one labelled row.
func (r *SQLPersistence) Snapshot(ctx context.Context, records map[string]*domain.ArchiveRecord, label string) (string, error) {
	raw, err := encodeArchive(records)
	if err != nil {
		return "", err
	}
	label = snapshotLabel(label)
	_, err = sq.Insert("archive_snapshots").
		Columns("label", "payload", "created_at").
		Values(label, string(raw), time.Now().UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT(label) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at").
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	return "archive_snapshots/" + label, nil
}
