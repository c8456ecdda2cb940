// Package queuedb persists the offline sales queue in SQLite so queued
// sales survive a restart.
package queuedb

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/domain"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	gosqlite "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

//go:embed migrations/*.sql
var migrations embed.FS

var tracer = otel.Tracer("queuedb")

// queuedAtLayout is fixed width so queued_at text sorts in time order.
const queuedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a QueueStore over one SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the queue database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate queue db: %w", err)
	}
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	defer src.Close()

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	// m.Close would close db through the driver, so only the source is closed.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores a new entry.
func (s *Store) Append(ctx context.Context, entry *domain.OfflineQueueEntry) error {
	ctx, span := tracer.Start(ctx, "QueueDB.Append")
	defer span.End()
	span.SetAttributes(attribute.String("entry.id", entry.EntryID))

	record, err := json.Marshal(entry.Record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO offline_queue (entry_id, record, queued_at, synced, attempts, last_error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.EntryID, string(record), entry.QueuedAt.UTC().Format(queuedAtLayout),
		entry.Synced, entry.Attempts, entry.LastError,
	)
	if err != nil {
		var sqliteErr gosqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == gosqlite.ErrConstraint {
			return &domain.ErrDuplicate{Key: entry.EntryID}
		}
		return err
	}
	return nil
}

// List returns every entry, oldest first.
func (s *Store) List(ctx context.Context) ([]domain.OfflineQueueEntry, error) {
	ctx, span := tracer.Start(ctx, "QueueDB.List")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, record, queued_at, synced, attempts, last_error
		 FROM offline_queue ORDER BY queued_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.OfflineQueueEntry{}
	for rows.Next() {
		var (
			e        domain.OfflineQueueEntry
			record   string
			queuedAt string
		)
		if err := rows.Scan(&e.EntryID, &record, &queuedAt, &e.Synced, &e.Attempts, &e.LastError); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(record), &e.Record); err != nil {
			return nil, fmt.Errorf("decode entry %s: %w", e.EntryID, err)
		}
		if t, perr := time.Parse(queuedAtLayout, queuedAt); perr == nil {
			e.QueuedAt = t
		} else {
			e.QueuedAt, _ = time.Parse(time.RFC3339Nano, queuedAt)
		}
		entries = append(entries, e)
	}
	span.SetAttributes(attribute.Int("count", len(entries)))
	return entries, rows.Err()
}

// RecordFailure bumps the attempt counter of an entry and keeps the reason.
func (s *Store) RecordFailure(ctx context.Context, entryID, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE offline_queue SET attempts = attempts + 1, last_error = ? WHERE entry_id = ?`,
		reason, entryID,
	)
	return err
}

// Remove deletes the given entries in one transaction.
func (s *Store) Remove(ctx context.Context, entryIDs []string) error {
	if len(entryIDs) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "QueueDB.Remove")
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(entryIDs)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM offline_queue WHERE entry_id = ?`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, id := range entryIDs {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
