// Package pgstore is a Postgres-backed wish.Repository.
//
// The schema is managed by goose migrations embedded in the binary. The
// check-then-write of CreateIfAbsent runs in one transaction; a concurrent
// writer that slips between the check and the insert is stopped by the
// primary key or the one-wish-per-guest unique index, and that violation is
// reported as wish.ErrAlreadyExists.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/meimodev/activid-web-sub001/internal/dbx"
	"github.com/meimodev/activid-web-sub001/internal/wish"
)

//go:embed migrations/*.sql
var migrations embed.FS

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var _ wish.Repository = (*Store)(nil)

// Store reads and writes wishes in Postgres.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle. It does not run migrations.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn through the pgx stdlib driver and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

// Migrate applies all pending migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, "migrations")
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateIfAbsent writes w unless a wish with w.ID exists. created_at is
// assigned by the database.
func (s *Store) CreateIfAbsent(ctx context.Context, w *wish.Wish) error {
	var createdAt time.Time
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM wishes WHERE id = $1`, w.ID).Scan(&exists)
		if err == nil {
			return wish.ErrAlreadyExists
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("db error: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO wishes (id, invitation_id, name, name_key, attendance, message)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`,
			w.ID,
			w.InvitationID,
			w.Name,
			sql.NullString{String: w.NameKey, Valid: w.NameKey != ""},
			string(w.Attendance),
			w.Message,
		).Scan(&createdAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return wish.ErrAlreadyExists
			}
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, wish.ErrAlreadyExists) {
			return wish.ErrAlreadyExists
		}
		return err
	}

	w.CreatedAt = createdAt.UTC()
	return nil
}

// Get returns the wish with the given ID or wish.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*wish.Wish, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, invitation_id, name, name_key, attendance, message, created_at
		FROM wishes
		WHERE id = $1
	`, id)

	w, err := scanWish(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wish.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return w, nil
}

// ListByInvitation returns the invitation's wishes, most recent first.
func (s *Store) ListByInvitation(ctx context.Context, invitationID string) ([]wish.Wish, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invitation_id, name, name_key, attendance, message, created_at
		FROM wishes
		WHERE invitation_id = $1
		ORDER BY created_at DESC, id COLLATE "C" ASC
	`, invitationID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	wishes := make([]wish.Wish, 0)
	for rows.Next() {
		w, err := scanWish(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		wishes = append(wishes, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return wishes, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWish(sc scanner) (*wish.Wish, error) {
	var (
		w          wish.Wish
		nameKey    sql.NullString
		attendance string
	)
	if err := sc.Scan(&w.ID, &w.InvitationID, &w.Name, &nameKey, &attendance, &w.Message, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.NameKey = nameKey.String
	w.Attendance = wish.Attendance(attendance)
	w.CreatedAt = w.CreatedAt.UTC()
	return &w, nil
}
