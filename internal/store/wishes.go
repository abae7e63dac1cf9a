package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/meimodev/activid-web-sub001/internal/dbx"
	"github.com/meimodev/activid-web-sub001/internal/wish"
)

var _ wish.Repository = (*Store)(nil)

// CreateIfAbsent writes w unless a wish with w.ID is already stored.
//
// The existence check and the insert run in one transaction. On success
// w.CreatedAt is set to the write timestamp. Returns wish.ErrAlreadyExists
// if the ID (or the guest's unique index entry) is taken.
func (s *Store) CreateIfAbsent(ctx context.Context, w *wish.Wish) error {
	var createdAt time.Time
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM wishes WHERE id = ?`, w.ID).Scan(&exists)
		if err == nil {
			return wish.ErrAlreadyExists
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check wish: %w", err)
		}

		createdAt = s.clock.Now()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wishes
			(id, invitation_id, name, name_key, attendance, message, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			w.ID,
			w.InvitationID,
			w.Name,
			nullString(w.NameKey),
			string(w.Attendance),
			w.Message,
			createdAt.UnixMicro(),
		)
		if err != nil {
			if isConstraintViolation(err) {
				return wish.ErrAlreadyExists
			}
			return fmt.Errorf("insert wish: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, wish.ErrAlreadyExists) {
			return wish.ErrAlreadyExists
		}
		return fmt.Errorf("create wish: %w", err)
	}

	w.CreatedAt = createdAt
	return nil
}

// Get returns the wish with the given ID or wish.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*wish.Wish, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, invitation_id, name, name_key, attendance, message, created_at
		FROM wishes
		WHERE id = ?
	`, id)

	w, err := scanWish(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wish.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wish: %w", err)
	}
	return w, nil
}

// ListByInvitation returns the invitation's wishes, most recent first.
// Ties are broken by id with binary collation.
func (s *Store) ListByInvitation(ctx context.Context, invitationID string) ([]wish.Wish, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invitation_id, name, name_key, attendance, message, created_at
		FROM wishes
		WHERE invitation_id = ?
		ORDER BY created_at DESC, id ASC COLLATE BINARY
	`, invitationID)
	if err != nil {
		return nil, fmt.Errorf("list wishes: %w", err)
	}
	defer rows.Close()

	wishes := make([]wish.Wish, 0)
	for rows.Next() {
		w, err := scanWish(rows)
		if err != nil {
			return nil, fmt.Errorf("list wishes: %w", err)
		}
		wishes = append(wishes, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list wishes: %w", err)
	}
	return wishes, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWish(sc scanner) (*wish.Wish, error) {
	var (
		w          wish.Wish
		nameKey    sql.NullString
		attendance string
		createdAt  int64
	)
	if err := sc.Scan(&w.ID, &w.InvitationID, &w.Name, &nameKey, &attendance, &w.Message, &createdAt); err != nil {
		return nil, err
	}
	w.NameKey = nameKey.String
	w.Attendance = wish.Attendance(attendance)
	w.CreatedAt = time.UnixMicro(createdAt).UTC()
	return &w, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isConstraintViolation reports a primary key or unique index conflict, which
// happens when another process wrote the same guest between our check and
// insert.
func isConstraintViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		se.ExtendedCode == sqlite3.ErrConstraintUnique
}
