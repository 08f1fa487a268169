package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sortmemo/internal/domain"
	sorterr "sortmemo/internal/errors"
	storepkg "sortmemo/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS sort_preferences (
  user_id TEXT NOT NULL,
  content_type TEXT NOT NULL,
  orderby TEXT NOT NULL,
  sort_order TEXT NOT NULL DEFAULT 'asc',
  updated_at TIMESTAMP NOT NULL,
  PRIMARY KEY (user_id, content_type)
);
`

// Store implements store.Store on a SQLite database.
type Store struct{ db *sql.DB }

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID, contentType string) (domain.SortPreference, bool, error) {
	pref := domain.SortPreference{UserID: userID, ContentType: contentType}
	err := s.db.QueryRowContext(ctx,
		`SELECT orderby, sort_order, updated_at FROM sort_preferences WHERE user_id = ? AND content_type = ?`,
		userID, contentType,
	).Scan(&pref.OrderBy, &pref.Order, &pref.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SortPreference{}, false, nil
		}
		return domain.SortPreference{}, false, sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "get sort preference",
			sorterr.FieldUserID(userID), sorterr.FieldContentType(contentType))
	}
	return pref, true, nil
}

func (s *Store) Set(ctx context.Context, pref domain.SortPreference) error {
	pref = storepkg.Normalize(pref)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sort_preferences(user_id, content_type, orderby, sort_order, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, content_type) DO UPDATE SET
		   orderby = excluded.orderby,
		   sort_order = excluded.sort_order,
		   updated_at = excluded.updated_at`,
		pref.UserID, pref.ContentType, pref.OrderBy, pref.Order, time.Now().UTC(),
	)
	if err != nil {
		return sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "set sort preference",
			sorterr.FieldUserID(pref.UserID), sorterr.FieldContentType(pref.ContentType))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID, contentType string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sort_preferences WHERE user_id = ? AND content_type = ?`,
		userID, contentType,
	)
	if err != nil {
		return sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "delete sort preference",
			sorterr.FieldUserID(userID), sorterr.FieldContentType(contentType))
	}
	return nil
}

func (s *Store) List(ctx context.Context, userID string) ([]domain.SortPreference, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_type, orderby, sort_order, updated_at
		 FROM sort_preferences WHERE user_id = ? ORDER BY content_type ASC`,
		userID,
	)
	if err != nil {
		return nil, sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "list sort preferences", sorterr.FieldUserID(userID))
	}
	defer func() { _ = rows.Close() }()

	out := make([]domain.SortPreference, 0)
	for rows.Next() {
		pref := domain.SortPreference{UserID: userID}
		if err := rows.Scan(&pref.ContentType, &pref.OrderBy, &pref.Order, &pref.UpdatedAt); err != nil {
			return nil, sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "scan sort preference", sorterr.FieldUserID(userID))
		}
		out = append(out, pref)
	}
	if err := rows.Err(); err != nil {
		return nil, sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "list sort preferences", sorterr.FieldUserID(userID))
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
