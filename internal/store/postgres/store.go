package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"sortmemo/internal/domain"
	sorterr "sortmemo/internal/errors"
	storepkg "sortmemo/internal/store"
)

const schema = `
create table if not exists sort_preferences (
	user_id      text not null,
	content_type text not null,
	orderby      text not null,
	sort_order   text not null default 'asc',
	updated_at   timestamptz not null default now(),
	primary key (user_id, content_type)
)`

type Store struct {
	db *sql.DB
}

func NewStore(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, userID, contentType string) (domain.SortPreference, bool, error) {
	pref := domain.SortPreference{UserID: userID, ContentType: contentType}
	err := s.db.QueryRowContext(ctx,
		`select orderby, sort_order, updated_at
		 from sort_preferences
		 where user_id = $1 and content_type = $2`,
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
		`insert into sort_preferences(user_id, content_type, orderby, sort_order, updated_at)
		 values ($1, $2, $3, $4, now())
		 on conflict (user_id, content_type) do update
		 set orderby = excluded.orderby,
		     sort_order = excluded.sort_order,
		     updated_at = now()`,
		pref.UserID, pref.ContentType, pref.OrderBy, pref.Order,
	)
	if err != nil {
		return sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "set sort preference",
			sorterr.FieldUserID(pref.UserID), sorterr.FieldContentType(pref.ContentType))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID, contentType string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from sort_preferences where user_id = $1 and content_type = $2`,
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
		`select content_type, orderby, sort_order, updated_at
		 from sort_preferences
		 where user_id = $1
		 order by content_type asc`,
		userID,
	)
	if err != nil {
		return nil, sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "list sort preferences", sorterr.FieldUserID(userID))
	}
	defer rows.Close()

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
