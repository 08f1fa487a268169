package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"sortmemo/internal/domain"
	sorterr "sortmemo/internal/errors"
	storepkg "sortmemo/internal/store"
)

// Config holds the connection settings for the redis backend.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Store keeps one hash per user; each field is a content type holding the
// JSON-encoded preference, so every operation touches a single key.
type Store struct {
	client    *goredis.Client
	keyPrefix string
}

type record struct {
	OrderBy   string    `json:"orderby"`
	Order     string    `json:"order"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewStore(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewStoreFromClient(client, cfg.KeyPrefix), nil
}

func NewStoreFromClient(client *goredis.Client, keyPrefix string) *Store {
	return &Store{client: client, keyPrefix: keyPrefix}
}

func (s *Store) userKey(userID string) string {
	return s.keyPrefix + "prefs:" + url.PathEscape(userID)
}

func (s *Store) Get(ctx context.Context, userID, contentType string) (domain.SortPreference, bool, error) {
	raw, err := s.client.HGet(ctx, s.userKey(userID), contentType).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.SortPreference{}, false, nil
		}
		return domain.SortPreference{}, false, sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "get sort preference",
			sorterr.FieldUserID(userID), sorterr.FieldContentType(contentType))
	}
	pref, err := decode(userID, contentType, raw)
	if err != nil {
		return domain.SortPreference{}, false, sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "decode sort preference",
			sorterr.FieldUserID(userID), sorterr.FieldContentType(contentType))
	}
	return pref, true, nil
}

func (s *Store) Set(ctx context.Context, pref domain.SortPreference) error {
	pref = storepkg.Normalize(pref)
	raw, err := json.Marshal(record{OrderBy: pref.OrderBy, Order: pref.Order, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.userKey(pref.UserID), pref.ContentType, raw).Err(); err != nil {
		return sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "set sort preference",
			sorterr.FieldUserID(pref.UserID), sorterr.FieldContentType(pref.ContentType))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID, contentType string) error {
	if err := s.client.HDel(ctx, s.userKey(userID), contentType).Err(); err != nil {
		return sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "delete sort preference",
			sorterr.FieldUserID(userID), sorterr.FieldContentType(contentType))
	}
	return nil
}

func (s *Store) List(ctx context.Context, userID string) ([]domain.SortPreference, error) {
	fields, err := s.client.HGetAll(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "list sort preferences", sorterr.FieldUserID(userID))
	}
	out := make([]domain.SortPreference, 0, len(fields))
	for contentType, raw := range fields {
		pref, err := decode(userID, contentType, []byte(raw))
		if err != nil {
			return nil, sorterr.Wrap(err, sorterr.CodeStoreUnavailable, "decode sort preference",
				sorterr.FieldUserID(userID), sorterr.FieldContentType(contentType))
		}
		out = append(out, pref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentType < out[j].ContentType })
	return out, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func decode(userID, contentType string, raw []byte) (domain.SortPreference, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.SortPreference{}, err
	}
	return domain.SortPreference{
		UserID:      userID,
		ContentType: contentType,
		OrderBy:     rec.OrderBy,
		Order:       rec.Order,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}
