package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sortmemo/internal/domain"
	storepkg "sortmemo/internal/store"
)

type key struct {
	userID      string
	contentType string
}

type Store struct {
	mu    sync.RWMutex
	prefs map[key]domain.SortPreference
}

func NewStore() *Store {
	return &Store{
		prefs: make(map[key]domain.SortPreference),
	}
}

func (s *Store) Get(_ context.Context, userID, contentType string) (domain.SortPreference, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pref, ok := s.prefs[key{userID: userID, contentType: contentType}]
	return pref, ok, nil
}

func (s *Store) Set(_ context.Context, pref domain.SortPreference) error {
	pref = storepkg.Normalize(pref)
	if pref.UpdatedAt.IsZero() {
		pref.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[key{userID: pref.UserID, contentType: pref.ContentType}] = pref
	return nil
}

func (s *Store) Delete(_ context.Context, userID, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prefs, key{userID: userID, contentType: contentType})
	return nil
}

func (s *Store) List(_ context.Context, userID string) ([]domain.SortPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SortPreference, 0)
	for k, pref := range s.prefs {
		if k.userID == userID {
			out = append(out, pref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentType < out[j].ContentType })
	return out, nil
}

func (s *Store) Close() error {
	return nil
}
