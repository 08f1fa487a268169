package store

import (
	"context"

	"sortmemo/internal/domain"
)

// Store defines the sort-state persistence contract used by the reconciler.
// Preferences are keyed by (userID, contentType); a missing key is reported
// through the boolean result, never as an error.
type Store interface {
	Get(ctx context.Context, userID, contentType string) (domain.SortPreference, bool, error)
	Set(ctx context.Context, pref domain.SortPreference) error
	Delete(ctx context.Context, userID, contentType string) error
	List(ctx context.Context, userID string) ([]domain.SortPreference, error)
	Close() error
}

// Normalize fills the defaults a stored preference must carry.
func Normalize(pref domain.SortPreference) domain.SortPreference {
	if pref.ContentType == "" {
		pref.ContentType = domain.DefaultContentType
	}
	if pref.Order == "" {
		pref.Order = domain.DefaultOrder
	}
	return pref
}
