// Package storetest holds the behavioural contract every Store backend must
// satisfy. Backends call Run from their own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sortmemo/internal/domain"
	storepkg "sortmemo/internal/store"
)

// Factory returns a fresh, empty store for a single subtest.
type Factory func(t *testing.T) storepkg.Store

func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("GetMissingIsNotAnError", func(t *testing.T) {
		st := newStore(t)
		_, ok, err := st.Get(context.Background(), "alice", "post")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SetThenGet", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		require.NoError(t, st.Set(ctx, domain.SortPreference{
			UserID: "alice", ContentType: "post", OrderBy: "title", Order: "desc",
		}))

		got, ok, err := st.Get(ctx, "alice", "post")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "title", got.OrderBy)
		assert.Equal(t, "desc", got.Order)
		assert.Equal(t, "alice", got.UserID)
		assert.Equal(t, "post", got.ContentType)
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "alice", ContentType: "post", OrderBy: "date", Order: "asc"}))
		require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "alice", ContentType: "post", OrderBy: "title", Order: "desc"}))

		got, ok, err := st.Get(ctx, "alice", "post")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "title", got.OrderBy)
		assert.Equal(t, "desc", got.Order)
	})

	t.Run("SetDefaultsOrder", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "alice", ContentType: "page", OrderBy: "menu_order"}))

		got, ok, err := st.Get(ctx, "alice", "page")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, domain.DefaultOrder, got.Order)
	})

	t.Run("OpaqueValuesRoundTrip", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		require.NoError(t, st.Set(ctx, domain.SortPreference{
			UserID: "user:42", ContentType: "product_variation", OrderBy: "meta_value num", Order: "sideways",
		}))

		got, ok, err := st.Get(ctx, "user:42", "product_variation")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "meta_value num", got.OrderBy)
		assert.Equal(t, "sideways", got.Order)
	})

	t.Run("KeysAreIsolated", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "alice", ContentType: "post", OrderBy: "title", Order: "asc"}))
		require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "bob", ContentType: "post", OrderBy: "date", Order: "desc"}))
		require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "alice", ContentType: "page", OrderBy: "author", Order: "desc"}))

		got, _, err := st.Get(ctx, "bob", "post")
		require.NoError(t, err)
		assert.Equal(t, "date", got.OrderBy)

		got, _, err = st.Get(ctx, "alice", "page")
		require.NoError(t, err)
		assert.Equal(t, "author", got.OrderBy)

		require.NoError(t, st.Delete(ctx, "alice", "post"))
		_, ok, err := st.Get(ctx, "bob", "post")
		require.NoError(t, err)
		assert.True(t, ok)
		_, ok, err = st.Get(ctx, "alice", "page")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "alice", ContentType: "post", OrderBy: "title", Order: "asc"}))

		require.NoError(t, st.Delete(ctx, "alice", "post"))
		require.NoError(t, st.Delete(ctx, "alice", "post"))
		require.NoError(t, st.Delete(ctx, "nobody", "nothing"))

		_, ok, err := st.Get(ctx, "alice", "post")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ListIsScopedAndOrdered", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()
		require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "alice", ContentType: "post", OrderBy: "title", Order: "asc"}))
		require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "alice", ContentType: "page", OrderBy: "date", Order: "desc"}))
		require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "bob", ContentType: "attachment", OrderBy: "size", Order: "asc"}))

		prefs, err := st.List(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, prefs, 2)
		assert.Equal(t, "page", prefs[0].ContentType)
		assert.Equal(t, "post", prefs[1].ContentType)

		prefs, err = st.List(ctx, "carol")
		require.NoError(t, err)
		assert.Empty(t, prefs)
	})
}
