package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sortmemo/internal/domain"
	sorterr "sortmemo/internal/errors"
	storepkg "sortmemo/internal/store"
	"sortmemo/internal/store/storetest"
)

func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storepkg.Store {
		return newMemoryStore(t)
	})
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sortmemo.db")
	ctx := context.Background()

	st, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, domain.SortPreference{UserID: "alice", ContentType: "page", OrderBy: "title", Order: "desc"}))
	require.NoError(t, st.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok, err := reopened.Get(ctx, "alice", "page")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "title", got.OrderBy)
	assert.Equal(t, "desc", got.Order)
}

func TestStoreClosedReportsUnavailable(t *testing.T) {
	st, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, _, err = st.Get(context.Background(), "alice", "post")
	require.Error(t, err)
	assert.True(t, sorterr.HasCode(err, sorterr.CodeStoreUnavailable))

	err = st.Delete(context.Background(), "alice", "post")
	require.Error(t, err)
	assert.True(t, sorterr.HasCode(err, sorterr.CodeStoreUnavailable))
}
