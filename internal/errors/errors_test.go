package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sorterr "sortmemo/internal/errors"
)

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := sorterr.New(
		sorterr.CodeResetUnauthorized,
		"Security check failed",
		sorterr.FieldUserID("alice"),
		sorterr.FieldContentType("page"),
	)

	require.Error(t, err)
	assert.Equal(t, sorterr.CodeResetUnauthorized, sorterr.CodeOf(err))
	assert.True(t, sorterr.HasCode(err, sorterr.CodeResetUnauthorized))

	fields := sorterr.FieldsOf(err)
	assert.Equal(t, "alice", fields["user_id"])
	assert.Equal(t, "page", fields["content_type"])
}

func TestWrapKeepsCauseAndCode(t *testing.T) {
	inner := stderrors.New("connection refused")
	err := sorterr.Wrap(inner, sorterr.CodeStoreUnavailable, "get sort preference")

	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, sorterr.CodeStoreUnavailable, sorterr.CodeOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, sorterr.Wrap(nil, sorterr.CodeStoreUnavailable, "noop"))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, sorterr.Code(""), sorterr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, sorterr.Code(""), sorterr.CodeOf(nil))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", sorterr.New(sorterr.CodeResetUnauthorized, "x"), http.StatusForbidden},
		{"store", sorterr.New(sorterr.CodeStoreUnavailable, "x"), http.StatusServiceUnavailable},
		{"invalid", sorterr.New(sorterr.CodeRequestInvalid, "x"), http.StatusBadRequest},
		{"plain", stderrors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sorterr.HTTPStatus(tt.err))
		})
	}
}
