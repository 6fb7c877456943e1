package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	err := NewAppError("NOT_FOUND", "card 7", ErrNotFound)
	assert.Equal(t, "NOT_FOUND: card 7: resource not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)

	bare := NewAppError("X", "msg", nil)
	assert.Equal(t, "X: msg", bare.Error())
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ignored"))
	err := WrapError(ErrDatabase, "insert card")
	assert.EqualError(t, err, "insert card: database error")
	assert.ErrorIs(t, err, ErrDatabase)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{NotFoundf("label %s", "x"), http.StatusNotFound},
		{fmt.Errorf("export: %w", ErrNothingToExport), http.StatusNotFound},
		{Invalidf("bad"), http.StatusBadRequest},
		{NewValidator().Field("name", "", Required).Err(), http.StatusBadRequest},
		{ErrDuplicate, http.StatusConflict},
		{fmt.Errorf("ping: %w", ErrStoreUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "%v", tt.err)
	}
}

func TestDatabaseError(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := DatabaseError("failed to insert card", cause)
	assert.ErrorIs(t, err, ErrDatabase)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}
