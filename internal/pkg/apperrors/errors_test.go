package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTransportKeepsLastMessage(t *testing.T) {
	err := NewTransport(errors.New("dial tcp: connection refused"))
	assert.Equal(t, ErrTransport, err.Type)
	assert.Equal(t, "dial tcp: connection refused", err.Message)
	assert.Equal(t, "dial tcp: connection refused", err.Error())
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
}

func TestErrorIncludesDistinctCause(t *testing.T) {
	err := New(ErrDecode, "invalid api secret", errors.New("illegal base64 data at input byte 3"))
	assert.Equal(t, "invalid api secret: illegal base64 data at input byte 3", err.Error())
}

func TestWrapAndIs(t *testing.T) {
	inner := NewInvalidRequest("order body is required")
	wrapped := fmt.Errorf("post order: %w", inner)

	assert.True(t, Is(wrapped, ErrInvalidRequest))
	assert.False(t, Is(wrapped, ErrTransport))
	assert.Same(t, inner, Wrap(wrapped))

	plain := Wrap(errors.New("boom"))
	assert.Equal(t, ErrInternal, plain.Type)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus)
	assert.Nil(t, Wrap(nil))
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, NewInvalidRequest("x").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, NewConfiguration("x").HTTPStatus)
	assert.Equal(t, http.StatusTooManyRequests, New(ErrRateLimited, "x", nil).HTTPStatus)
}
