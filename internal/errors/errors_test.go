package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_SetTypeAndContext(t *testing.T) {
	cause := errors.New("401 unauthorized")

	err := UpstreamAuthError("reddit", cause)
	assert.Equal(t, TypeUpstreamAuth, err.Type)
	assert.Equal(t, "reddit", err.Context["source"])
	assert.ErrorIs(t, err, cause)
}

func TestFatal_OnlyAuthFailures(t *testing.T) {
	assert.True(t, UpstreamAuthError("reddit", nil).Fatal())

	assert.False(t, RateLimitedError("reddit", nil).Fatal())
	assert.False(t, TimeoutError("market", nil).Fatal())
	assert.False(t, ParseError("bad bar", nil).Fatal())
	assert.False(t, ValidationError("bad weights").Fatal())
	assert.False(t, NotFoundError("no ticker").Fatal())
	assert.False(t, InternalError("boom", nil).Fatal())
}

func TestHTTPStatus_Mapping(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
	}{
		{ValidationError("bad"), http.StatusBadRequest},
		{NotFoundError("missing"), http.StatusNotFound},
		{RateLimitedError("reddit", nil), http.StatusTooManyRequests},
		{TimeoutError("market", nil), http.StatusGatewayTimeout},
		{UpstreamAuthError("reddit", nil), http.StatusBadGateway},
		{InternalError("boom", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.HTTPStatus(), "%s", tt.err.Type)
	}
}

func TestAsStructuredError(t *testing.T) {
	structured := NotFoundError("missing")
	assert.Same(t, structured, AsStructuredError(structured))

	wrapped := fmt.Errorf("while handling request: %w", structured)
	assert.Same(t, structured, AsStructuredError(wrapped))

	plain := AsStructuredError(errors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, TypeInternal, plain.Type)

	assert.Nil(t, AsStructuredError(nil))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeRateLimited, TypeOf(RateLimitedError("reddit", nil)))
	assert.Equal(t, TypeRateLimited, TypeOf(fmt.Errorf("wrapped: %w", RateLimitedError("reddit", nil))))
	assert.Equal(t, TypeInternal, TypeOf(errors.New("boom")))
}

func TestToResponse(t *testing.T) {
	err := ValidationError("weights must not be negative").WithContext("field", "volume")

	resp := err.ToResponse()
	assert.Equal(t, "weights must not be negative", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, "volume", resp.Context["field"])
}
