package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorIs(t *testing.T) {
	err := NewValidationError("column", "city", "column does not exist")
	assert.True(t, stderrors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "column")
	assert.True(t, IsValidation(err))
}

func TestAPIError(t *testing.T) {
	err := NewAPIError("wikidata", 503, "service down")
	assert.True(t, stderrors.Is(err, ErrBackendUnavailable))
	assert.Contains(t, err.Error(), "503")

	clientErr := NewAPIError("wikidata", 400, "bad request")
	assert.False(t, stderrors.Is(clientErr, ErrBackendUnavailable))
}

func TestAPIErrorUnwrap(t *testing.T) {
	inner := New("connection refused")
	err := WrapAPI("geonames", 0, inner)
	assert.True(t, stderrors.Is(err, inner))
}

func TestSchemaError(t *testing.T) {
	err := NewSchemaError("r99$city", "row not present in document")
	assert.Contains(t, err.Error(), "r99$city")
}

func TestNotFoundError(t *testing.T) {
	err := &NotFoundError{Resource: "table", ID: "t1"}
	assert.True(t, IsNotFound(err))
}

func TestAuthenticationErrorIs(t *testing.T) {
	err := &AuthenticationError{Method: "credentials", Message: "sign-in failed"}
	assert.True(t, stderrors.Is(err, ErrTokenRequired))
}

func TestWrapHelpersNilPassthrough(t *testing.T) {
	assert.Nil(t, WrapValidation("field", nil))
	assert.Nil(t, WrapIO("read", "/tmp/x", nil))
	assert.Nil(t, WrapParse("json", "body", nil))
	assert.Nil(t, WrapAPI("svc", 0, nil))
}
