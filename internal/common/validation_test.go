package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("name", "  ", Required).
		Field("color", "blue", HexColor).
		Field("email", "nope", Email).
		Field("title", strings.Repeat("x", 10), MaxLength(5))

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 4)
	assert.ErrorIs(t, v.Err(), ErrValidation)
}

func TestValidator_Passes(t *testing.T) {
	name := "Partners"
	v := NewValidator().
		Field("name", &name, Required, MaxLength(64)).
		Field("color", "#0891b2", HexColor).
		Field("short color", "#fff", HexColor).
		Field("empty color", "", HexColor).
		Field("email", "a.b@example.co", Email).
		Field("empty email", "", Email)

	assert.False(t, v.HasErrors())
	assert.NoError(t, v.Err())
}

func TestRequired_NilPointer(t *testing.T) {
	var p *string
	assert.NotNil(t, Required("name", p))
	assert.NotNil(t, Required("name", nil))
}
