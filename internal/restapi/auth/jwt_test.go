package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorRoundTrip(t *testing.T) {
	v := NewValidator("super-secret-signing-key-value")
	tok, err := v.Issue("embucket", "example.com", "sess-1", time.Hour)
	require.NoError(t, err)

	claims, err := v.Validate(tok, "example.com")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestValidatorRejectsAudienceMismatch(t *testing.T) {
	v := NewValidator("super-secret-signing-key-value")
	tok, err := v.Issue("embucket", "example.com", "sess-1", time.Hour)
	require.NoError(t, err)

	_, err = v.Validate(tok, "other-host.com")
	assert.Error(t, err)
}

func TestValidatorRejectsExpiredToken(t *testing.T) {
	v := NewValidator("super-secret-signing-key-value")
	tok, err := v.Issue("embucket", "example.com", "sess-1", -time.Hour)
	require.NoError(t, err)

	_, err = v.Validate(tok, "example.com")
	assert.Error(t, err)
}

func TestExtractTokenFromAuthHeader(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", `Snowflake Token="123e4567-e89b-12d3-a456-426614174000"`)
	tok, ok := ExtractTokenFromAuth(h)
	require.True(t, ok)
	assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000", tok)
}

func TestExtractTokenFromAuthHeaderAbsent(t *testing.T) {
	_, ok := ExtractTokenFromAuth(http.Header{})
	assert.False(t, ok)
}

func TestIsJWT(t *testing.T) {
	assert.True(t, IsJWT("a.b.c"))
	assert.False(t, IsJWT("123e4567-e89b-12d3-a456-426614174000"))
}
