package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Minute)

	token, err := svc.CreateForUser(42)
	require.NoError(t, err)

	id, err := svc.ParseUserID(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Minute).CreateForUser(42)
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", time.Minute).ParseUserID(token)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Minute)
	token, err := svc.CreateForUser(42)
	require.NoError(t, err)

	_, err = svc.ParseUserID(token)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Minute)
	_, err := svc.ParseUserID("not.a.token")
	assert.Error(t, err)
}
