// server/internal/auth/auth_test.go
package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPINHashRoundTrip(t *testing.T) {
	hash, err := HashPIN("1234")
	require.NoError(t, err)
	require.True(t, CheckPIN("1234", hash))
	require.False(t, CheckPIN("4321", hash))
}

func TestJWTRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateJWT(secret, "RL Express", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(secret, token)
	require.NoError(t, err)
	require.Equal(t, "RL Express", claims.CourierName)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateJWT([]byte("one"), "RL Express", time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT([]byte("two"), token)
	require.Error(t, err)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateJWT(secret, "RL Express", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(secret, token)
	require.Error(t, err)
}
