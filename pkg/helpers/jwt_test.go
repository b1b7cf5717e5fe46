package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_AccessTokensAreUniqueAndScoped(t *testing.T) {
	m := NewJWTManager("access-secret", "refresh-secret", time.Minute, time.Hour)

	a1, exp, err := m.GenerateAccessToken("u1", "s1")
	require.NoError(t, err)
	a2, _, err := m.GenerateAccessToken("u1", "s1")
	require.NoError(t, err)
	assert.NotEqual(t, a1, a2)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 2*time.Second)

	claims, err := m.ParseAccessToken(a1)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "s1", claims.SessionID)

	_, err = m.ParseRefreshToken(a1)
	assert.Error(t, err, "access tokens are not refresh tokens")
}

func TestJWT_RefreshCarriesTokenID(t *testing.T) {
	m := NewJWTManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	r, _, err := m.GenerateRefreshToken("u1", "s1", "rt-1")
	require.NoError(t, err)
	claims, err := m.ParseRefreshToken(r)
	require.NoError(t, err)
	assert.Equal(t, "rt-1", claims.ID)
}

func TestJWT_SessionIDOfExpiredToken(t *testing.T) {
	m := NewJWTManager("access-secret", "refresh-secret", -time.Minute, time.Hour)
	a, _, err := m.GenerateAccessToken("u1", "s1")
	require.NoError(t, err)

	_, err = m.ParseAccessToken(a)
	assert.Error(t, err)

	sid, ok := m.SessionIDOf(a, false)
	assert.True(t, ok)
	assert.Equal(t, "s1", sid)

	_, ok = m.SessionIDOf(a, true)
	assert.False(t, ok, "wrong secret")
	_, ok = m.SessionIDOf("garbage", false)
	assert.False(t, ok)
}
