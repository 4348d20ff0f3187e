package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *JWTManager {
	return NewJWTManager("test-secret-at-least-32-bytes-long!!", 15*time.Minute, 7*24*time.Hour)
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	m := testManager()

	token, err := m.GenerateAccessToken(UserClaims{UserID: "op-1", Email: "op@example.com", IsAdmin: true})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-1", claims.UserID)
	assert.Equal(t, "op@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	m := testManager()
	other := NewJWTManager("a-completely-different-signing-key!!", 15*time.Minute, time.Hour)

	token, err := m.GenerateAccessToken(UserClaims{UserID: "op-1"})
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret-at-least-32-bytes-long!!", -time.Minute, time.Hour)

	token, err := m.GenerateAccessToken(UserClaims{UserID: "op-1"})
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := testManager()

	_, err := m.ValidateAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateTokenPair(t *testing.T) {
	m := testManager()

	pair, err := m.GenerateTokenPair(UserClaims{UserID: "op-1"})
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), pair.ExpiresIn)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	m := testManager()

	a, err := m.GenerateRefreshToken()
	require.NoError(t, err)
	b, err := m.GenerateRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashRefreshToken(t *testing.T) {
	hash := HashRefreshToken("some-refresh-token")

	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashRefreshToken("some-refresh-token"))
	assert.NotEqual(t, hash, HashRefreshToken("another-token"))
}

func TestPasswordHashAndVerify(t *testing.T) {
	// Minimum cost keeps the test fast.
	p := NewPasswordManager(4)

	hash, err := p.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, p.VerifyPassword("correct horse battery staple", hash))
	assert.False(t, p.VerifyPassword("wrong password!", hash))
}

func TestPasswordLengthLimits(t *testing.T) {
	p := NewPasswordManager(4)

	_, err := p.HashPassword("short")
	assert.Error(t, err)

	long := make([]byte, MaxPasswordLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = p.HashPassword(string(long))
	assert.Error(t, err)
}
