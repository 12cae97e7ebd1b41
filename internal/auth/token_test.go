package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-nfc/card-service/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("secret", 15)

	raw, meta, err := tm.GenerateToken("u-1", domain.RoleStaff)
	require.NoError(t, err)
	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, 15*time.Minute, meta.ExpiresAt.Sub(meta.IssuedAt))

	claims, err := tm.ParseToken(raw)
	require.NoError(t, err)
	parsed := claims.Token()
	assert.Equal(t, "u-1", parsed.UserID)
	assert.Equal(t, domain.RoleStaff, parsed.Role)
	assert.Equal(t, meta.ID, parsed.ID)
}

func TestTokensHaveDistinctIDs(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	_, a, err := tm.GenerateToken("u-1", domain.RoleStudent)
	require.NoError(t, err)
	_, b, err := tm.GenerateToken("u-1", domain.RoleStudent)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	raw, _, err := NewTokenManager("secret", 15).GenerateToken("u-1", domain.RoleAdmin)
	require.NoError(t, err)

	_, err = NewTokenManager("other", 15).ParseToken(raw)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, err := tm.GenerateToken("u-1", domain.RoleAdmin)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 1).ParseToken(raw)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseRejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		Role:             domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", ID: "t-1"},
	})
	raw, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 15).ParseToken(raw)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter22"))
	assert.Error(t, ComparePassword(hash, "hunter23"))
}
