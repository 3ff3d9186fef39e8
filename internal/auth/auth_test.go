package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	InitializeJWT("test-secret")

	token, err := GenerateToken("01SESSION", "01USER", "a@b.com", time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "01SESSION", claims.SessionID)
	assert.Equal(t, "01USER", claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
}

func TestValidateTokenRejects(t *testing.T) {
	InitializeJWT("test-secret")

	expired, err := GenerateToken("s", "u", "a@b.com", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = ValidateToken(expired)
	assert.Error(t, err)

	_, err = ValidateToken("not-a-token")
	assert.Error(t, err)

	// Signed with a different secret
	InitializeJWT("other-secret")
	other, err := GenerateToken("s", "u", "a@b.com", time.Now().Add(time.Hour))
	require.NoError(t, err)
	InitializeJWT("test-secret")
	_, err = ValidateToken(other)
	assert.Error(t, err)

	// No session id
	unsigned := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{UserID: "u"})
	noSession, err := unsigned.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = ValidateToken(noSession)
	assert.Error(t, err)
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.NoError(t, VerifyPassword("s3cret", hash))
	assert.Error(t, VerifyPassword("wrong", hash))
}
