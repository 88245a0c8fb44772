package auth

import (
	"testing"
	"time"

	"complaintdesk/backend/internal/models"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	s := NewService("secret", time.Hour)

	token, err := s.GenerateToken("staff-7")
	require.NoError(t, err)

	userID, err := s.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-7", userID)
}

func TestGenerateToken_EmptyUser(t *testing.T) {
	_, err := NewService("secret", time.Hour).GenerateToken(" ")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestParseToken_Rejects(t *testing.T) {
	s := NewService("secret", time.Hour)
	token, err := s.GenerateToken("staff-7")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewService("other", time.Hour).ParseToken(token)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewService("secret", time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.ParseToken(token)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.ParseToken("not-a-token")
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "x"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = s.ParseToken(none)
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
}
