package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	user := uuid.New()

	token, err := svc.GenerateToken(user, RoleOwner)
	require.NoError(t, err)

	id, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, user, id.UserID)
	require.Equal(t, RoleOwner, id.Role)
}

func TestValidateRejects(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	user := uuid.New()

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewTokenService("other", time.Hour).GenerateToken(user, RoleDriver)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("expired", func(t *testing.T) {
		old := NewTokenService("secret", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := old.GenerateToken(user, RoleDriver)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("numeric user id", func(t *testing.T) {
		claims := jwt.MapClaims{"user_id": 42, "role": RoleDriver, "exp": time.Now().Add(time.Hour).Unix()}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := Claims{UserID: user.String(), Role: "admin"}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := Claims{UserID: user.String(), Role: RoleDriver}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestGenerateRequiresUserAndRole(t *testing.T) {
	svc := NewTokenService("secret", 0)
	_, err := svc.GenerateToken(uuid.Nil, RoleDriver)
	require.Error(t, err)
	_, err = svc.GenerateToken(uuid.New(), "admin")
	require.ErrorIs(t, err, ErrInvalidRole)
}
