package authn

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator() *Validator {
	return NewValidator(Config{Secret: "test-secret", Issuer: "soluly"})
}

func TestValidateToken(t *testing.T) {
	v := newTestValidator()
	sub := uuid.New()

	t.Run("round trip", func(t *testing.T) {
		token, err := v.IssueToken(sub, "jordan@example.com", "Jordan Reyes", "acme", time.Hour)
		require.NoError(t, err)

		parsed, err := v.ValidateToken(context.Background(), token)
		require.NoError(t, err)

		assert.Equal(t, sub, parsed.Sub)
		assert.Equal(t, "jordan@example.com", parsed.Email)
		assert.Equal(t, "Jordan Reyes", parsed.Name)
		assert.Equal(t, "acme", parsed.OrgSlug)
		assert.False(t, parsed.ExpiresAt.IsZero())
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := v.ValidateToken(context.Background(), "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := v.IssueToken(sub, "jordan@example.com", "Jordan Reyes", "acme", -time.Minute)
		require.NoError(t, err)

		_, err = v.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewValidator(Config{Secret: "other-secret", Issuer: "soluly"})
		token, err := other.IssueToken(sub, "jordan@example.com", "Jordan Reyes", "acme", time.Hour)
		require.NoError(t, err)

		_, err = v.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewValidator(Config{Secret: "test-secret", Issuer: "someone-else"})
		token, err := other.IssueToken(sub, "jordan@example.com", "Jordan Reyes", "acme", time.Hour)
		require.NoError(t, err)

		_, err = v.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidIssuer)
	})

	t.Run("non-uuid subject", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "not-a-uuid",
				Issuer:    "soluly",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = v.ValidateToken(context.Background(), signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects non-HMAC signing method", func(t *testing.T) {
		// alg=none style token
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString(), Issuer: "soluly"},
		})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = v.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
