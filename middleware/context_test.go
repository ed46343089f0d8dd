package middleware

import (
	"context"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

func TestGetRequestIDFromContext(t *testing.T) {
	t.Run("reads the id set by the router middleware", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), chimw.RequestIDKey, "router-assigned-id")
		assert.Equal(t, "router-assigned-id", GetRequestIDFromContext(ctx))
	})

	t.Run("explicit id takes precedence", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), chimw.RequestIDKey, "router-assigned-id")
		ctx = WithRequestID(ctx, "explicit-id")
		assert.Equal(t, "explicit-id", GetRequestIDFromContext(ctx))
	})

	t.Run("empty without any id", func(t *testing.T) {
		assert.Equal(t, "", GetRequestIDFromContext(context.Background()))
	})
}
