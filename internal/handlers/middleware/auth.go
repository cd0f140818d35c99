package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/nkiryanov/smsorders/internal/handlers/render"
	"github.com/nkiryanov/smsorders/internal/handlers/userctx"
	"github.com/nkiryanov/smsorders/internal/models"
)

// Resolve user the request made by
type Authenticate func(ctx context.Context, r *http.Request) (models.User, error)

// Put authenticated user to request context or respond with 401
func AuthMiddleware(auth Authenticate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth(r.Context(), r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Let request through only if header carries the shared key
func SharedKeyMiddleware(header string, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
