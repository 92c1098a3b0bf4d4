package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/StephanieCaroll/Sustentech-sub000/internal/security"
)

type contextKey string

const viewerContextKey contextKey = "viewerID"

// WithViewer returns a new context carrying the authenticated viewer's id.
func WithViewer(ctx context.Context, viewerID string) context.Context {
	return context.WithValue(ctx, viewerContextKey, viewerID)
}

// ViewerID extracts the authenticated viewer's id from the request context.
func ViewerID(r *http.Request) string {
	if v := r.Context().Value(viewerContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// AuthMiddleware validates the Bearer token and attaches the viewer id to the
// context. Identity lives in the token; there is no local account lookup.
func AuthMiddleware(tokens *security.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			viewerID, err := tokens.Subject(tokenStr)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := WithViewer(r.Context(), viewerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
