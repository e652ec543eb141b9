package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/conjurecontent/backend/api/responses"
	pkgauth "github.com/conjurecontent/backend/pkg/auth"
	"github.com/conjurecontent/backend/pkg/config"
	pkgerrors "github.com/conjurecontent/backend/pkg/errors"
	"github.com/conjurecontent/backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// authenticated user's id.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxOwnerID, claims.UserID.String())
			if logg != nil {
				ctx = logg.WithOwnerID(ctx, claims.UserID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
