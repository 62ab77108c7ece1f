package httputil

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stocklot/stocklot-backend/pkg/actor"
	"github.com/stocklot/stocklot-backend/pkg/config"
	"github.com/stocklot/stocklot-backend/pkg/errors"
)

// Claims represents the gateway-issued token claims. The lot service
// only consumes the acting user identity; authorization happens at the
// gateway.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// AuthMiddleware verifies the Bearer token issued by the gateway and
// stamps the acting user into the request context. Health endpoints are
// exempt so monitoring does not need credentials.
func AuthMiddleware(cfg *config.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				Error(w, errors.Unauthorized("missing authorization header"))
				return
			}

			tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found {
				Error(w, errors.Unauthorized("invalid authorization header"))
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.Unauthorized("unexpected signing method")
				}
				return []byte(cfg.Secret), nil
			}, jwt.WithIssuer(cfg.Issuer))
			if err != nil || !token.Valid {
				Error(w, errors.Unauthorized("invalid token"))
				return
			}

			ctx := actor.WithActor(r.Context(), &actor.Actor{
				ID:    claims.UserID,
				Email: claims.Email,
				Name:  claims.Name,
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
