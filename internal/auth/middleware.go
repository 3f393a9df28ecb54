// Package auth authenticates gate-guard requests. A valid bearer token yields
// the caller identity snapshot stored on each movement; with no signing
// secret configured (dev/test) every request runs as the synthetic system
// actor.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/trailerops/yardgate/internal/model"
)

type ctxKey struct{}

// Claims are the token claims yardgate consumes.
type Claims struct {
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	jwt.RegisteredClaims
}

// ActorFromContext returns the authenticated actor, or the system actor when
// the request carried none (auth disabled).
func ActorFromContext(ctx context.Context) model.Actor {
	if a, ok := ctx.Value(ctxKey{}).(model.Actor); ok {
		return a
	}
	return model.SystemActor()
}

// Middleware enforces bearer-token auth when a secret is configured. The
// whole request fails before any saga step runs; handlers downstream can rely
// on ActorFromContext.
func Middleware(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			actor, err := ParseToken(tokenStr, secret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ParseToken validates an HMAC-signed token and extracts the actor snapshot.
func ParseToken(tokenStr, secret string) (model.Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return model.Actor{}, err
	}
	if !token.Valid || claims.Subject == "" {
		return model.Actor{}, fmt.Errorf("invalid token")
	}
	return model.Actor{
		ID:          claims.Subject,
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
	}, nil
}

// NewToken mints a signed token for the given actor (used by tests and the
// dev tooling; production tokens come from the identity provider).
func NewToken(actor model.Actor, secret string) (string, error) {
	claims := Claims{
		DisplayName: actor.DisplayName,
		Email:       actor.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: actor.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
