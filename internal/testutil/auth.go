package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

type ctxKey string

const ctxSubject ctxKey = "sub"

// requireBearer accepts only HS256 tokens signed with secret and stores the
// token subject in the request context
func requireBearer(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || tok == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims := jwt.MapClaims{}
			t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
				// Verify signing method
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !t.Valid {
				log.Warn().Err(err).Msg("jwt validation failed")
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			sub, _ := claims["sub"].(string)
			if sub == "" {
				writeError(w, http.StatusUnauthorized, "missing subject")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxSubject, sub)))
		})
	}
}

// subject returns the authenticated subject
func subject(ctx context.Context) string {
	s, _ := ctx.Value(ctxSubject).(string)
	return s
}

// SignToken returns an HS256 token for sub that expires in an hour
func SignToken(t testing.TB, secret, sub string) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}
