package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang-jwt/jwt/v5/request"
)

// ModeratorClaims carries the identity of an authenticated moderator.
type ModeratorClaims struct {
	Subject string `json:"sub,omitempty"`
	Role    string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type claimsKeyType string

const ctxModeratorClaimsKey claimsKeyType = "moderatorClaims"

const RoleModerator = "moderator"

// GenerateModeratorToken issues a signed HS256 token for a moderator identity.
// Used by tests and by the token provisioning tool.
func GenerateModeratorToken(subject string, key []byte, ttl time.Duration) (string, error) {
	claims := &ModeratorClaims{
		Subject: subject,
		Role:    RoleModerator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

func validateModeratorToken(tokenStr string, key []byte) (*ModeratorClaims, error) {
	claims := &ModeratorClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Role != RoleModerator {
		return nil, errors.New("missing moderator role")
	}
	return claims, nil
}

// ModeratorAuth rejects requests that do not carry a valid moderator bearer token.
func ModeratorAuth(key []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := request.BearerExtractor{}.ExtractToken(r)
			if err != nil {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := validateModeratorToken(token, key)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxModeratorClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ModeratorFromContext returns the authenticated moderator claims, if any.
func ModeratorFromContext(ctx context.Context) *ModeratorClaims {
	claims, _ := ctx.Value(ctxModeratorClaimsKey).(*ModeratorClaims)
	return claims
}
