package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func authProbe(key []byte) (http.Handler, *string) {
	var seen string
	handler := ModeratorAuth(key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := ModeratorFromContext(r.Context()); claims != nil {
			seen = claims.Subject
		}
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &seen
}

func TestModeratorAuth(t *testing.T) {
	key := []byte("secret")
	handler, seen := authProbe(key)

	token, err := GenerateModeratorToken("mod-7", key, time.Hour)
	if err != nil {
		t.Fatalf("GenerateModeratorToken() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if *seen != "mod-7" {
		t.Fatalf("subject = %q, want %q", *seen, "mod-7")
	}
}

func TestModeratorAuthRejections(t *testing.T) {
	key := []byte("secret")

	expired, err := GenerateModeratorToken("mod-7", key, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateModeratorToken() error: %v", err)
	}
	wrongKey, err := GenerateModeratorToken("mod-7", []byte("other"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateModeratorToken() error: %v", err)
	}

	noRole := jwt.NewWithClaims(jwt.SigningMethodHS256, &ModeratorClaims{
		Subject: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noRoleToken, err := noRole.SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "garbage token", token: "not.a.jwt"},
		{name: "expired token", token: expired},
		{name: "wrong key", token: wrongKey},
		{name: "missing moderator role", token: noRoleToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler, _ := authProbe(key)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}
