package middleware

import (
	"context"
	"net/http"

	"photoreel/internal/infra/geoip"
)

type geoKeyType string

const countryCodeKey geoKeyType = "country_code"

// Geo annotates requests with the caller's ISO country code when a resolver
// is configured. Lookup failures are ignored; the request proceeds regardless.
func Geo(resolver geoip.CountryResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				next.ServeHTTP(w, r)
				return
			}
			code, err := resolver.CountryCode(clientIP(r))
			if err != nil || code == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), countryCodeKey, code)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CountryFromContext returns the resolved country code for the request, if any.
func CountryFromContext(ctx context.Context) string {
	code, _ := ctx.Value(countryCodeKey).(string)
	return code
}
