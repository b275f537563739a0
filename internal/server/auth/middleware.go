package auth

import (
	"net/http"
)

// RequireAuth rejects requests without a valid access token and attaches
// the claims for the ones that pass. onReject writes the 401 response.
func RequireAuth(v *Verifier, onReject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractAccessToken(r)
			if token == "" {
				onReject(w, r)
				return
			}
			claims, err := v.VerifyAccessToken(token)
			if err != nil {
				onReject(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
