package auth

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// ExtractAccessToken returns the bearer token from the Authorization header,
// falling back to the access token cookie when the header is absent, empty,
// or carries a placeholder such as "undefined" left by browser clients.
func ExtractAccessToken(r *http.Request) string {
	if t := BearerToken(r.Header.Get("Authorization")); t != "" {
		return t
	}
	if c, err := r.Cookie(common.AccessTokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

// BearerToken parses an Authorization value. It returns "" for anything
// other than a usable bearer token.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	token = strings.TrimSpace(token)
	switch token {
	case "", "undefined", "null":
		return ""
	}
	return token
}
