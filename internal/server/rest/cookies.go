package rest

import (
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

func (s *Server) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   s.opts.CookieDomain,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *Server) setTokenCookies(w http.ResponseWriter, t *services.TokenPair) {
	http.SetCookie(w, s.cookie(common.AccessTokenCookieName, t.AccessToken, int(s.opts.AccessTTL.Seconds())))
	http.SetCookie(w, s.cookie(common.RefreshTokenCookieName, t.RefreshToken, int(s.opts.RefreshTTL.Seconds())))
}

func (s *Server) clearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie(common.AccessTokenCookieName, "", -1))
	http.SetCookie(w, s.cookie(common.RefreshTokenCookieName, "", -1))
}
