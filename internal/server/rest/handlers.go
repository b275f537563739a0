package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

const maxBodyBytes = 1 << 20

type idResponse struct {
	ID json.Number `json:"id"`
}

type userResponse struct {
	ID        json.Number `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (s *Server) welcome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, "welcome to auth service")
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) keySet(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(s.jwks)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Debug(r.Context(), "new request to register a user", "email", in.Email)

	sess, err := s.users.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setTokenCookies(w, sess.Tokens)
	writeJSON(w, http.StatusCreated, idResponse{ID: json.Number(sess.User.ID)})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decode(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.users.Login(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setTokenCookies(w, sess.Tokens)
	writeJSON(w, http.StatusOK, idResponse{ID: json.Number(sess.User.ID)})
}

func (s *Server) self(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.unauthorized(w, r)
		return
	}

	u, err := s.users.Self(r.Context(), claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:        json.Number(u.ID),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(common.RefreshTokenCookieName)
	if err != nil || c.Value == "" {
		s.unauthorized(w, r)
		return
	}

	sess, err := s.users.Refresh(r.Context(), c.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setTokenCookies(w, sess.Tokens)
	writeJSON(w, http.StatusOK, idResponse{ID: json.Number(sess.User.ID)})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.unauthorized(w, r)
		return
	}

	var refresh string
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		refresh = c.Value
	}

	if err := s.users.Logout(r.Context(), claims, refresh); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) logoutAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.unauthorized(w, r)
		return
	}

	n, err := s.users.LogoutAll(r.Context(), claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.clearTokenCookies(w)
	writeJSON(w, http.StatusOK, map[string]int64{"revoked": n})
}
