package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

type apiError struct {
	Type     string `json:"type"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

type errorBody struct {
	Errors []apiError `json:"errors"`
}

var errBadBody = errors.New("invalid request body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, errs ...apiError) {
	writeJSON(w, status, errorBody{Errors: errs})
}

func (s *Server) unauthorized(w http.ResponseWriter, _ *http.Request) {
	writeErrors(w, http.StatusUnauthorized, apiError{Type: "UnauthorizedError", Msg: "Unauthorized"})
}

// writeError maps a service error to a response. Causes of rejections are
// logged, never returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		out := make([]apiError, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			out = append(out, apiError{Type: "field", Msg: f.Msg, Path: f.Field, Location: "body"})
		}
		writeErrors(w, http.StatusBadRequest, out...)

	case errors.Is(err, errBadBody):
		writeErrors(w, http.StatusBadRequest, apiError{Type: "BadRequestError", Msg: "Invalid request body"})

	case errors.Is(err, services.ErrInvalidCredentials):
		writeErrors(w, http.StatusBadRequest, apiError{Type: "BadRequestError", Msg: "Email or password does not match"})

	case errors.Is(err, common.ErrAlreadyExists):
		writeErrors(w, http.StatusBadRequest, apiError{Type: "BadRequestError", Msg: "Email is already exists!"})

	case errors.Is(err, common.ErrValidation):
		writeErrors(w, http.StatusBadRequest, apiError{Type: "BadRequestError", Msg: "Invalid request"})

	case errors.Is(err, common.ErrStoreInvariant):
		s.logger.Error(r.Context(), "integrity anomaly, request rejected", "error", err, "path", r.URL.Path)
		s.unauthorized(w, r)

	case errors.Is(err, common.ErrUnauthorized):
		s.unauthorized(w, r)

	case errors.Is(err, common.ErrStoreTransient):
		s.logger.Warn(r.Context(), "store unavailable", "error", err, "path", r.URL.Path)
		writeErrors(w, http.StatusServiceUnavailable, apiError{Type: "ServiceUnavailableError", Msg: "Service temporarily unavailable"})

	default:
		s.logger.Error(r.Context(), "request failed", "error", err, "path", r.URL.Path)
		writeErrors(w, http.StatusInternalServerError, apiError{Type: "InternalServerError", Msg: "Internal server error"})
	}
}
