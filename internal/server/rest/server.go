// Package rest exposes the auth service over HTTP: registration, login,
// refresh, logout, the current identity and the public key set.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const shutdownTimeout = 10 * time.Second

// UserService is the subset of services.UserService the handlers use.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.Session, error)
	Login(ctx context.Context, in services.LoginInput) (*services.Session, error)
	Self(ctx context.Context, claims *auth.AccessClaims) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*services.Session, error)
	Logout(ctx context.Context, claims *auth.AccessClaims, refreshToken string) error
	LogoutAll(ctx context.Context, claims *auth.AccessClaims) (int64, error)
}

// Options controls cookies and per-request limits.
type Options struct {
	CookieDomain string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	// RequestTimeout bounds each request, store calls included. Zero
	// disables it.
	RequestTimeout time.Duration
}

type Server struct {
	address  string
	users    UserService
	verifier *auth.Verifier
	jwks     []byte
	opts     Options
	logger   logging.Logger
}

func NewServer(a string, l logging.Logger, us UserService, v *auth.Verifier, jwks []byte, o Options) *Server {
	return &Server{
		address:  a,
		users:    us,
		verifier: v,
		jwks:     jwks,
		opts:     o,
		logger:   l.With("module", "http_server"),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	if s.opts.RequestTimeout > 0 {
		r.Use(requestDeadline(s.opts.RequestTimeout))
	}

	r.Get("/", s.welcome)
	r.Get("/healthz", s.healthz)
	r.Get("/.well-known/jwks.json", s.keySet)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Post("/refresh", s.refresh)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.verifier, s.unauthorized))
			r.Get("/self", s.self)
			r.Post("/logout", s.logout)
			r.Post("/logout/all", s.logoutAll)
		})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestDeadline bounds the request context only. Handlers report an expired
// deadline themselves (as ErrStoreTransient), so nothing is written here.
func requestDeadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
