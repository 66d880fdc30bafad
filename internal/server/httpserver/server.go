// Package httpserver exposes the auth API over HTTP and maps service
// errors to status codes.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/msavelyev/authkeeper/internal/logging"
	"github.com/msavelyev/authkeeper/internal/server/auth"
	"github.com/msavelyev/authkeeper/internal/server/models"
	"github.com/msavelyev/authkeeper/internal/server/ratelimit"
	"github.com/msavelyev/authkeeper/internal/server/services"
)

// AuthService is the slice of the auth service the handlers call.
type AuthService interface {
	Register(ctx context.Context, email, username, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.AuthenticatedUser, error)
	Refresh(ctx context.Context, refreshToken string) (*services.AuthenticatedUser, error)
	Logout(ctx context.Context, refreshToken string) error
}

// VerificationService covers the email-verification endpoints.
type VerificationService interface {
	ResendVerificationEmail(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, token string) error
}

// PasswordService covers the reset and change-password endpoints.
type PasswordService interface {
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer   *http.Server
	router       *http.ServeMux
	auth         AuthService
	verification VerificationService
	passwords    PasswordService
	tokens       *auth.TokenService
	limiter      ratelimit.Limiter
	limitCfg     ratelimit.Config
	logger       logging.Logger
	addr         string
}

// NewServer constructs a Server with configured dependencies. A nil
// limiter disables rate limiting.
func NewServer(
	addr string,
	authService AuthService,
	verificationService VerificationService,
	passwordService PasswordService,
	tokens *auth.TokenService,
	limiter ratelimit.Limiter,
	limitCfg ratelimit.Config,
	logger logging.Logger,
) *Server {
	mux := http.NewServeMux()

	srv := &Server{
		router:       mux,
		auth:         authService,
		verification: verificationService,
		passwords:    passwordService,
		tokens:       tokens,
		limiter:      limiter,
		limitCfg:     limitCfg,
		logger:       logger,
		addr:         addr,
	}
	srv.httpServer = &http.Server{
		Addr:         addr,
		Handler:      srv.withLogging(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	srv.registerRoutes()
	return srv
}

// Start bootstraps the HTTP server on the configured address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying ServeMux, mainly for tests.
func (s *Server) Router() *http.ServeMux {
	return s.router
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}
