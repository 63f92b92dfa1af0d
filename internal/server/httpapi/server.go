// Package httpapi exposes the auth REST API: register, login, session check
// and the per-user KDF salt.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/zkvault/internal/logging"
	"github.com/dmitrijs2005/zkvault/internal/server/models"
	"github.com/dmitrijs2005/zkvault/internal/server/services"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 10 * time.Second

// UserService is what the handlers need from services.UserService.
type UserService interface {
	Register(ctx context.Context, userName, password string) (*services.Session, error)
	Login(ctx context.Context, userName, password string) (*services.Session, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	PutSalt(ctx context.Context, userID, salt string) error
	UserIDFromToken(token string) (string, error)
}

type HTTPServer struct {
	address  string
	users    UserService
	validate *validator.Validate
	logger   logging.Logger
}

func NewHTTPServer(address string, l logging.Logger, us UserService) *HTTPServer {
	return &HTTPServer{
		address:  address,
		users:    us,
		validate: validator.New(),
		logger:   l.With("module", "http_server"),
	}
}

// Router builds the mux router with all routes and middleware.
func (s *HTTPServer) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.loggerMiddleware)

	r.HandleFunc("/ping", s.ping).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)

	protected := api.PathPrefix("/users").Subrouter()
	protected.Use(s.authMiddleware)
	protected.HandleFunc("/me", s.me).Methods(http.MethodGet)
	protected.HandleFunc("/me/salt", s.putSalt).Methods(http.MethodPut)

	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *HTTPServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
