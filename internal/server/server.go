package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/globalbank/globalbank-be/internal/auth"
	"github.com/globalbank/globalbank-be/internal/bank"
	"github.com/globalbank/globalbank-be/internal/config"
	"github.com/globalbank/globalbank-be/internal/http/handlers"
	"github.com/globalbank/globalbank-be/internal/middleware"
	"github.com/globalbank/globalbank-be/internal/mining"
	"github.com/globalbank/globalbank-be/internal/models"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, bankSvc *bank.Service, miner *mining.Miner, tokens *auth.TokenManager) *Server {
	router := Router(bankSvc, miner, tokens)
	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(router))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Router builds the route tree: public auth endpoints, an authenticated
// /api subrouter, and a role-gated /api/admin subrouter.
func Router(bankSvc *bank.Service, miner *mining.Miner, tokens *auth.TokenManager) *mux.Router {
	router := mux.NewRouter()

	handlers.NewHealthHandler(time.Now()).Register(router)

	authHandler := handlers.NewAuthHandler(bankSvc, tokens)
	authHandler.Register(router)

	secured := router.PathPrefix("/api").Subrouter()
	secured.Use(middleware.Authenticate(tokens))
	authHandler.RegisterSecured(secured)
	handlers.NewCustomerHandler(bankSvc).Register(secured)

	admin := secured.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	handlers.NewAdminHandler(bankSvc, miner).Register(admin)

	return router
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
