package server

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"warp-ledger/internal/config"
	"warp-ledger/internal/errors"
	"warp-ledger/internal/handler"
	"warp-ledger/internal/repository"
	"warp-ledger/internal/service"
)

const requestIDHeader = "X-Request-ID"

// Server represents the HTTP server
type Server struct {
	router *mux.Router
	server *http.Server
	db     *sql.DB
	logger *slog.Logger
	port   string
}

// NewServer opens the configured database, initializes the schema and wires the routes.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := repository.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Successfully connected to database", "driver", cfg.DBDriver)

	store := repository.NewStore(db, cfg.DBDriver, logger)
	if err := store.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	services := service.New(store, cfg.Ledger(), logger)

	return &Server{
		router: NewRouter(services, store, cfg.AdminToken, logger),
		db:     db,
		logger: logger,
	}, nil
}

// NewRouter builds the HTTP routes over the ledger services.
func NewRouter(services *service.Services, store *repository.Store, adminToken string, logger *slog.Logger) *mux.Router {
	accountHandler := handler.NewAccountHandler(services.Queries, services.Transactions)
	transactionHandler := handler.NewTransactionHandler(services.Transactions)
	adminHandler := handler.NewAdminHandler(services.Transactions, services.Reconciliation)

	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware(logger))

	// Account routes
	router.HandleFunc("/accounts/{user_id}/balance", accountHandler.GetBalance).Methods("GET")
	router.HandleFunc("/accounts/{user_id}/transactions", accountHandler.GetRecentTransactions).Methods("GET")
	router.HandleFunc("/accounts/{user_id}/daily", accountHandler.ClaimDaily).Methods("POST")
	router.HandleFunc("/leaderboard", accountHandler.TopBalances).Methods("GET")

	// Transaction routes
	router.HandleFunc("/transfers", transactionHandler.Transfer).Methods("POST")

	// Admin routes
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(adminMiddleware(adminToken))
	admin.HandleFunc("/accounts/{user_id}/grants", adminHandler.Grant).Methods("POST")
	admin.HandleFunc("/accounts/{user_id}/balance", adminHandler.SetBalance).Methods("PUT")
	admin.HandleFunc("/backfill", adminHandler.Backfill).Methods("POST")
	admin.HandleFunc("/reconciliation", adminHandler.Reconciliation).Methods("GET")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		// Check database connectivity in health check
		if err := store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	return router
}

// requestIDMiddleware echoes the caller's request id or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Create response wrapper to capture status code
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"request_id", r.Header.Get(requestIDHeader),
			)
		})
	}
}

// adminMiddleware guards moderator routes with a bearer token. An empty token leaves them open,
// for deployments where the chat layer already checked permissions.
func adminMiddleware(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				got := r.Header.Get("Authorization")
				want := "Bearer " + token
				if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
					handler.WriteError(w, errors.ErrUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	// Get the actual port being used
	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed", "error", err)
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server, then closes the database.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}

	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// NewLogger returns the JSON stdout logger, or a discarding one when the server runs on an ephemeral test port.
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.ServerPort == "0" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	server, err := NewServer(cfg, NewLogger(cfg))
	if err != nil {
		return nil, "", err
	}

	// Start the server and get the actual port
	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.Stop(context.Background())
		return nil, "", err
	}

	return server, port, nil
}
