package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fastship/backend/config"
	"github.com/fastship/backend/internal/db"
	"github.com/fastship/backend/internal/handlers"
	"github.com/fastship/backend/internal/mq"
	"github.com/fastship/backend/internal/notify"
	"github.com/fastship/backend/internal/revocation"
	"github.com/fastship/backend/internal/services"
	"github.com/fastship/backend/internal/store"
	"github.com/fastship/backend/internal/token"
)

// Server wraps the HTTP server and its external connections.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	redis      *revocation.RedisKV
	queue      mq.Queue
}

// New constructs a Server with all dependencies wired.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	redisKV, err := revocation.NewRedisKV(ctx, cfg.Redis)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	queue, err := mq.Connect(ctx, cfg.Queue)
	if err != nil {
		_ = redisKV.Close()
		_ = dbConn.Close()
		return nil, fmt.Errorf("connect queue: %w", err)
	}

	tokens := token.NewService(cfg.JWTSecret)
	signer := token.NewSigner(cfg.JWTSecret)
	revoked := revocation.NewStore(redisKV)

	hub := notify.NewHub()
	dispatcher := notify.NewDispatcher(hub, queue, logger)

	userRepo := store.NewUserRepository(dbConn)
	shipmentRepo := store.NewShipmentRepository(dbConn)

	userService := services.NewUserService(userRepo, tokens, signer, dispatcher)
	shipmentService := services.NewShipmentService(shipmentRepo, userRepo, dispatcher)

	guard := handlers.NewGuard(tokens, revoked)
	userHandler := handlers.NewUserHandler(userService, shipmentService, revoked, guard)
	shipmentHandler := handlers.NewShipmentHandler(shipmentService, userService)
	wsHandler := handlers.NewWSHandler(guard, hub, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/ws", wsHandler.Serve)
	router.Group(func(r chi.Router) {
		handlers.UserRouter(r, userHandler)
	})
	router.Route("/shipments", func(r chi.Router) {
		handlers.ShipmentRouter(r, shipmentHandler, guard)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		db:         dbConn,
		redis:      redisKV,
		queue:      queue,
	}, nil
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown closes the server and its external connections.
func (s *Server) Shutdown() error {
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
