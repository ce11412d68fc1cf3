package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sheshield/apiserver/config"
	"github.com/sheshield/apiserver/internal/db"
	"github.com/sheshield/apiserver/internal/handlers"
	"github.com/sheshield/apiserver/internal/mq"
	"github.com/sheshield/apiserver/internal/services"
	"github.com/sheshield/apiserver/internal/storage"
	"github.com/sheshield/apiserver/internal/store"
	"github.com/sheshield/apiserver/types"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.Auth.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	objectStore, err := openStorage(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		if broker != nil {
			_ = broker.Close()
		}
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	contactRepo := store.NewContactRepository(dbConn)
	reportRepo := store.NewReportRepository(dbConn)
	alertRepo := store.NewAlertRepository(dbConn)

	userService := services.NewUserService(userRepo)
	contactService := services.NewContactService(contactRepo)
	reportService := services.NewReportService(reportRepo, objectStore)
	alertService := services.NewAlertService(alertRepo, userRepo, contactRepo, broker, cfg.MQ.AlertChannel)

	authHandler := handlers.NewAuthHandler(userService, jwtSecret, cfg.Auth.TokenTTL)
	contactHandler := handlers.NewContactHandler(contactService)
	reportHandler := handlers.NewReportHandler(reportService)
	alertHandler := handlers.NewAlertHandler(alertService)
	adminHandler := handlers.NewAdminHandler(userService, reportService, alertService)

	requireAuth := handlers.RequireAuth(jwtSecret)
	requireAdmin := handlers.RequireRole(types.RoleAdmin)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authHandler)
		})
		r.Route("/contacts", func(r chi.Router) {
			r.Use(requireAuth)
			handlers.ContactRouter(r, contactHandler)
		})
		r.Route("/reports", func(r chi.Router) {
			r.Use(requireAuth)
			handlers.ReportRouter(r, reportHandler)
		})
		r.Route("/emergency", func(r chi.Router) {
			r.Use(requireAuth)
			handlers.AlertRouter(r, alertHandler)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			handlers.AdminRouter(r, adminHandler)
		})
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
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	return s.httpServer.Close()
}

func openStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	var backend storage.ObjectStorage

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case "", "none":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	wrapped := storage.NewStorage(backend)
	if err := wrapped.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return wrapped, nil
}
