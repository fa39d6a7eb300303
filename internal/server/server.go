package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/OkanBey11/ToDoApiWithGemini/config"
	_ "github.com/OkanBey11/ToDoApiWithGemini/docs"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/auth"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/db"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/handlers"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/logging"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/mq"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/services"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/storage"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/store"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	broker     *mq.MQ
	objects    *storage.Storage
	logger     logrus.FieldLogger
}

// New wires storage, services and routes from cfg.
func New(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	hasher, err := auth.NewPasswordHasher(cfg.Auth.PasswordHasher, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	signing := auth.SigningConfig{
		Secret:    []byte(cfg.Auth.JWTSecret),
		Algorithm: cfg.Auth.JWTAlgorithm,
	}
	issuer, err := auth.NewTokenIssuer(signing)
	if err != nil {
		return nil, err
	}
	verifier, err := auth.NewTokenVerifier(signing)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	srv := &Server{db: dbConn, logger: logger}
	if err := srv.wire(ctx, cfg, hasher, issuer, verifier); err != nil {
		_ = srv.close()
		return nil, err
	}
	return srv, nil
}

func (s *Server) wire(
	ctx context.Context,
	cfg config.Config,
	hasher *auth.PasswordHasher,
	issuer *auth.TokenIssuer,
	verifier *auth.TokenVerifier,
) error {
	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		return err
	}
	s.broker = broker

	var events *services.EventPublisher
	if broker != nil {
		events = services.NewEventPublisher(broker, cfg.MQ.EventsChannel, s.logger)
		s.logger.WithField("backend", cfg.MQ.Backend).Info("event publishing enabled")
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	s.objects = objects

	userRepo := store.NewUserRepository(s.db)
	taskRepo := store.NewTaskRepository(s.db)

	authenticator, err := services.NewAuthenticator(userRepo, hasher)
	if err != nil {
		return err
	}
	userService := services.NewUserService(userRepo, hasher, events)
	authService := services.NewAuthService(authenticator, issuer, cfg.Auth.TokenTTL)
	taskService := services.NewTaskService(taskRepo, events)

	var exportService *services.ExportService
	if objects != nil {
		exportService = services.NewExportService(taskRepo, objects)
		s.logger.WithFields(logrus.Fields{
			"backend": cfg.Storage.Backend,
			"bucket":  objects.Bucket(),
		}).Info("task exports enabled")
	}

	s.logger.WithFields(logrus.Fields{
		"password_hasher": hasher.Algorithm(),
		"token_ttl":       cfg.Auth.TokenTTL.String(),
	}).Info("authentication configured")

	authMiddleware := handlers.RequireAuth(verifier)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(s.logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz(s.db))
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, authService, authMiddleware)
	})
	router.Route("/todo", func(r chi.Router) {
		handlers.TaskRouter(r, taskService, authMiddleware)
		if exportService != nil {
			r.Route("/exports", func(r chi.Router) {
				handlers.ExportRouter(r, exportService, authMiddleware)
			})
		}
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the broker, object
// storage and the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.close())
}

func (s *Server) close() error {
	var errs []error
	if s.broker != nil {
		errs = append(errs, s.broker.Close())
	}
	if s.objects != nil {
		errs = append(errs, s.objects.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
