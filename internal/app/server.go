package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/vish4lsharma/extractor/internal/api/handlers"
	appMiddleware "github.com/vish4lsharma/extractor/internal/api/middlewares"
	"github.com/vish4lsharma/extractor/internal/config"
	"github.com/vish4lsharma/extractor/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// NewRouter builds the chi router with every route wired.
func NewRouter(cfg *config.Config, svc *services.DocumentService, log zerolog.Logger) http.Handler {
	docHandler := handlers.NewDocumentHandler(svc, cfg.MaxUploadMB, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(appMiddleware.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CorsOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", docHandler.Health)
	r.Get("/formats", docHandler.Formats)
	r.Post("/upload", docHandler.UploadDocument)
	r.Get("/status/{id}", docHandler.GetStatus)

	r.Route("/tasks", func(tasks chi.Router) {
		tasks.Get("/", docHandler.ListTasks)
		tasks.Route("/{id}", func(task chi.Router) {
			task.Delete("/", docHandler.DeleteTask)
			task.Get("/pages/{page}", docHandler.GetPage)
			task.Get("/sheets/{name}", docHandler.GetSheet)
			task.Get("/chunks", docHandler.GetChunks)
		})
	})

	return r
}

// NewServer binds the router to the configured port.
func NewServer(cfg *config.Config, svc *services.DocumentService, log zerolog.Logger) *Server {
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, svc, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
