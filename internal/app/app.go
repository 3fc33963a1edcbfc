// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vish4lsharma/extractor/internal/config"
	"github.com/vish4lsharma/extractor/internal/core/extraction_engine"
	"github.com/vish4lsharma/extractor/internal/core/extractors"
	objectclient "github.com/vish4lsharma/extractor/internal/core/object-client"
	"github.com/vish4lsharma/extractor/internal/core/scanner"
	"github.com/vish4lsharma/extractor/internal/core/taskstore"
	"github.com/vish4lsharma/extractor/internal/services"
)

type App struct {
	Engine  *extraction_engine.Engine
	Service *services.DocumentService
	Server  *Server
	log     zerolog.Logger
}

// NewRegistry wires the three production extractors.
func NewRegistry(cfg *config.Config, log zerolog.Logger) *extractors.Registry {
	return extractors.NewRegistry(
		extractors.NewPDFExtractor(log),
		extractors.NewImageExtractor(extractors.NewTesseractEngine(cfg.OCRLanguages)),
		extractors.NewSpreadsheetExtractor(),
	)
}

// NewApp builds every component and starts the extraction workers on ctx.
// The S3 mirror and the malware scanner are only wired when configured.
func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	store := taskstore.New()
	registry := NewRegistry(cfg, log)

	engine := extraction_engine.NewEngine(store, registry, extraction_engine.EngineConfig{
		QueueSize:      cfg.QueueSize,
		ExtractTimeout: cfg.ExtractTimeout,
	}, log)

	var opts []services.ServiceOption
	if cfg.MirrorEnabled() {
		objClient, err := objectclient.NewS3Client(appCtx, cfg)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the object client: %w", err)
		}
		opts = append(opts, services.WithObjectStorage(objClient))
		log.Info().Str("bucket", cfg.BucketName).Msg("object storage mirror enabled")
	}
	if cfg.ClamdAddress != "" {
		sc, err := scanner.NewClamdScanner(cfg.ClamdAddress)
		if err != nil {
			return nil, err
		}
		opts = append(opts, services.WithScanner(sc))
		log.Info().Str("address", cfg.ClamdAddress).Msg("malware scanning enabled")
	}

	svc := services.NewDocumentService(engine, store, registry, cfg.UploadDir, log, opts...)
	engine.Start(ctx, cfg.Workers)

	return &App{
		Engine:  engine,
		Service: svc,
		Server:  NewServer(cfg, svc, log),
		log:     log,
	}, nil
}

// Close stops the HTTP server, fails whatever is still queued and removes
// every remaining backing file.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if err := a.Engine.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	a.Service.Close()
	a.log.Info().Msg("application stopped")
	return firstErr
}
