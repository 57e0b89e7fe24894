package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	"parcelscope/internal/config"
	"parcelscope/internal/geometry"
	"parcelscope/internal/handler"
	"parcelscope/internal/parser"
	claudeparser "parcelscope/internal/parser/claude"
	geminiparser "parcelscope/internal/parser/gemini"
	openaiparser "parcelscope/internal/parser/openai"
	"parcelscope/internal/pdftext"
	"parcelscope/internal/port"
	"parcelscope/internal/router"
	"parcelscope/internal/service"
	localstorage "parcelscope/internal/storage/local"
	miniostorage "parcelscope/internal/storage/minio"
	s3storage "parcelscope/internal/storage/s3"
	"parcelscope/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Register parser providers
	parser.RegisterProvider("openai", func(c *config.ParserProviderConfig) (port.DocumentParser, error) {
		return openaiparser.NewParser(c), nil
	})
	parser.RegisterProvider("claude", func(c *config.ParserProviderConfig) (port.DocumentParser, error) {
		return claudeparser.NewParser(c), nil
	})
	parser.RegisterProvider("gemini", func(c *config.ParserProviderConfig) (port.DocumentParser, error) {
		return geminiparser.NewParser(c), nil
	})

	docParser, providerNames, err := parser.NewChain(&cfg.Parser)
	if err != nil {
		return fmt.Errorf("failed to initialize model client: %w", err)
	}
	if cfg.Parser.PrimaryConfig().APIKey == "" {
		log.Printf("WARNING: no model API key configured; analysis requests will fail")
	}

	// Initialize storage
	objectStorage, err := newObjectStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Backend, err)
	}

	docStore := store.NewDocumentStore(cfg.Upload.RetentionTTL, objectStorage)

	builder := parser.NewBuilder(parser.BuilderConfig{
		MaxImageDimension: cfg.Upload.MaxImageDimension,
		ResizeImageTo:     cfg.Upload.ResizeImageTo,
		MaxImagePixels:    cfg.Upload.MaxImagePixels,
	}, pdftext.NewExtractor(os.TempDir()))
	validator := geometry.NewValidator(cfg.Geometry)

	// Initialize services
	analysisSvc := service.NewAnalysisService(docStore, objectStorage, docParser, builder, validator, service.AnalysisServiceConfig{
		Bucket:       cfg.S3.Bucket,
		MaxFileSize:  cfg.Upload.MaxFileSizeBytes(),
		RetentionTTL: cfg.Upload.RetentionTTL,
	})

	expiryWorker := service.NewExpiryWorker(docStore, service.ExpiryWorkerConfig{
		SweepInterval: cfg.Upload.SweepInterval,
	})
	go expiryWorker.Start(ctx)

	// Initialize handlers
	analysisH := handler.NewAnalysisHandler(analysisSvc, cfg.Upload.MaxFileSizeBytes())
	healthH := handler.NewHealthHandler(analysisSvc, cfg.Server.Version, strings.Join(providerNames, ","))

	// Setup router
	r := router.Setup(analysisH, healthH, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s (storage=%s, model=%s)", cfg.Server.Port, cfg.Storage.Backend, strings.Join(providerNames, " -> "))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Printf("Server stopped")
	return nil
}

func newObjectStorage(ctx context.Context, cfg *config.Config) (port.ObjectStorage, error) {
	switch cfg.Storage.Backend {
	case "local":
		return localstorage.NewLocalStorage(cfg.Storage.LocalPath)
	case "s3":
		return s3storage.NewS3Client(&cfg.S3)
	case "minio":
		s, err := miniostorage.NewMinioClient(&cfg.S3)
		if err != nil {
			return nil, err
		}
		if err := miniostorage.EnsureBucket(ctx, s); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
