package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"invoicescan/internal/analyzer/ocidoc"
	"invoicescan/internal/config"
	"invoicescan/internal/handler"
	"invoicescan/internal/logger"
	"invoicescan/internal/normalizer"
	"invoicescan/internal/port"
	"invoicescan/internal/repository"
	"invoicescan/internal/router"
	"invoicescan/internal/service"
	s3storage "invoicescan/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := repository.Migrate(&cfg.DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	db, err := repository.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	invoiceRepo := repository.NewInvoiceRepo(db, repository.Flavor(cfg.DB.Driver))

	var archive port.ObjectStorage
	if cfg.Archive.Enabled() {
		archive, err = s3storage.NewArchiveClient(&cfg.Archive)
		if err != nil {
			return fmt.Errorf("failed to initialize archive client: %w", err)
		}
	}

	signer, err := ocidoc.NewSigner(&cfg.Analyzer)
	if err != nil {
		return fmt.Errorf("failed to initialize analyzer credentials: %w", err)
	}
	analyzerClient := ocidoc.NewClient(&cfg.Analyzer, signer)

	invoiceSvc := service.NewInvoiceService(invoiceRepo, analyzerClient, archive, service.ExtractionSettings{
		ConfidenceThreshold: cfg.Extraction.ConfidenceThreshold,
		Normalize: normalizer.Options{
			Strategy: cfg.Extraction.ConfidenceStrategy,
			Aliases:  normalizer.DefaultAliases,
		},
		ArchiveBucket: cfg.Archive.Bucket,
	}, zl.Named("invoice"))

	maxUpload := cfg.Extraction.MaxUploadSizeMB << 20
	invoiceH := handler.NewInvoiceHandler(invoiceSvc, maxUpload)
	healthH := handler.NewHealthHandler(db, cfg.DB.Driver)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.Setup(zl, cfg.CORS.AllowedOrigins, invoiceH, healthH)
	r.MaxMultipartMemory = maxUpload

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("db_driver", cfg.DB.Driver),
			zap.Bool("archive", cfg.Archive.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-stop:
		zl.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
