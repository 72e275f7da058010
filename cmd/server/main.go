package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ormd/internal/config"
	"ormd/internal/extract"
	"ormd/internal/handler"
	"ormd/internal/parser/vertex"
	"ormd/internal/preprocess"
	"ormd/internal/repository/postgres"
	"ormd/internal/router"
	"ormd/internal/service"
	s3storage "ormd/internal/storage/s3"
	"ormd/internal/validator"
	"ormd/internal/validator/sheet"
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

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	citizenRepo := postgres.NewCitizenRepo(db)
	serviceRepo := postgres.NewServiceRecordRepo(db)
	docRepo := postgres.NewScanDocumentRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Initialize the extraction pipeline
	docParser, err := vertex.NewParser(&cfg.Vertex)
	if err != nil {
		return fmt.Errorf("failed to initialize Vertex parser: %w", err)
	}
	extractor := extract.New(preprocess.New(cfg.Preprocess.TempDir), docParser)

	// Initialize services
	digitizeSvc := service.NewDigitizeService(docRepo, citizenRepo, serviceRepo, s3Client, extractor, &cfg.S3)
	registrySvc := service.NewRegistryService(citizenRepo, serviceRepo, docRepo)
	exportSvc := service.NewExportService(citizenRepo, serviceRepo)

	// Initialize handlers
	scanH := handler.NewScanHandler(digitizeSvc, validator.NewEngine(sheet.DefaultRegistry()))
	registryH := handler.NewRegistryHandler(registrySvc, exportSvc)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(cfg, scanH, registryH, healthH)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Extraction queue worker
	worker := service.NewExtractQueueWorker(docRepo, digitizeSvc, service.ExtractQueueConfig{
		PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		Concurrency:  cfg.Queue.Concurrency,
	})
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		stop()
		<-workerDone
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	<-workerDone

	return nil
}
