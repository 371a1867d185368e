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

	"silkroute/internal/config"
	"silkroute/internal/email/noop"
	"silkroute/internal/email/ses"
	"silkroute/internal/handler"
	"silkroute/internal/ocr"
	"silkroute/internal/port"
	"silkroute/internal/repository/postgres"
	"silkroute/internal/router"
	"silkroute/internal/service"
	s3storage "silkroute/internal/storage/s3"

	// Register the OCR providers with the factory.
	_ "silkroute/internal/ocr/azure"
	_ "silkroute/internal/ocr/tesseract"
	_ "silkroute/internal/ocr/vision"
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
	userRepo := postgres.NewUserRepo(db)
	shipmentRepo := postgres.NewShipmentRepo(db)
	documentRepo := postgres.NewDocumentRepo(db)
	templateRepo := postgres.NewTemplateRepo(db)
	declarationRepo := postgres.NewDeclarationRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Initialize the OCR provider chain
	ocrProvider, err := ocr.NewChain(cfg.OCR.Chain())
	if err != nil {
		return fmt.Errorf("failed to initialize OCR providers: %w", err)
	}

	// Initialize email delivery
	var emailSender port.EmailSender
	switch cfg.Email.Provider {
	case "ses":
		emailSender, err = ses.NewSESSender(cfg.Email.Region, cfg.Email.FromAddress, cfg.Email.FromName, cfg.Email.FrontendURL)
		if err != nil {
			return fmt.Errorf("failed to initialize SES sender: %w", err)
		}
	default:
		emailSender = noop.NewNoopSender()
	}

	// Initialize services
	authSvc := service.NewAuthService(userRepo, cfg.JWT)
	shipmentSvc := service.NewShipmentService(shipmentRepo, documentRepo, s3Client)
	templateSvc := service.NewTemplateService(templateRepo)
	documentSvc := service.NewDocumentService(
		documentRepo, shipmentRepo, templateRepo,
		s3Client, ocrProvider,
		cfg.S3, cfg.Engine, cfg.OCR.Preprocess,
	)
	declarationSvc := service.NewDeclarationService(
		declarationRepo, shipmentRepo, documentRepo,
		templateRepo, userRepo, emailSender,
	)

	// Initialize handlers
	authH := handler.NewAuthHandler(authSvc)
	shipmentH := handler.NewShipmentHandler(shipmentSvc)
	documentH := handler.NewDocumentHandler(documentSvc)
	templateH := handler.NewTemplateHandler(templateSvc)
	declarationH := handler.NewDeclarationHandler(declarationSvc)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(authSvc, cfg.CORS.AllowedOrigins, authH, shipmentH, documentH, templateH, declarationH, healthH)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the extraction queue worker
	worker := service.NewExtractionQueueWorker(documentRepo, documentSvc, service.ExtractionQueueConfig{
		PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		MaxRetries:   cfg.Queue.MaxRetries,
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

	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	// Wait for in-flight extractions to finish
	<-workerDone

	return nil
}
