package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fyle-integrations/business-central-worker/internal/config"
	"github.com/fyle-integrations/business-central-worker/internal/database"
	"github.com/fyle-integrations/business-central-worker/internal/dynamics"
	"github.com/fyle-integrations/business-central-worker/internal/fyle"
	"github.com/fyle-integrations/business-central-worker/internal/repository"
	"github.com/fyle-integrations/business-central-worker/internal/service"
	"github.com/fyle-integrations/business-central-worker/internal/watcher"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	if err := run(); err != nil {
		logrus.WithError(err).Fatal("Application error")
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	logrus.Info("Database connected successfully")

	// Run migrations
	logrus.Info("Running database migrations...")
	if err := database.RunMigrations(db); err != nil {
		return err
	}
	logrus.Info("Migrations completed successfully")

	// Initialize repositories
	workspaceRepo := repository.NewWorkspaceRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	exportRepo := repository.NewAccountingExportRepository(db)
	errorRepo := repository.NewErrorRepository(db)
	mappingRepo := repository.NewMappingRepository(db)
	importLogRepo := repository.NewImportLogRepository(db)

	// Initialize clients
	fyleClient := fyle.NewClient(cfg.FyleClientID, cfg.FyleClientSecret)
	connectorFactory := service.NewDynamicsFactory(dynamics.Config{
		ClientID:     cfg.BusinessCentralClientID,
		ClientSecret: cfg.BusinessCentralClientSecret,
		Environment:  cfg.BusinessCentralEnvironment,
	})

	// Initialize services
	transactor := service.NewGormTransactor(db)
	validator := service.NewValidator(mappingRepo, errorRepo)
	resolver := service.NewResolver(mappingRepo)
	dimensionImporter := service.NewDimensionImporter(workspaceRepo, mappingRepo, connectorFactory)
	exporter := service.NewExporter(
		workspaceRepo, settingsRepo, exportRepo, errorRepo,
		validator, resolver, fyleClient, connectorFactory,
		dimensionImporter, transactor,
	)
	expenseImporter := service.NewExpenseImporter(workspaceRepo, settingsRepo, exportRepo, fyleClient, transactor)
	attributeImporter := service.NewAttributeImporter(workspaceRepo, settingsRepo, mappingRepo, importLogRepo, errorRepo, fyleClient)
	runner := service.NewImportExportRunner(settingsRepo, exportRepo, attributeImporter, expenseImporter, exporter)

	// Initialize watcher
	w := watcher.New(cfg, settingsRepo, runner)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start watcher in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Start(ctx)
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		logrus.Info("Shutdown signal received")
		cancel()

		// Wait for graceful shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		select {
		case <-shutdownCtx.Done():
			logrus.Warn("Shutdown timeout exceeded")
		case err := <-errChan:
			if err != nil && err != context.Canceled {
				logrus.WithError(err).Error("Watcher error")
			}
		}

		logrus.Info("Application stopped")
		return nil

	case err := <-errChan:
		return err
	}
}
