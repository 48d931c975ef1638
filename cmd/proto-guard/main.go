package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Francouer/proto-guard/internal/app"
	"github.com/Francouer/proto-guard/internal/infrastructure"
	interfaces "github.com/Francouer/proto-guard/internal/interface"
)

func main() {
	// Create context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Initialize dependencies
	logger := infrastructure.NewColorLogger()
	fileRepo := infrastructure.NewFileRepository(logger)
	configRepo := infrastructure.NewConfigRepository(logger, fileRepo)
	parser := app.NewSchemaParser(logger)
	validator := app.NewSchemaValidator(logger, fileRepo, parser)
	checker := app.NewCompatibilityChecker(logger, validator)
	watcher := infrastructure.NewSchemaWatcher(logger)
	renderer := interfaces.NewReportRenderer()

	// Initialize CLI handler
	cliHandler := interfaces.NewCLIHandler(
		validator,
		checker,
		watcher,
		renderer,
		configRepo,
		fileRepo,
		infrastructure.NewSQLiteHistoryRepository,
		logger,
	)

	// Create root command and execute
	rootCmd := cliHandler.CreateRootCommand()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}
