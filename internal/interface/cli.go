package interfaces

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Francouer/proto-guard/internal/domain"
)

type CLIHandler struct {
	validator   domain.SchemaValidator
	checker     domain.CompatibilityChecker
	watcher     domain.SchemaWatcher
	renderer    domain.ReportRenderer
	configRepo  domain.ConfigRepository
	fileRepo    domain.FileRepository
	openHistory domain.HistoryOpener
	logger      domain.Logger
}

// NewCLIHandler creates a new CLI handler
func NewCLIHandler(
	validator domain.SchemaValidator,
	checker domain.CompatibilityChecker,
	watcher domain.SchemaWatcher,
	renderer domain.ReportRenderer,
	configRepo domain.ConfigRepository,
	fileRepo domain.FileRepository,
	openHistory domain.HistoryOpener,
	logger domain.Logger,
) *CLIHandler {
	return &CLIHandler{
		validator:   validator,
		checker:     checker,
		watcher:     watcher,
		renderer:    renderer,
		configRepo:  configRepo,
		fileRepo:    fileRepo,
		openHistory: openHistory,
		logger:      logger,
	}
}

// commonOptions are shared by every command that runs checks.
type commonOptions struct {
	configPath    string
	format        string
	historyDB     string
	strict        bool
	noNamingCheck bool
}

// CreateRootCommand creates the root cobra command
func (c *CLIHandler) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "proto-guard",
		Short: "A CLI tool to validate protobuf schemas and guard against breaking changes",
		Long: `Proto Guard parses .proto files without a protoc toolchain, validates them
against protobuf rules and style conventions, and compares schema versions
to catch wire-compatibility breakage before it ships.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(c.createValidateCommand())
	rootCmd.AddCommand(c.createCheckCompatCommand())
	rootCmd.AddCommand(c.createWatchCommand())
	rootCmd.AddCommand(c.createHistoryCommand())

	return rootCmd
}

func (c *CLIHandler) addCommonFlags(cmd *cobra.Command, opts *commonOptions) {
	defaultConfig := getEnvOrDefault("PROTO_GUARD_CONFIG", "")
	defaultHistoryDB := getEnvOrDefault("PROTO_GUARD_HISTORY_DB", "")
	defaultFormat := getEnvOrDefault("PROTO_GUARD_FORMAT", "")

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", defaultConfig, "Path to config file (default: built-in defaults)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", defaultFormat, "Report format: text, json or markdown (default: from config)")
	cmd.Flags().StringVar(&opts.historyDB, "history-db", defaultHistoryDB, "Record checks in this SQLite database")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Treat warnings as errors")
	cmd.Flags().BoolVar(&opts.noNamingCheck, "no-naming-check", false, "Skip naming convention checks")
}

// loadConfig resolves the effective configuration from file and flags.
func (c *CLIHandler) loadConfig(opts *commonOptions) (*domain.Config, error) {
	cfg, err := c.configRepo.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.strict {
		cfg.Validator.StrictMode = true
	}
	if opts.noNamingCheck {
		cfg.Validator.CheckNamingConventions = false
	}
	if opts.format != "" {
		cfg.Output.Format = opts.format
	}
	if opts.historyDB != "" {
		cfg.History.Path = opts.historyDB
	}
	return cfg, nil
}

func (c *CLIHandler) createValidateCommand() *cobra.Command {
	opts := &commonOptions{}
	var outputPath string

	cmd := &cobra.Command{
		Use:   "validate <proto-file>",
		Short: "Validate a proto file against protobuf rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.handleValidate(cmd.Context(), args[0], opts, outputPath)
		},
	}

	c.addCommonFlags(cmd, opts)
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the report to this file instead of stdout")

	return cmd
}

func (c *CLIHandler) createCheckCompatCommand() *cobra.Command {
	opts := &commonOptions{}
	var outputPath string

	cmd := &cobra.Command{
		Use:   "check-compat <old-proto> <new-proto>",
		Short: "Compare two schema versions for breaking changes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.handleCheckCompat(cmd.Context(), args[0], args[1], opts, outputPath)
		},
	}

	c.addCommonFlags(cmd, opts)
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the report to this file instead of stdout")

	return cmd
}

func (c *CLIHandler) createWatchCommand() *cobra.Command {
	opts := &commonOptions{}
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <directory>",
		Short: "Watch a directory and revalidate proto files on change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.handleWatch(cmd.Context(), args[0], opts, debounce)
		},
	}

	c.addCommonFlags(cmd, opts)
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before revalidating (default: from config)")

	return cmd
}

func (c *CLIHandler) createHistoryCommand() *cobra.Command {
	opts := &commonOptions{}
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent validation and compatibility checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.handleHistory(cmd.Context(), opts, limit)
		},
	}

	c.addCommonFlags(cmd, opts)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show")

	return cmd
}

func (c *CLIHandler) handleValidate(ctx context.Context, path string, opts *commonOptions, outputPath string) error {
	cfg, err := c.loadConfig(opts)
	if err != nil {
		return err
	}

	result := c.validator.ValidateFile(ctx, path, &cfg.Validator)

	report, err := c.renderer.RenderValidation(&result, cfg.Output.Format)
	if err != nil {
		return err
	}
	if err := c.emit(report, outputPath); err != nil {
		return err
	}

	c.recordCheck(ctx, cfg.History.Path, &domain.CheckRecord{
		Kind:         domain.CheckKindValidate,
		FilePath:     path,
		Success:      result.IsValid,
		ErrorCount:   result.ErrorCount(),
		WarningCount: result.WarningCount(),
	})

	if !result.IsValid {
		return fmt.Errorf("validation failed with %d error(s)", result.ErrorCount())
	}
	c.logger.Success("%s is valid", path)
	return nil
}

func (c *CLIHandler) handleCheckCompat(ctx context.Context, oldPath, newPath string, opts *commonOptions, outputPath string) error {
	cfg, err := c.loadConfig(opts)
	if err != nil {
		return err
	}

	result := c.checker.Check(ctx, oldPath, newPath, &cfg.Validator)

	report, err := c.renderer.RenderCompatibility(&result, cfg.Output.Format)
	if err != nil {
		return err
	}
	if err := c.emit(report, outputPath); err != nil {
		return err
	}

	c.recordCheck(ctx, cfg.History.Path, &domain.CheckRecord{
		Kind:          domain.CheckKindCompat,
		FilePath:      oldPath,
		TargetPath:    newPath,
		Success:       result.IsCompatible,
		WarningCount:  len(result.Warnings),
		BreakingCount: result.BreakingChangeCount(),
		Level:         string(result.Level),
	})

	if !result.IsCompatible {
		return fmt.Errorf("schemas are incompatible: %d breaking change(s)", result.BreakingChangeCount())
	}
	c.logger.Success("%s is compatible with %s (level: %s)", newPath, oldPath, result.Level)
	return nil
}

func (c *CLIHandler) handleWatch(ctx context.Context, dir string, opts *commonOptions, debounce time.Duration) error {
	cfg, err := c.loadConfig(opts)
	if err != nil {
		return err
	}
	if debounce > 0 {
		cfg.Watch.DebounceInterval = debounce
	}

	var store domain.HistoryRepository
	if cfg.History.Path != "" {
		store, err = c.openHistory(cfg.History.Path)
		if err != nil {
			c.logger.Warning("history disabled: %v", err)
		} else {
			defer store.Close()
		}
	}

	check := func(path string) error {
		result := c.validator.ValidateFile(ctx, path, &cfg.Validator)
		if result.IsValid {
			c.logger.Success("%s is valid (%d warning(s))", path, result.WarningCount())
		} else {
			c.logger.Error("%s has %d error(s)", path, result.ErrorCount())
			report, err := c.renderer.RenderValidation(&result, cfg.Output.Format)
			if err != nil {
				return err
			}
			fmt.Println(report)
		}
		if store != nil {
			record := domain.CheckRecord{
				Kind:         domain.CheckKindValidate,
				FilePath:     path,
				Success:      result.IsValid,
				ErrorCount:   result.ErrorCount(),
				WarningCount: result.WarningCount(),
			}
			if err := store.Save(ctx, &record); err != nil {
				c.logger.Warning("failed to record check: %v", err)
			}
		}
		return nil
	}

	// Validate what is already there before waiting for changes.
	files, err := c.fileRepo.ListFiles(dir, "")
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	c.logger.Info("validating %d existing proto file(s) in %s", len(files), dir)
	for _, file := range files {
		if err := check(file.Path); err != nil {
			return err
		}
	}

	return c.watcher.Watch(ctx, dir, cfg.Watch, check)
}

func (c *CLIHandler) handleHistory(ctx context.Context, opts *commonOptions, limit int) error {
	cfg, err := c.loadConfig(opts)
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return fmt.Errorf("no history database configured. Use --history-db or set history.path in the config file")
	}

	store, err := c.openHistory(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	records, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		c.logger.Info("no recorded checks")
		return nil
	}

	for _, rec := range records {
		status := "ok"
		if !rec.Success {
			status = "failed"
		}
		switch rec.Kind {
		case domain.CheckKindCompat:
			fmt.Printf("%s  %-8s  %-6s  %s -> %s  (%d breaking, level %s)\n",
				rec.CreatedAt.Format(time.RFC3339), rec.Kind, status,
				rec.FilePath, rec.TargetPath, rec.BreakingCount, rec.Level)
		default:
			fmt.Printf("%s  %-8s  %-6s  %s  (%d error(s), %d warning(s))\n",
				rec.CreatedAt.Format(time.RFC3339), rec.Kind, status,
				rec.FilePath, rec.ErrorCount, rec.WarningCount)
		}
	}

	return nil
}

// emit writes the report to a file when requested, stdout otherwise.
// The output directory is created on demand.
func (c *CLIHandler) emit(report, outputPath string) error {
	if outputPath == "" {
		fmt.Println(report)
		return nil
	}
	if err := c.fileRepo.CreateDir(filepath.Dir(outputPath)); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", outputPath, err)
	}
	if err := c.fileRepo.WriteFile(outputPath, []byte(report)); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", outputPath, err)
	}
	c.logger.Info("report written to %s", outputPath)
	return nil
}

// recordCheck best-effort persists one record; a broken history store
// never fails the actual check.
func (c *CLIHandler) recordCheck(ctx context.Context, dbPath string, record *domain.CheckRecord) {
	if dbPath == "" {
		return
	}
	store, err := c.openHistory(dbPath)
	if err != nil {
		c.logger.Warning("history disabled: %v", err)
		return
	}
	defer store.Close()

	if err := store.Save(ctx, record); err != nil {
		c.logger.Warning("failed to record check: %v", err)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
