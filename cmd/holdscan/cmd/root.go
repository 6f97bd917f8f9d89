package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/config"
	"github.com/MeKo-Tech/holdscan/internal/matcher"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by one command tree: the configuration
// resolved in PersistentPreRunE and the logger built from it.
type app struct {
	cfgFile string
	loader  *config.Loader
	cfg     *config.Config
	logger  *slog.Logger
}

// NewRootCmd builds a fresh command tree. Each call gets its own viper
// instance, so trees never share flag bindings.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "holdscan",
		Short: "Recognize asset holdings on OCR'd account pages",
		Long: `holdscan reads the OCR text regions of a holdings screenshot, finds the
product names and amounts on the page and matches each product against the
user's asset catalog.

This tool provides:
- Row and column layout analysis with automatic fallback
- Fuzzy catalog matching with confirm and display thresholds
- Batch processing, an HTTP API and a Redis-backed job queue
- Accuracy evaluation against labelled datasets

Examples:
  holdscan recognize page.json
  holdscan batch pages/ --recursive --format csv
  holdscan serve --port 8080`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/holdscan, /etc/holdscan)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("vocabulary", "", "vocabulary override file (YAML)")
	cmd.PersistentFlags().String("catalog-driver", "", "catalog backend: memory, file, mongo, postgres or redis")
	cmd.PersistentFlags().String("catalog-file", "", "catalog file for the file driver")

	cmd.AddCommand(
		newRecognizeCmd(a),
		newBatchCmd(a),
		newServeCmd(a),
		newWorkerCmd(a),
		newEnqueueCmd(a),
		newEvalCmd(a),
		newConfigCmd(a),
	)

	return cmd
}

// persistentBindings maps viper keys to root flags.
var persistentBindings = map[string]string{
	"verbose":         "verbose",
	"log_level":       "log-level",
	"vocabulary_file": "vocabulary",
	"catalog.driver":  "catalog-driver",
	"catalog.file":    "catalog-file",
}

func (a *app) init(cmd *cobra.Command) error {
	v := viper.New()
	flags := cmd.Root().PersistentFlags()
	for key, name := range persistentBindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	a.loader = config.NewLoaderWithViper(v)
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg

	// Logs go to stderr so they never mix with results on stdout.
	a.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel(cfg),
	}))
	slog.SetDefault(a.logger)
	return nil
}

func logLevel(cfg *config.Config) slog.Level {
	// Check verbose flag first for backward compatibility
	if cfg.Verbose {
		return slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// engine builds a recognizer from the resolved configuration, applying any
// policy flags set on cmd.
func (a *app) engine(cmd *cobra.Command) (*recognizer.Engine, error) {
	opts, err := a.cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	engine := recognizer.New(append(opts, recognizer.WithLogger(a.logger))...)

	policy, err := policyOverrides(cmd).Apply(engine.Policy())
	if err != nil {
		return nil, err
	}
	return engine.WithPolicy(policy), nil
}

func (a *app) openStore(ctx context.Context) (catalog.Store, error) {
	store, err := catalog.Open(ctx, a.cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return store, nil
}

func (a *app) closeStore(store catalog.Store) {
	if err := store.Close(context.Background()); err != nil {
		a.logger.Warn("Failed to close catalog", "error", err)
	}
}

// addPolicyFlags registers the matcher threshold flags. Only flags the user
// sets override the configured policy.
func addPolicyFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("confirm-threshold", 0, "score at which a match is confirmed")
	cmd.Flags().Float64("min-threshold", 0, "score below which a match is discarded")
	cmd.Flags().Float64("min-display-threshold", 0, "score below which a match is suppressed")
	cmd.Flags().Int("max-results", 0, "maximum number of holdings reported per page")
}

func policyOverrides(cmd *cobra.Command) *matcher.Overrides {
	if cmd.Flags().Lookup("confirm-threshold") == nil {
		return nil
	}

	o := &matcher.Overrides{}
	set := false
	floatFlag := func(name string, dst **float64) {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetFloat64(name)
			*dst = &v
			set = true
		}
	}
	floatFlag("confirm-threshold", &o.ConfirmThreshold)
	floatFlag("min-threshold", &o.MinThreshold)
	floatFlag("min-display-threshold", &o.MinDisplayThreshold)
	if cmd.Flags().Changed("max-results") {
		v, _ := cmd.Flags().GetInt("max-results")
		o.MaxResults = &v
		set = true
	}

	if !set {
		return nil
	}
	return o
}

// outputSettings resolves --format and --output against the output config.
func (a *app) outputSettings(cmd *cobra.Command) (string, string) {
	format := a.cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	output := a.cfg.Output.File
	if cmd.Flags().Changed("output") {
		output, _ = cmd.Flags().GetString("output")
	}
	return format, output
}
