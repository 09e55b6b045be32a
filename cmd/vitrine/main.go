package main

import (
	"fmt"
	"os"
	"time"

	"vitrine/internal/config"
	"vitrine/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	baseURL    string
	timeout    time.Duration

	// Loaded in PersistentPreRunE
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "vitrine",
	Short: "vitrine - storefront cart from the terminal",
	Long: `vitrine drives a storefront cart: search the catalog, add products,
edit quantities, apply coupons and hand off to checkout.

Cart changes go through the storefront's /api/cart endpoints. The same
controller can be bound to a live page in Chrome with "vitrine browser open".

Run without arguments to start the interactive storefront.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		if err := logging.Initialize(cfg.Logging.Dir, cfg.Logging.Options()); err != nil {
			logger.Warn("category logging disabled", zap.Error(err))
		}
		logger.Debug("config loaded",
			zap.String("path", configPath),
			zap.String("base_url", cfg.Storefront.BaseURL),
			zap.Bool("category_logs", logging.IsDebugMode()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd, args)
	},
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		c.Storefront.BaseURL = baseURL
	}
	if verbose {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return c, nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Storefront URL (or set VITRINE_BASE_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for one-shot commands")

	// Cart flags
	addCmd.Flags().IntP("qty", "q", 1, "Quantity to add")
	addCmd.Flags().StringArrayP("option", "o", nil, "Product option as name=value (repeatable)")

	// History flags
	historyCmd.Flags().IntP("limit", "n", 20, "Number of entries to show")

	// Browser flags
	browserOpenCmd.Flags().Bool("show", false, "Show the browser window even if config says headless")

	// Config flags
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")

	// Subcommands
	browserCmd.AddCommand(browserOpenCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	// Add commands to root
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(couponCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(browserCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
