package cmd

import (
	"fmt"
	"os"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	cfgpkg "github.com/KaramelBytes/nearlimit-cli/internal/config"
	"github.com/KaramelBytes/nearlimit-cli/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	catalogPath string
	logFormat   string

	// Loaded configuration
	cfg    *cfgpkg.Global
	cfgErr error
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "nearlimit",
	Short: "nearlimit: synthetic water-quality datasets labelled near-limit",
	Long: `nearlimit generates synthetic water-quality samples for training a near-limit
classifier. The naive generator draws each parameter uniformly; the realistic
generator draws correlated samples from statistics measured at a site.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.nearlimit/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "YAML parameter catalog (overrides config; default is built in)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log encoding: console|json (overrides config)")
}

// setup loads .env, the configuration and the logger before any command.
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load .env: %v\n", err)
	}
	cfg, cfgErr = cfgpkg.Load(cfgFile)
	if cfgErr != nil {
		// Non-fatal: commands that need config report it via requireConfig
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", cfgErr)
	}

	level, format := "warn", "console"
	if cfg != nil {
		level, format = cfg.LogLevel, cfg.LogFormat
	}
	if debug {
		level = "debug"
	}
	if logFormat != "" {
		format = logFormat
	}
	l, err := logging.New(level, format)
	if err != nil {
		return err
	}
	logger = l
	logger.Debug("configuration loaded", zap.String("config", cfgFile), zap.Bool("ok", cfgErr == nil))
	return nil
}

func requireConfig() (*cfgpkg.Global, error) {
	if cfg == nil {
		if cfgErr != nil {
			return nil, fmt.Errorf("config not loaded: %w", cfgErr)
		}
		return nil, fmt.Errorf("config not loaded")
	}
	return cfg, nil
}

// loadCatalog returns the catalog from path, or the built-in one.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	logger.Debug("catalog loaded", zap.String("path", path))
	return c, nil
}

// activeCatalog resolves the --catalog flag and the catalog_path setting.
func activeCatalog() (*catalog.Catalog, error) {
	path := catalogPath
	if path == "" && cfg != nil {
		path = cfg.CatalogPath
	}
	return loadCatalog(path)
}
