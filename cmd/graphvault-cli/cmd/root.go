package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"graphvault/internal/adapters/codec"
	"graphvault/internal/adapters/filesystem"
	"graphvault/internal/adapters/sqlite"
	"graphvault/internal/adapters/term"
	"graphvault/internal/config"
	"graphvault/internal/ports"
)

var (
	configPath   string
	dataPath     string
	recordFormat string
	logLevel     string
	logFormat    string

	store ports.GraphStore
	log   logrus.FieldLogger
)

var rootCmd = &cobra.Command{
	Use:   "graphvault-cli",
	Short: "CLI for a file-backed sharded graph store",
	Long: `graphvault-cli manages a directed graph of nodes and weighted edges
stored as one file per record in a sharded directory tree.

Every edge is kept twice, once under its source node and once under its
destination node, so both directions can be listed without scanning.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		return setup(cmd)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, term.ErrorMsg.Render("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.FilePath(), "path to the config file")
	flags.StringVarP(&dataPath, "data", "d", "", "path to the data root (default from config or GRAPHVAULT_DATA)")
	flags.StringVar(&recordFormat, "format", "", "record format: json or msgpack (default from config)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default warn)")
	flags.StringVar(&logFormat, "log-format", "", "log format: text or json (default text)")
}

// setup loads the configuration, flags taking precedence, and opens the store
func setup(cmd *cobra.Command) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataPath = dataPath
	}
	if flags.Changed("format") {
		cfg.RecordFormat = recordFormat
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	log = logger

	c, err := codec.ForFormat(cfg.RecordFormat)
	if err != nil {
		return err
	}

	s, err := filesystem.Open(cfg.DataPath, filesystem.Options{
		Codec:       c,
		Logger:      logger,
		CacheSize:   cfg.CacheSize,
		LoadWorkers: cfg.LoadWorkers,
	})
	if err != nil {
		return err
	}
	store = s
	return nil
}

func newLogger(cfg config.Config) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger.SetLevel(level)

	switch cfg.LogFormat {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q: expected text or json", cfg.LogFormat)
	}
	return logger, nil
}

// GetStore returns the initialized store
func GetStore() ports.GraphStore {
	return store
}

// openCatalog opens the query catalog of the current data root
func openCatalog() (*sqlite.Catalog, error) {
	c := sqlite.NewCatalog(log)
	if err := c.Open(GetStore().Layout().Root); err != nil {
		return nil, err
	}
	return c, nil
}
