// Package root contains the root command for the application
package root

import (
	"fmt"
	"sync"

	"fjacquet/stmt-forensics/internal/config"
	"fjacquet/stmt-forensics/internal/container"
	"fjacquet/stmt-forensics/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to multiple commands
type CommonFlags struct {
	Input     string
	Output    string
	Config    string
	LogLevel  string
	LogFormat string
	Store     string
}

var (
	// Log is the shared logger instance for commands
	Log = logrus.New()

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "stmt-forensics",
		Short: "A CLI tool to repair bank statement spreadsheets and detect tampering.",
		Long: `stmt-forensics repairs messy bank statement spreadsheets into a clean ledger
and runs forensic validations over extracted financial documents.
Findings are combined into a confidence score and a processed/review status.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to stmt-forensics!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.HasParent() {
				return nil
			}
			return Bootstrap(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			Shutdown()
		},
	}

	// Common flags accessible to all commands
	SharedFlags = CommonFlags{}

	appContainer *container.Container
	initOnce     sync.Once
)

// Init initializes the root command and all flags. It is safe to call more
// than once.
func Init() {
	initOnce.Do(initFlags)
}

func initFlags() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Input, "input", "i", "", "Input file or directory")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output file (stdout when empty)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.Config, "config", "", "Config file (default searches $HOME/.stmt-forensics and .)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogFormat, "log-format", "", "Log format (text, json)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.Store, "store", "", "History store path, or 'memory' for an in-process store")
}

// Bootstrap loads the configuration, applies command-line overrides and
// builds the dependency container used by the subcommands.
func Bootstrap(cmd *cobra.Command) error {
	config.LoadEnv()

	cfg, err := config.LoadConfig(SharedFlags.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlagOverrides(cmd, cfg)

	Log = config.ConfigureLoggingFromConfig(cfg)
	c, err := container.NewContainerWithLogger(cfg, logging.NewLogrusAdapterFromLogger(Log))
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	appContainer = c
	return nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = SharedFlags.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = SharedFlags.LogFormat
	}
	if flags.Changed("store") {
		cfg.Store.Path = SharedFlags.Store
	}
}

// GetContainer returns the container built by Bootstrap.
func GetContainer() *container.Container {
	return appContainer
}

// SetContainer replaces the container, for callers that build their own.
func SetContainer(c *container.Container) {
	appContainer = c
}

// GetLogger returns the container logger, or an adapter over Log before
// Bootstrap has run.
func GetLogger() logging.Logger {
	if appContainer != nil {
		return appContainer.GetLogger()
	}
	return logging.NewLogrusAdapterFromLogger(Log)
}

// Shutdown releases the container resources.
func Shutdown() {
	if appContainer == nil {
		return
	}
	if err := appContainer.Close(); err != nil {
		Log.Warnf("Failed to close history store: %v", err)
	}
	appContainer = nil
}
