// Package cli implements the planner command line: offline optimization of
// spreadsheet exports, scenario management and the HTTP server.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"territory-planner/internal/config"
	"territory-planner/internal/database"
	"territory-planner/internal/logging"
	"territory-planner/internal/storage"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       *zap.Logger
	OutputFormat string
}

type cliContextKey struct{}

// NewRootCommand creates the root command with all global flags and
// subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "planner",
		Short: "Sales territory planner",
		Long: "planner assigns customers to sales representatives so that workload and\n" +
			"revenue potential are balanced, and manages saved territory scenarios.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (YAML, default ~/.territory-planner/config.yaml if present)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputText, "output format (text, json)")

	cmd.AddCommand(
		newOptimizeCmd(),
		newScenariosCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	if opts.OutputFormat != OutputText && opts.OutputFormat != OutputJSON {
		return fmt.Errorf("unsupported output format %q", opts.OutputFormat)
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: opts.OutputFormat,
	}))
	return nil
}

// DefaultConfigPath returns the config file in the application directory,
// or "" when there is none.
func DefaultConfigPath() string {
	path, err := database.GetConfigFilePath()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// GetCLIContext extracts the CLIContext set up by the root command
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	if cmd.Context() == nil {
		return nil, errors.New("command context not initialized")
	}
	cc, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil, errors.New("command context not initialized")
	}
	return cc, nil
}

// openStore opens the configured store
func (cc *CLIContext) openStore(ctx context.Context) (database.DataStore, error) {
	return storage.Open(ctx, cc.Config.Storage, cc.Logger)
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cc.OutputFormat == OutputJSON {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": Version, "commit": GitCommit, "build_date": BuildDate,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "planner %s (commit: %s, built: %s)\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}
