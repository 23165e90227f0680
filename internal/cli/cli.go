package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/computesim/internal/app"
)

// Version information set at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// RunFunc runs the application with a parsed configuration.
type RunFunc func(ctx context.Context, cfg *app.Config) error

// NewRootCommand builds the computesim command tree. Help and results go to
// outW; run is invoked by the run subcommand.
func NewRootCommand(outW io.Writer, run RunFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "computesim",
		Short: "Simulate a decentralized computation on a single machine",
		Long: `computesim bootstraps a computation registry and a database registry for
one computation manifest and runs it through a simulated consortium of
local sites and one remote aggregator.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	root.AddCommand(runCmd(outW, run), versionCmd(outW))
	return root
}

func runCmd(outW io.Writer, run RunFunc) *cobra.Command {
	var (
		cfg         app.Config
		computation string
	)

	cmd := &cobra.Command{
		Use:   "run [COMPUTATION_PATH]",
		Short: "Bootstrap the registries for a computation and run it",
		Long: `Bootstrap the registries for a computation and run it.

COMPUTATION_PATH is the manifest file (compspec.hcl, compspec.json or
compspec.yaml). The registries resolve every computation to the directory
holding it. The final run result is printed as JSON.

Examples:
  computesim run examples/sum/compspec.hcl
  computesim run -c examples/decentralized-test/compspec.json --participants=3
  computesim run --config computesim.hcl --remote examples/sum/compspec.hcl`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.ComputationPath = computation
			if cfg.ComputationPath == "" && len(args) > 0 {
				cfg.ComputationPath = args[0]
			}
			slog.Debug("Computation path determined.", "path", cfg.ComputationPath)

			if cfg.ComputationPath == "" {
				slog.Debug("No computation path provided, printing usage and exiting.")
				return cmd.Help()
			}

			parsed, err := validate(cfg)
			if err != nil {
				return err
			}
			return run(cmd.Context(), parsed)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&computation, "computation", "c", "", "Path to the computation manifest.")
	flags.StringVar(&cfg.ConfigPath, "config", "", "Path to an HCL process configuration file.")
	flags.BoolVar(&cfg.Remote, "remote", false, "Bootstrap the registries in remote mode.")
	flags.IntVar(&cfg.Participants, "participants", 0, "Number of simulated local sites. 0 keeps the configured value.")
	flags.IntVar(&cfg.Iterations, "iterations", 0, "Iteration limit for manifests without one. 0 keeps the configured value.")
	flags.IntVar(&cfg.Workers, "workers", 0, "Maximum local steps running at once. 0 keeps the configured value.")
	flags.BoolVar(&cfg.Deduplicate, "dedupe", false, "Skip registry entries that are already present.")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.StringVar(&cfg.LogFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.IntVar(&cfg.HealthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")

	return cmd
}

// validate normalizes the flag values and turns invalid ones into exit code 2.
func validate(cfg app.Config) (*app.Config, error) {
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	parsed, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	slog.Debug("CLI parameter validation complete.")
	return parsed, nil
}

func versionCmd(outW io.Writer) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				fmt.Fprintln(outW, Version)
				return
			}
			fmt.Fprintf(outW, "computesim %s (commit %s, %s, %s/%s)\n", Version, Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	return cmd
}

// Execute parses args and runs the selected command. Usage errors are
// returned as *ExitError with code 2.
func Execute(ctx context.Context, args []string, outW io.Writer, run RunFunc) error {
	root := NewRootCommand(outW, run)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) && isUsageError(err) {
		return usageError(err)
	}
	return err
}

// isUsageError matches the errors cobra reports for unknown commands and
// wrong argument counts, which bypass the flag error func.
func isUsageError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "accepts ") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}
