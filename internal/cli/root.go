package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rileyhilliard/cloudctl/internal/config"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/logger"
	"github.com/rileyhilliard/cloudctl/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile         string
	verbose         bool
	noInteraction   bool
	applicationFlag string
)

// loadedConfig is set by the root pre-run hook.
var loadedConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "cloudctl",
	Short: "Command-line client for the Cloud Platform",
	Long: `cloudctl drives the Cloud Platform API and your local SSH tooling.

Create and upload SSH keys, wait for them to reach your environments, run
remote commands and tail environment logs.

Examples:
  cloudctl auth:login
  cloudctl ssh-key:create-upload
  cloudctl env:list
  cloudctl remote:ssh 24-a47ac10b -- drush status`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .cloudctl.yaml, then ~/.config/cloudctl/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug output")
	rootCmd.PersistentFlags().BoolVarP(&noInteraction, "no-interaction", "n", false, "never prompt; use defaults and flags")
	rootCmd.PersistentFlags().StringVarP(&applicationFlag, "application", "a", "", "application UUID (default: the linked application)")
	rootCmd.PersistentFlags().BoolVar(&machineMode, "json", false, "machine-readable JSON output")
}

// setup loads config and configures logging and color before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	if !needsConfig(cmd) {
		return nil
	}
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	loadedConfig = cfg

	level := cfg.LogLevel
	if verbose || os.Getenv("CLOUDCTL_DEBUG") != "" {
		level = "debug"
	}
	logger.SetDefault(logger.New(os.Stderr, level))
	logger.Default().Debug("config: %s", configSource(cfg))

	ui.ApplyColorMode(cfg.Output.Color, cmd.OutOrStdout())
	return nil
}

// needsConfig is false for commands that must work even with a broken config.
func needsConfig(cmd *cobra.Command) bool {
	if cmd.Name() == "version" {
		return false
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "completion" || c.Name() == cobra.ShellCompRequestCmd {
			return false
		}
	}
	return true
}

func configSource(cfg *config.Config) string {
	if cfg.Path == "" {
		return "defaults"
	}
	return cfg.Path
}

// runtimeFor builds the runtime for a command invocation. Callers must Close it.
func runtimeFor(cmd *cobra.Command) *Runtime {
	cfg := loadedConfig
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return newRuntime(cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err == nil {
		return
	}
	if isUnknownCommandError(err) {
		fmt.Fprintf(os.Stderr, "%s %s\n", ui.SymbolFail, err)
		if name := extractUnknownCommand(err); name != "" && !strings.Contains(name, ":") {
			fmt.Fprintf(os.Stderr, "  Commands are namespaced, e.g. 'cloudctl ssh-key:%s'. Run 'cloudctl --help' to list them.\n", name)
		} else {
			fmt.Fprintln(os.Stderr, "  Run 'cloudctl --help' to list commands.")
		}
		os.Exit(1)
	}
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		os.Exit(130)
	}
	if machineMode {
		WriteJSONFromError(os.Stdout, err)
		os.Exit(1)
	}
	fmt.Fprint(os.Stderr, formatError(err))
	os.Exit(1)
}

// formatError renders structured errors as-is and wraps plain ones in the same layout.
func formatError(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return errors.New(errors.ErrExec, err.Error(), "").Error()
}

// isUnknownCommandError reports cobra's unknown command or flag errors.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// extractUnknownCommand pulls "foo" out of `unknown command "foo" for "cloudctl"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start == -1 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end == -1 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
