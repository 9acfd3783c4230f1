package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/ui"
	"github.com/spf13/cobra"
)

var remoteSSHCmd = &cobra.Command{
	Use:   "remote:ssh <env-id> -- <command>",
	Short: "Run a command on a Cloud Platform environment",
	Long: `Connect to an environment over SSH and run a command there. Output is
streamed back, and the remote exit code becomes cloudctl's exit status.

Examples:
  cloudctl remote:ssh 24-a47ac10b -- ls -la
  cloudctl remote:ssh 24-a47ac10b -- drush status`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		return remoteSSHCommand(cmd.Context(), rt, args[0], args[1:])
	},
}

func init() {
	rootCmd.AddCommand(remoteSSHCmd)
}

// interactiveExecutor is implemented by executors that can attach a PTY.
type interactiveExecutor interface {
	ExecInteractive(ctx context.Context, cmd string, stdin io.Reader, stdout, stderr io.Writer) (int, error)
}

func remoteSSHCommand(ctx context.Context, rt *Runtime, envID string, command []string) error {
	api, err := rt.NewAPI(ctx)
	if err != nil {
		return err
	}
	env, err := api.GetEnvironment(ctx, envID)
	if err != nil {
		return err
	}
	if env.SSHURL == "" {
		return errors.NewResolution(
			fmt.Sprintf("Environment %s has no SSH URL", envID),
			"SSH access may be disabled for this environment.")
	}

	client, err := rt.Dialer.Dial(ctx, env.SSHURL)
	if err != nil {
		return err
	}
	defer client.Close()

	line := strings.Join(command, " ")
	rt.Log.Debug("running %q on %s", line, env.SSHURL)

	var code int
	if ie, ok := client.(interactiveExecutor); ok && ui.Interactive(rt.In, rt.Out) {
		code, err = ie.ExecInteractive(ctx, line, rt.In, rt.Out, rt.ErrOut)
	} else {
		code, err = client.ExecStream(ctx, line, rt.Out, rt.ErrOut)
	}
	if err != nil {
		return err
	}
	if code != 0 {
		return errors.New(errors.ErrExec,
			fmt.Sprintf("Remote command exited with code %d", code),
			"")
	}
	return nil
}
