package poller

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/cloudctl/internal/cloudapi"
	"github.com/rileyhilliard/cloudctl/pkg/sshutil"
)

// AccessCommand is run on the environment to test access.
const AccessCommand = "ls"

// SSHChecker opens a fresh SSH connection per check and runs AccessCommand.
type SSHChecker struct {
	Dialer  sshutil.Dialer
	Command string
}

// NewSSHChecker returns a checker running AccessCommand through d.
func NewSSHChecker(d sshutil.Dialer) *SSHChecker {
	return &SSHChecker{Dialer: d, Command: AccessCommand}
}

// Check implements Checker.
func (c *SSHChecker) Check(ctx context.Context, env cloudapi.Environment) error {
	if env.SSHURL == "" {
		return fmt.Errorf("environment %s has no SSH URL", env.ID)
	}
	client, err := c.Dialer.Dial(ctx, env.SSHURL)
	if err != nil {
		return err
	}
	defer client.Close()

	_, stderr, code, err := client.Exec(ctx, c.Command)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("%s exited %d: %s", c.Command, code, strings.TrimSpace(string(stderr)))
	}
	return nil
}
