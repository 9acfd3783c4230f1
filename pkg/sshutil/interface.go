package sshutil

import (
	"context"
	"io"
)

// Executor runs commands on one remote host.
// Both the real Client and the fake in sshutil/testing satisfy this interface.
type Executor interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error)

	// ExecStream runs a command and streams output to the provided writers.
	ExecStream(ctx context.Context, cmd string, stdout, stderr io.Writer) (exitCode int, err error)

	// Close closes the SSH connection.
	Close() error

	// GetHost returns the target used to connect.
	GetHost() string
}

// Dialer opens an Executor for a target.
type Dialer interface {
	Dial(ctx context.Context, target string) (Executor, error)
}

// OptionsDialer dials real SSH connections with fixed options.
type OptionsDialer struct {
	Options Options
}

// Dial implements Dialer.
func (d OptionsDialer) Dial(ctx context.Context, target string) (Executor, error) {
	c, err := Dial(ctx, target, d.Options)
	if err != nil {
		return nil, err
	}
	return c, nil
}
