package sshutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rileyhilliard/cloudctl/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
)

// Exec runs a command on the remote host and returns the output.
// Returns stdout, stderr, exit code, and any error.
// Exit code is -1 if the command couldn't be executed at all.
func (c *Client) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode, err = c.ExecStream(ctx, cmd, &stdoutBuf, &stderrBuf)
	if err != nil {
		return nil, nil, -1, err
	}
	return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitCode, nil
}

// ExecStream runs a command and streams output to the provided writers.
// Cancelling ctx closes the session.
func (c *Client) ExecStream(ctx context.Context, cmd string, stdout, stderr io.Writer) (int, error) {
	return c.run(ctx, cmd, nil, stdout, stderr, false)
}

// ExecInteractive runs a command with a PTY and the given stdin, for commands
// that expect a terminal.
func (c *Client) ExecInteractive(ctx context.Context, cmd string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	return c.run(ctx, cmd, stdin, stdout, stderr, true)
}

func (c *Client) run(ctx context.Context, cmd string, stdin io.Reader, stdout, stderr io.Writer, pty bool) (int, error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	if pty {
		modes := ssh.TerminalModes{
			ssh.ECHO:          1,
			ssh.TTY_OP_ISPEED: 14400,
			ssh.TTY_OP_OSPEED: 14400,
		}
		width, height := ptySize(stdout)
		if err := session.RequestPty("xterm-256color", height, width, modes); err != nil {
			return -1, errors.WrapWithCode(err, errors.ErrSSH,
				"Failed to allocate PTY",
				"The remote host may not support pseudo-terminals.")
		}
	}

	session.Stdin = stdin
	session.Stdout = stdout
	session.Stderr = stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		session.Close()
		return -1, ctx.Err()
	case err = <-done:
	}

	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return exitErr.ExitStatus(), nil
		}
		return -1, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Failed to execute command: %s", cmd),
			"Check if the command exists on the remote host.")
	}
	return 0, nil
}

// ptySize returns the local terminal size, or 80x40 when w isn't a terminal.
func ptySize(w io.Writer) (width, height int) {
	if f, ok := w.(*os.File); ok {
		if cols, rows, err := term.GetSize(int(f.Fd())); err == nil {
			return cols, rows
		}
	}
	return 80, 40
}
