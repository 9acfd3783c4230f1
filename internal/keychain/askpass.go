package keychain

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/exec"
	"github.com/rileyhilliard/cloudctl/internal/logger"
	"github.com/rileyhilliard/cloudctl/internal/sshkey"
)

// askpassScript prints the passphrase ssh-add asks for.
const askpassScript = "#!/bin/sh\necho \"$SSH_PASS\"\n"

// askpassStrategy drives the ssh-add binary.
type askpassStrategy struct {
	runner  exec.Runner
	tempDir string
	log     logger.Logger
}

func (s *askpassStrategy) name() string { return MethodAskpass }

func (s *askpassStrategy) loaded(ctx context.Context) ([]string, error) {
	res, err := s.runner.Run(ctx, exec.Command{Name: "ssh-add", Args: []string{"-L"}})
	if err != nil {
		return nil, err
	}
	// Exit 1 means an empty agent, 2 means no agent at all.
	if !res.Success() {
		return nil, fmt.Errorf("ssh-add -L exited %d: %s", res.ExitCode, strings.TrimSpace(string(res.Output)))
	}

	var keys []string
	for _, line := range strings.Split(string(res.Output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			keys = append(keys, sshkey.Normalize(line))
		}
	}
	return keys, nil
}

func (s *askpassStrategy) add(ctx context.Context, privatePath, password string) error {
	if err := exec.RequireBinaries(s.runner, "ssh-add"); err != nil {
		return err
	}

	script, err := writeAskpassScript(s.tempDir)
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(script); rmErr != nil && !os.IsNotExist(rmErr) {
			s.log.Warn("couldn't remove askpass script %s: %v", script, rmErr)
		}
	}()

	res, err := s.runner.Run(ctx, exec.Command{
		Name: "ssh-add",
		Args: []string{privatePath},
		Env: []string{
			"SSH_PASS=" + password,
			"DISPLAY=1",
			"SSH_ASKPASS=" + script,
			"SSH_ASKPASS_REQUIRE=force",
		},
	})
	if err != nil {
		return errors.NewToolExecution("ssh-add", string(res.Output), err)
	}
	if !res.Success() {
		return errors.NewToolExecution("ssh-add", string(res.Output),
			fmt.Errorf("exit status %d", res.ExitCode))
	}
	return nil
}

// writeAskpassScript creates the one-shot askpass executable and returns its path.
func writeAskpassScript(dir string) (string, error) {
	f, err := os.CreateTemp(dir, "cloudctl-askpass-*")
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrExec,
			"Couldn't create askpass script",
			"Check that the temp directory is writable")
	}
	path := f.Name()

	_, writeErr := f.WriteString(askpassScript)
	closeErr := f.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr == nil {
		writeErr = os.Chmod(path, 0700)
	}
	if writeErr != nil {
		_ = os.Remove(path)
		return "", errors.WrapWithCode(writeErr, errors.ErrExec,
			"Couldn't write askpass script",
			"Check that the temp directory is writable")
	}
	return path, nil
}
