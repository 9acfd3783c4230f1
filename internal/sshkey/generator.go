package sshkey

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/exec"
	"github.com/rileyhilliard/cloudctl/internal/logger"
	"github.com/rileyhilliard/cloudctl/internal/validate"
)

// Key parameters passed to ssh-keygen.
const (
	KeyType = "rsa"
	KeyBits = "4096"
)

// Generator creates key pairs in a managed directory.
type Generator struct {
	Dir    string
	Runner exec.Runner
	Log    logger.Logger
}

// NewGenerator returns a generator writing into dir.
func NewGenerator(dir string, runner exec.Runner) *Generator {
	return &Generator{
		Dir:    ExpandPath(dir),
		Runner: runner,
		Log:    logger.Noop(),
	}
}

// Path returns where a key with the given filename would be written.
func (g *Generator) Path(filename string) string {
	return filepath.Join(g.Dir, filename)
}

// Generate validates the input and creates a new key pair with ssh-keygen.
func (g *Generator) Generate(ctx context.Context, filename, password string) (KeyPair, error) {
	if err := validate.Filename(filename); err != nil {
		return KeyPair{}, err
	}
	if err := validate.Password(password); err != nil {
		return KeyPair{}, err
	}

	path := g.Path(filename)
	if _, err := os.Stat(path); err == nil {
		return KeyPair{}, errors.NewConflict(filename)
	}

	if err := exec.RequireBinaries(g.Runner, "ssh-keygen"); err != nil {
		return KeyPair{}, err
	}

	if err := os.MkdirAll(g.Dir, 0700); err != nil {
		return KeyPair{}, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to create SSH directory: %s", g.Dir),
			"Check permissions on home directory")
	}

	g.Log.Debug("generating %s-%s key at %s", KeyType, KeyBits, path)
	res, err := g.Runner.Run(ctx, exec.Command{
		Name: "ssh-keygen",
		Args: []string{"-t", KeyType, "-b", KeyBits, "-f", path, "-N", password},
	})
	if err != nil {
		return KeyPair{}, errors.NewToolExecution("ssh-keygen", string(res.Output), err)
	}
	if !res.Success() {
		return KeyPair{}, errors.NewToolExecution("ssh-keygen", string(res.Output),
			fmt.Errorf("exit status %d", res.ExitCode))
	}

	return NewKeyPair(path), nil
}
