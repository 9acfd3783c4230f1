package exec

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/rileyhilliard/cloudctl/internal/errors"
)

// Command describes a local binary invocation. Env entries are appended to
// the current process environment.
type Command struct {
	Name string
	Args []string
	Env  []string
}

// Result holds the combined stdout/stderr and the exit code of a finished process.
type Result struct {
	Output   []byte
	ExitCode int
}

// Success reports whether the process exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner runs local tools. The real implementation shells out; tests use
// the fake in internal/exec/testing.
type Runner interface {
	// LookPath reports where name lives on PATH.
	LookPath(name string) (string, error)

	// Run executes the command and waits for it. A non-zero exit is reported
	// through Result.ExitCode with a nil error; err is only set when the
	// process could not be started at all.
	Run(ctx context.Context, cmd Command) (Result, error)
}

// LocalRunner runs commands on this machine with os/exec.
type LocalRunner struct{}

// NewLocalRunner returns a Runner backed by os/exec.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{}
}

// LookPath implements Runner.
func (LocalRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run implements Runner.
func (LocalRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	command := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if len(cmd.Env) > 0 {
		command.Env = append(os.Environ(), cmd.Env...)
	}

	var out bytes.Buffer
	command.Stdout = &out
	command.Stderr = &out

	runErr := command.Run()
	if runErr != nil {
		// Command ran but returned non-zero
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return Result{Output: out.Bytes(), ExitCode: exitErr.ExitCode()}, nil
		}
		return Result{Output: out.Bytes(), ExitCode: -1}, errors.WrapWithCode(runErr, errors.ErrExec,
			"Couldn't run "+cmd.Name,
			"Make sure the command exists and is executable.")
	}

	return Result{Output: out.Bytes()}, nil
}

// RequireBinaries checks that every named tool is on PATH.
func RequireBinaries(r Runner, names ...string) error {
	for _, name := range names {
		if _, err := r.LookPath(name); err != nil {
			return errors.NewToolExecution(name, "not found on PATH", err)
		}
	}
	return nil
}
