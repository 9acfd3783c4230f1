// Package testing provides test doubles for the exec package.
package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rileyhilliard/cloudctl/internal/exec"
)

// Response is a canned result for a command.
type Response struct {
	Output   string
	ExitCode int
	Err      error

	// Hook runs before the response is returned. It can inspect the command
	// (for example, read a script referenced by the environment).
	Hook func(cmd exec.Command)
}

// FakeRunner records commands and answers them from canned responses.
// Responses are keyed by the command name, or by "name arg0" for a more
// specific match. Unmatched commands succeed with empty output.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string][]Response
	missing   map[string]bool

	Calls []exec.Command
}

// NewFakeRunner creates a runner where every binary exists and every command succeeds.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		responses: make(map[string][]Response),
		missing:   make(map[string]bool),
	}
}

// On queues a response for key. Multiple responses for the same key are
// returned in order; the last one repeats.
func (f *FakeRunner) On(key string, resp Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = append(f.responses[key], resp)
	return f
}

// Missing marks a binary as absent from PATH.
func (f *FakeRunner) Missing(name string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missing[name] = true
	return f
}

// LookPath implements exec.Runner.
func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[name] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

// Run implements exec.Runner.
func (f *FakeRunner) Run(_ context.Context, cmd exec.Command) (exec.Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	resp, ok := f.next(cmd)
	f.mu.Unlock()

	if !ok {
		return exec.Result{}, nil
	}
	if resp.Hook != nil {
		resp.Hook(cmd)
	}
	return exec.Result{Output: []byte(resp.Output), ExitCode: resp.ExitCode}, resp.Err
}

func (f *FakeRunner) next(cmd exec.Command) (Response, bool) {
	keys := []string{cmd.Name}
	if len(cmd.Args) > 0 {
		keys = []string{cmd.Name + " " + cmd.Args[0], cmd.Name}
	}
	for _, key := range keys {
		queue := f.responses[key]
		if len(queue) == 0 {
			continue
		}
		resp := queue[0]
		if len(queue) > 1 {
			f.responses[key] = queue[1:]
		}
		return resp, true
	}
	return Response{}, false
}

// CallsTo returns the recorded calls whose name (and first arg, if given) match.
func (f *FakeRunner) CallsTo(name string, firstArg ...string) []exec.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []exec.Command
	for _, c := range f.Calls {
		if c.Name != name {
			continue
		}
		if len(firstArg) > 0 && (len(c.Args) == 0 || c.Args[0] != firstArg[0]) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// EnvValue returns the value of key in the command's extra environment.
func EnvValue(cmd exec.Command, key string) string {
	for _, kv := range cmd.Env {
		if strings.HasPrefix(kv, key+"=") {
			return strings.TrimPrefix(kv, key+"=")
		}
	}
	return ""
}
