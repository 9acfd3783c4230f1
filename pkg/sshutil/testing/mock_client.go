// Package testing provides SSH test doubles: a scripted MockClient and a
// MockDialer that hands them out or fails on demand.
package testing

import (
	"context"
	"errors"
	"io"
	"regexp"
	"sync"

	"github.com/rileyhilliard/cloudctl/pkg/sshutil"
)

// CommandResponse defines a canned response for a command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
}

// MockClient answers commands from canned responses. Unmatched commands
// succeed with no output.
type MockClient struct {
	mu       sync.Mutex
	host     string
	closed   bool
	commands map[string]CommandResponse // exact command or regex -> response

	Executed []string
}

// NewMockClient creates a mock client for host.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:     host,
		commands: make(map[string]CommandResponse),
	}
}

// SetCommandResponse registers a canned response for a command pattern.
// The pattern can be an exact string or a regex pattern.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[pattern] = resp
}

// Exec implements sshutil.Executor.
func (m *MockClient) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, -1, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, -1, errors.New("connection closed")
	}
	m.Executed = append(m.Executed, cmd)

	if resp, ok := m.commands[cmd]; ok {
		return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
	}
	for pattern, resp := range m.commands {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
		}
	}
	return nil, nil, 0, nil
}

// ExecStream implements sshutil.Executor.
func (m *MockClient) ExecStream(ctx context.Context, cmd string, stdout, stderr io.Writer) (int, error) {
	out, errOut, code, err := m.Exec(ctx, cmd)
	if err != nil {
		return -1, err
	}
	if stdout != nil && len(out) > 0 {
		stdout.Write(out)
	}
	if stderr != nil && len(errOut) > 0 {
		stderr.Write(errOut)
	}
	return code, nil
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// MockDialer returns a MockClient per target, or a queued dial error.
type MockDialer struct {
	mu      sync.Mutex
	clients map[string]*MockClient
	errs    []error

	Dialed []string
}

// NewMockDialer creates a dialer with no clients registered.
func NewMockDialer() *MockDialer {
	return &MockDialer{clients: make(map[string]*MockClient)}
}

// Client returns the client for target, creating it on first use.
func (d *MockDialer) Client(target string) *MockClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.clients[target]
	if !ok {
		c = NewMockClient(target)
		d.clients[target] = c
	}
	return c
}

// FailNext makes the next len(errs) dials fail with errs, in order.
func (d *MockDialer) FailNext(errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs = append(d.errs, errs...)
}

// Dial implements sshutil.Dialer.
func (d *MockDialer) Dial(ctx context.Context, target string) (sshutil.Executor, error) {
	d.mu.Lock()
	d.Dialed = append(d.Dialed, target)
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		d.mu.Unlock()
		return nil, err
	}
	d.mu.Unlock()
	return d.Client(target), nil
}
