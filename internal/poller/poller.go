// Package poller waits for a freshly uploaded SSH key to become usable.
//
// The platform installs account keys asynchronously. After upload the poller
// picks a non-production environment of the application and runs a no-op
// command there over SSH on a fixed interval. The first success ends the
// wait; a separate deadline ends it quietly if the key never lands.
package poller

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rileyhilliard/cloudctl/internal/cloudapi"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/logger"
)

// Defaults for the poll loop.
const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 15 * time.Second
)

// ReadyMessage is printed once the key works.
const ReadyMessage = "Your SSH key is ready for use!"

// State is where a poll stands.
type State int

const (
	Polling State = iota
	Succeeded
	TimedOut
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case Succeeded:
		return "succeeded"
	case TimedOut:
		return "timed out"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// PollState describes one poll run. Only the loop mutates it.
type PollState struct {
	EnvironmentID string
	Interval      time.Duration
	Timeout       time.Duration
	State         State
	Attempts      int
}

// EnvironmentLister lists an application's environments.
type EnvironmentLister interface {
	ListEnvironments(ctx context.Context, appUUID string) ([]cloudapi.Environment, error)
}

// Checker reports whether the key grants access to env.
type Checker interface {
	Check(ctx context.Context, env cloudapi.Environment) error
}

// Poller waits for a key to propagate.
type Poller struct {
	Envs     EnvironmentLister
	Checker  Checker
	Clock    Clock
	Log      logger.Logger
	Out      io.Writer
	Interval time.Duration
	Timeout  time.Duration
}

// New returns a poller with the default interval, timeout and real clock.
func New(envs EnvironmentLister, checker Checker, out io.Writer) *Poller {
	return &Poller{
		Envs:     envs,
		Checker:  checker,
		Clock:    RealClock(),
		Log:      logger.Noop(),
		Out:      out,
		Interval: DefaultInterval,
		Timeout:  DefaultTimeout,
	}
}

// Resolve returns the first non-production environment of the application.
func (p *Poller) Resolve(ctx context.Context, appUUID string) (cloudapi.Environment, error) {
	envs, err := p.Envs.ListEnvironments(ctx, appUUID)
	if err != nil {
		return cloudapi.Environment{}, err
	}
	env := cloudapi.FirstNonProduction(envs)
	if env == nil {
		return cloudapi.Environment{}, errors.NewResolution(
			"Could not find a non-production environment to check SSH access against",
			"Create a development or staging environment, or run the upload with --no-wait")
	}
	return *env, nil
}

// Wait resolves the environment to test for appUUID and polls it.
func (p *Poller) Wait(ctx context.Context, appUUID string) (PollState, error) {
	env, err := p.Resolve(ctx, appUUID)
	if err != nil {
		return PollState{State: Polling}, err
	}
	return p.Poll(ctx, env)
}

// Poll runs Checker against env on every interval tick until a check passes
// or the timeout elapses. A timeout is not an error.
func (p *Poller) Poll(ctx context.Context, env cloudapi.Environment) (PollState, error) {
	st := PollState{
		EnvironmentID: env.ID,
		Interval:      p.Interval,
		Timeout:       p.Timeout,
	}

	check := func(ctx context.Context) error { return p.Checker.Check(ctx, env) }
	failed := func(attempt int, err error) {
		p.Log.Debug("attempt %d on %s failed: %v", attempt, env.ID, err)
	}
	var err error
	st.State, st.Attempts, err = Until(ctx, p.Clock, st.Interval, st.Timeout, check, failed)
	if st.State == Succeeded && p.Out != nil {
		fmt.Fprintln(p.Out, ReadyMessage)
	}
	return st, err
}

// Until runs check on every interval tick until it passes or timeout
// elapses, and returns the final state with the number of attempts. A tick
// due at the same instant as the deadline still runs. failed, if set, sees
// every failed attempt. Only context cancellation returns an error.
func Until(ctx context.Context, clock Clock, interval, timeout time.Duration,
	check func(ctx context.Context) error, failed func(attempt int, err error)) (State, int, error) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	deadline := clock.NewTimer(timeout)
	defer deadline.Stop()

	attempts := 0
	attempt := func() bool {
		attempts++
		if err := check(ctx); err != nil {
			if failed != nil {
				failed(attempts, err)
			}
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return Polling, attempts, ctx.Err()

		case <-ticker.C():
			if attempt() {
				return Succeeded, attempts, nil
			}

		case <-deadline.C():
			select {
			case <-ticker.C():
				if attempt() {
					return Succeeded, attempts, nil
				}
			default:
			}
			return TimedOut, attempts, nil
		}
	}
}
