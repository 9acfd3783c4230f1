// Package keychain loads private keys into the local SSH agent.
//
// Two strategies are available. The agent strategy decrypts the key in
// process and hands it to ssh-agent over SSH_AUTH_SOCK. The askpass strategy
// shells out to ssh-add and answers its passphrase prompt with a throwaway
// SSH_ASKPASS script. Both compare keys in normalized "<alg> <base64>" form.
package keychain

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/exec"
	"github.com/rileyhilliard/cloudctl/internal/logger"
	"github.com/rileyhilliard/cloudctl/internal/sshkey"
	"github.com/rileyhilliard/cloudctl/internal/validate"
	"golang.org/x/crypto/ssh/agent"
)

// Registration methods accepted by keychain.method in config.
const (
	MethodAuto    = "auto"
	MethodAgent   = "agent"
	MethodAskpass = "askpass"
)

// Methods lists the valid registration methods.
var Methods = []string{MethodAuto, MethodAgent, MethodAskpass}

// strategy is one way of listing and adding agent identities.
type strategy interface {
	name() string
	// loaded returns the normalized public keys the agent currently holds.
	loaded(ctx context.Context) ([]string, error)
	add(ctx context.Context, privatePath, password string) error
}

// Registrar makes sure a key pair is loaded in the local SSH agent.
type Registrar struct {
	Method string
	Runner exec.Runner
	Agent  agent.Agent // nil when no agent socket is reachable
	Log    logger.Logger

	// TempDir holds the askpass script. Empty means os.TempDir().
	TempDir string
}

// NewRegistrar builds a registrar. ag may be nil.
func NewRegistrar(method string, runner exec.Runner, ag agent.Agent) *Registrar {
	if method == "" {
		method = MethodAuto
	}
	return &Registrar{
		Method: method,
		Runner: runner,
		Agent:  ag,
		Log:    logger.Noop(),
	}
}

// strategies returns the strategies to try, in order.
func (r *Registrar) strategies() ([]strategy, error) {
	askpass := &askpassStrategy{runner: r.Runner, tempDir: r.TempDir, log: r.Log}

	switch r.Method {
	case MethodAskpass:
		return []strategy{askpass}, nil
	case MethodAgent:
		if r.Agent == nil {
			return nil, errors.New(errors.ErrSSH,
				"No SSH agent is running",
				"Start ssh-agent and export SSH_AUTH_SOCK, or set keychain.method to askpass")
		}
		return []strategy{&agentStrategy{agent: r.Agent}}, nil
	case MethodAuto:
		if r.Agent == nil {
			return []strategy{askpass}, nil
		}
		return []strategy{&agentStrategy{agent: r.Agent}, askpass}, nil
	default:
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown keychain method %q", r.Method),
			"Use one of: auto, agent, askpass")
	}
}

// IsLoaded reports whether the public key at pubPath is held by the agent.
// A failure to list the agent's keys counts as not loaded.
func (r *Registrar) IsLoaded(ctx context.Context, pubPath string) (bool, error) {
	target, err := sshkey.ReadPublicKey(pubPath)
	if err != nil {
		return false, err
	}
	strategies, err := r.strategies()
	if err != nil {
		return false, err
	}
	return r.isLoaded(ctx, strategies[0], sshkey.Normalize(target)), nil
}

func (r *Registrar) isLoaded(ctx context.Context, s strategy, target string) bool {
	keys, err := s.loaded(ctx)
	if err != nil {
		r.Log.Debug("listing agent keys via %s failed: %v", s.name(), err)
		return false
	}
	for _, k := range keys {
		if k == target {
			return true
		}
	}
	return false
}

// Register loads the private half of pair into the agent unless its public
// key is already there. It returns true when a key was added.
func (r *Registrar) Register(ctx context.Context, pair sshkey.KeyPair, password string) (bool, error) {
	if err := validate.Password(password); err != nil {
		return false, err
	}

	strategies, err := r.strategies()
	if err != nil {
		return false, err
	}

	target, err := sshkey.ReadPublicKey(pair.PublicPath)
	if err != nil {
		return false, err
	}
	target = sshkey.Normalize(target)

	if r.isLoaded(ctx, strategies[0], target) {
		r.Log.Debug("%s already loaded, skipping", pair.Filename)
		return false, nil
	}

	for i, s := range strategies {
		err = s.add(ctx, pair.PrivatePath, password)
		if err == nil {
			r.Log.Debug("added %s via %s", pair.Filename, s.name())
			return true, nil
		}
		if i+1 < len(strategies) && errors.Is(err, errUnsupportedKey) {
			r.Log.Debug("%s can't load %s in process, falling back", s.name(), pair.Filename)
			continue
		}
		return false, err
	}
	return false, err
}
