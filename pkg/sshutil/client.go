// Package sshutil dials platform environments over SSH and runs commands on
// them. Connection settings come from ~/.ssh/config when present, auth from
// the SSH agent and any unencrypted identity files.
package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// Options controls how Dial connects.
type Options struct {
	// Timeout bounds the TCP connect and the SSH handshake.
	Timeout time.Duration

	// StrictHostKeyChecking rejects hosts whose key differs from known_hosts.
	// Unknown hosts are added on first contact. When false, host keys are not
	// checked at all.
	StrictHostKeyChecking bool

	KnownHostsPath string
	ConfigPath     string // ssh_config file; missing is fine

	// IdentityFiles are tried after the agent. Encrypted keys are skipped.
	IdentityFiles []string

	// Agent supplies signers. Nil disables agent auth.
	Agent agent.Agent
}

// DefaultOptions returns options rooted at ~/.ssh.
func DefaultOptions() Options {
	sshDir := filepath.Join(homeDir(), ".ssh")
	return Options{
		Timeout:               10 * time.Second,
		StrictHostKeyChecking: true,
		KnownHostsPath:        filepath.Join(sshDir, "known_hosts"),
		ConfigPath:            filepath.Join(sshDir, "config"),
		IdentityFiles: []string{
			filepath.Join(sshDir, "id_ed25519"),
			filepath.Join(sshDir, "id_rsa"),
			filepath.Join(sshDir, "id_ecdsa"),
		},
	}
}

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	Host    string // The target as given, e.g. "site.dev@web-1.example.com"
	Address string // The resolved host:port
}

// Dial connects to target, which is an environment SSH URL ("user@host"),
// an ssh_config alias, or "host:port".
func Dial(ctx context.Context, target string, opts Options) (*Client, error) {
	settings := resolveSettings(target, opts.ConfigPath)

	config, err := buildClientConfig(settings, opts)
	if err != nil {
		var cliErr *errors.Error
		if stderrors.As(err, &cliErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", target),
			"Check your keys are loaded: ssh-add -l")
	}

	address := settings.address()
	dialer := net.Dialer{Timeout: opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", target, address),
			suggestionForDialError(err))
	}
	if opts.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(opts.Timeout))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrSSH, hostKeyErr.Error(), hostKeyErr.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", target),
			suggestionForHandshakeError(err))
	}
	_ = conn.SetDeadline(time.Time{})

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    target,
		Address: address,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the target used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// settings holds resolved connection parameters.
type settings struct {
	hostname     string
	port         string
	user         string
	identityFile string
}

func (s *settings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSettings parses user@host:port and overlays ssh_config values.
// An explicit user in target wins over the config.
func resolveSettings(target, configPath string) *settings {
	s := &settings{port: "22", user: currentUser()}

	host := target
	explicitUser := false
	if at := strings.LastIndex(host, "@"); at != -1 {
		s.user = host[:at]
		host = host[at+1:]
		explicitUser = true
	}
	if h, p, err := net.SplitHostPort(host); err == nil {
		host, s.port = h, p
	}
	s.hostname = host

	if configPath == "" {
		return s
	}
	content, err := readSSHConfig(configPath)
	if err != nil {
		return s
	}
	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return s
	}

	if v, _ := cfg.Get(host, "HostName"); v != "" {
		s.hostname = v
	}
	if v, _ := cfg.Get(host, "Port"); v != "" {
		s.port = v
	}
	if v, _ := cfg.Get(host, "User"); v != "" && !explicitUser {
		s.user = v
	}
	if v, _ := cfg.Get(host, "IdentityFile"); v != "" {
		s.identityFile = expandPath(v)
	}
	return s
}

// readSSHConfig returns the config up to the first Match block, which
// kevinburke/ssh_config can't parse.
func readSSHConfig(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			lines = lines[:i]
			break
		}
	}
	return []byte(strings.Join(lines, "\n")), nil
}

func buildClientConfig(s *settings, opts Options) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	if opts.Agent != nil {
		// An empty agent makes servers count a failed attempt, so skip it.
		if signers, err := opts.Agent.Signers(); err == nil && len(signers) > 0 {
			auth = append(auth, ssh.PublicKeysCallback(opts.Agent.Signers))
		}
	}

	files := opts.IdentityFiles
	if s.identityFile != "" {
		files = append([]string{s.identityFile}, files...)
	}
	var encrypted []string
	seen := make(map[string]bool)
	for _, path := range files {
		if seen[path] {
			continue
		}
		seen[path] = true
		method, isEncrypted := keyFileAuth(path)
		if isEncrypted {
			encrypted = append(encrypted, path)
		}
		if method != nil {
			auth = append(auth, method)
		}
	}

	if len(auth) == 0 {
		suggestion := "Load your key into the agent: ssh-add <private key>"
		if len(encrypted) > 0 {
			suggestion = "Your key(s) are encrypted. Add them to the agent:\n  ssh-add " +
				strings.Join(encrypted, "\n  ssh-add ")
		}
		return nil, errors.New(errors.ErrSSH, "No SSH auth methods available", suggestion)
	}

	callback := ssh.InsecureIgnoreHostKey() //nolint:gosec // disabled via ssh.strict_host_key_checking
	if opts.StrictHostKeyChecking {
		var err error
		callback, err = hostKeyCallback(opts.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            s.user,
		Auth:            auth,
		HostKeyCallback: callback,
		Timeout:         opts.Timeout,
	}, nil
}

// keyFileAuth loads an unencrypted private key. The bool reports an encrypted key.
func keyFileAuth(path string) (ssh.AuthMethod, bool) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		return nil, stderrors.As(err, &missing) || bytes.Contains(key, []byte("ENCRYPTED"))
	}
	return ssh.PublicKeys(signer), false
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return "The environment isn't accepting SSH connections yet."
	case strings.Contains(errStr, "no such host"):
		return "The environment's SSH host doesn't resolve. Check the SSH URL with 'cloudctl env:list'."
	case strings.Contains(errStr, "timeout"):
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable from your network."
}

func suggestionForHandshakeError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		return "The environment rejected your key. If you just uploaded it, it may still be propagating."
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh -v <host>"
}
