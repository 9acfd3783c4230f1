package sshutil

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// testServer is a minimal in-process SSH server that runs "exec" requests
// through handler.
type testServer struct {
	addr    string
	hostKey ssh.PublicKey
}

type execHandler func(cmd string, stdout, stderr *bytes.Buffer) uint32

func newSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)
	return signer
}

func startTestServer(t *testing.T, authorized ssh.PublicKey, handler execHandler) *testServer {
	t.Helper()
	hostSigner := newSigner(t)

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, assert.AnError
		},
	}
	config.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, config, handler)
		}
	}()

	return &testServer{addr: ln.Addr().String(), hostKey: hostSigner.PublicKey()}
}

func serveConn(conn net.Conn, config *ssh.ServerConfig, handler execHandler) {
	_, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "session only")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go func() {
			defer ch.Close()
			for req := range chReqs {
				if req.Type != "exec" {
					req.Reply(false, nil)
					continue
				}
				var payload struct{ Command string }
				if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
					req.Reply(false, nil)
					return
				}
				req.Reply(true, nil)

				var stdout, stderr bytes.Buffer
				status := handler(payload.Command, &stdout, &stderr)
				ch.Write(stdout.Bytes())
				ch.Stderr().Write(stderr.Bytes())
				ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
				return
			}
		}()
	}
}

// agentWithKey returns an agent holding a new key and that key's public half.
func agentWithKey(t *testing.T) (agent.Agent, ssh.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	keyring := agent.NewKeyring()
	require.NoError(t, keyring.Add(agent.AddedKey{PrivateKey: priv}))
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return keyring, sshPub
}

func testOptions(t *testing.T, ag agent.Agent) Options {
	t.Helper()
	return Options{
		Timeout:               5 * time.Second,
		StrictHostKeyChecking: true,
		KnownHostsPath:        filepath.Join(t.TempDir(), "known_hosts"),
		Agent:                 ag,
	}
}

func echoHandler(cmd string, stdout, stderr *bytes.Buffer) uint32 {
	switch {
	case cmd == "ls":
		stdout.WriteString("docroot\nvendor\n")
		return 0
	case strings.HasPrefix(cmd, "exit "):
		stderr.WriteString("failing on purpose")
		return 42
	}
	stderr.WriteString(cmd + ": command not found")
	return 127
}

func TestDial_ExecAndExitCodes(t *testing.T) {
	ag, pub := agentWithKey(t)
	srv := startTestServer(t, pub, echoHandler)

	client, err := Dial(context.Background(), "site.dev@"+srv.addr, testOptions(t, ag))
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "site.dev@"+srv.addr, client.GetHost())
	assert.Equal(t, srv.addr, client.Address)

	stdout, _, code, err := client.Exec(context.Background(), "ls")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "docroot\nvendor\n", string(stdout))

	_, stderr, code, err := client.Exec(context.Background(), "exit 42")
	require.NoError(t, err, "non-zero exit is not an error")
	assert.Equal(t, 42, code)
	assert.Equal(t, "failing on purpose", string(stderr))
}

func TestDial_RecordsUnknownHostThenRejectsChangedKey(t *testing.T) {
	ag, pub := agentWithKey(t)
	srv := startTestServer(t, pub, echoHandler)
	opts := testOptions(t, ag)

	client, err := Dial(context.Background(), "site.dev@"+srv.addr, opts)
	require.NoError(t, err)
	client.Close()

	data, err := os.ReadFile(opts.KnownHostsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ssh-ed25519")

	// Second dial succeeds against the recorded key.
	client, err = Dial(context.Background(), "site.dev@"+srv.addr, opts)
	require.NoError(t, err)
	client.Close()

	// A different server on the same address would present another key.
	other := newSigner(t)
	host, port, _ := net.SplitHostPort(srv.addr)
	forged := "[" + host + "]:" + port + " " + strings.TrimSpace(string(ssh.MarshalAuthorizedKey(other.PublicKey())))
	require.NoError(t, os.WriteFile(opts.KnownHostsPath, []byte(forged+"\n"), 0600))

	_, err = Dial(context.Background(), "site.dev@"+srv.addr, opts)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSSH))
	assert.Contains(t, err.Error(), "host key mismatch")
}

func TestDial_RejectedKey(t *testing.T) {
	_, serverPub := agentWithKey(t)
	otherAgent, _ := agentWithKey(t)
	srv := startTestServer(t, serverPub, echoHandler)

	_, err := Dial(context.Background(), "site.dev@"+srv.addr, testOptions(t, otherAgent))

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSSH))
	assert.Contains(t, err.Error(), "may still be propagating")
}

func TestDial_NoAuthMethods(t *testing.T) {
	opts := testOptions(t, agent.NewKeyring())
	opts.IdentityFiles = []string{filepath.Join(t.TempDir(), "missing")}

	_, err := Dial(context.Background(), "site.dev@127.0.0.1:1", opts)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "No SSH auth methods available")
}

func TestDial_Unreachable(t *testing.T) {
	ag, _ := agentWithKey(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), "site.dev@"+addr, testOptions(t, ag))

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSSH))
	assert.Contains(t, err.Error(), "Can't reach")
}

func TestExec_ContextCancelled(t *testing.T) {
	ag, pub := agentWithKey(t)
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	srv := startTestServer(t, pub, func(cmd string, stdout, stderr *bytes.Buffer) uint32 {
		<-block
		return 0
	})

	client, err := Dial(context.Background(), "site.dev@"+srv.addr, testOptions(t, ag))
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, code, err := client.Exec(ctx, "sleep 100")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, -1, code)
}

func TestResolveSettings(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(configPath, []byte(`
Host web-1.example.com
    Port 2222
    User configured
    IdentityFile ~/.ssh/id_rsa_cloud

Match host *.internal
    User hidden

Host after-match
    HostName 10.0.0.9
`), 0600))

	tests := []struct {
		name     string
		target   string
		wantHost string
		wantPort string
		wantUser string
	}{
		{name: "env ssh url", target: "site.dev@web-1.example.com", wantHost: "web-1.example.com", wantPort: "2222", wantUser: "site.dev"},
		{name: "config user when none given", target: "web-1.example.com", wantHost: "web-1.example.com", wantPort: "2222", wantUser: "configured"},
		{name: "explicit port", target: "u@10.1.1.1:2200", wantHost: "10.1.1.1", wantPort: "2200", wantUser: "u"},
		{name: "entries after Match are ignored", target: "u@after-match", wantHost: "after-match", wantPort: "22", wantUser: "u"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := resolveSettings(tt.target, configPath)
			assert.Equal(t, tt.wantHost, s.hostname)
			assert.Equal(t, tt.wantPort, s.port)
			assert.Equal(t, tt.wantUser, s.user)
		})
	}

	s := resolveSettings("web-1.example.com", configPath)
	assert.True(t, strings.HasSuffix(s.identityFile, filepath.Join(".ssh", "id_rsa_cloud")))
}

func TestResolveSettings_MissingConfig(t *testing.T) {
	s := resolveSettings("u@host", filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, "host", s.hostname)
	assert.Equal(t, "22", s.port)
}

func TestHostKeyMismatchError_Suggestion(t *testing.T) {
	err := &HostKeyMismatchError{
		Hostname:     "web-1.example.com:22",
		ReceivedType: "ssh-ed25519",
		KnownHosts:   "/home/u/.ssh/known_hosts",
	}
	assert.Contains(t, err.Error(), "web-1.example.com:22")
	assert.Contains(t, err.Suggestion(), "ssh-keygen -f /home/u/.ssh/known_hosts -R web-1.example.com")
}

func TestPtySize_NonTerminalDefaults(t *testing.T) {
	var buf bytes.Buffer
	w, h := ptySize(&buf)
	assert.Equal(t, 80, w)
	assert.Equal(t, 40, h)
}
