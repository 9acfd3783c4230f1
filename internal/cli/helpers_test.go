package cli

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rileyhilliard/cloudctl/internal/cloudapi"
	"github.com/rileyhilliard/cloudctl/internal/config"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/exec"
	exectesting "github.com/rileyhilliard/cloudctl/internal/exec/testing"
	"github.com/rileyhilliard/cloudctl/internal/logger"
	pollertesting "github.com/rileyhilliard/cloudctl/internal/poller/testing"
	"github.com/rileyhilliard/cloudctl/internal/ui"
	sshtesting "github.com/rileyhilliard/cloudctl/pkg/sshutil/testing"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

const (
	testAppUUID = "5fb3e2ab-0b7f-4a5e-9b64-0f2b8c1d7a3e"
	testKeyUUID = "02905393-65d7-4bef-873b-24593f73d273"
)

// fakeAPI is an in-memory platform account.
type fakeAPI struct {
	mu sync.Mutex

	Keys         []cloudapi.SSHKey
	Apps         []cloudapi.Application
	Envs         map[string][]cloudapi.Environment
	Streams      map[string]cloudapi.LogStream
	CreateErr    error
	HideUploaded bool

	Account    *cloudapi.Account
	IDEs       map[string]*cloudapi.IDE
	CreatedIDE string

	Created   []cloudapi.CreateSSHKeyRequest
	Deleted   []string
	IDELabels []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		Envs:    make(map[string][]cloudapi.Environment),
		Streams: make(map[string]cloudapi.LogStream),
		IDEs:    make(map[string]*cloudapi.IDE),
	}
}

func (f *fakeAPI) ListSSHKeys(ctx context.Context) ([]cloudapi.SSHKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cloudapi.SSHKey(nil), f.Keys...), nil
}

func (f *fakeAPI) CreateSSHKey(ctx context.Context, label, publicKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.Created = append(f.Created, cloudapi.CreateSSHKeyRequest{Label: label, PublicKey: publicKey})
	if !f.HideUploaded {
		f.Keys = append(f.Keys, cloudapi.SSHKey{UUID: testKeyUUID, Label: label, PublicKey: publicKey})
	}
	return "Adding SSH key.", nil
}

func (f *fakeAPI) DeleteSSHKey(ctx context.Context, keyUUID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, keyUUID)
	return nil
}

func (f *fakeAPI) ListApplications(ctx context.Context) ([]cloudapi.Application, error) {
	return f.Apps, nil
}

func (f *fakeAPI) GetApplication(ctx context.Context, appUUID string) (*cloudapi.Application, error) {
	for i := range f.Apps {
		if f.Apps[i].UUID == appUUID {
			return &f.Apps[i], nil
		}
	}
	return nil, errors.NewRemoteRejection(404, `{"error":"not_found"}`)
}

func (f *fakeAPI) ListEnvironments(ctx context.Context, appUUID string) ([]cloudapi.Environment, error) {
	return f.Envs[appUUID], nil
}

func (f *fakeAPI) GetEnvironment(ctx context.Context, envID string) (*cloudapi.Environment, error) {
	for _, envs := range f.Envs {
		for i := range envs {
			if envs[i].ID == envID {
				return &envs[i], nil
			}
		}
	}
	return nil, errors.NewRemoteRejection(404, `{"error":"not_found"}`)
}

func (f *fakeAPI) GetLogStream(ctx context.Context, envID string) (*cloudapi.LogStream, error) {
	s, ok := f.Streams[envID]
	if !ok {
		return nil, errors.NewRemoteRejection(404, `{"error":"not_found"}`)
	}
	return &s, nil
}

func (f *fakeAPI) GetAccount(ctx context.Context) (*cloudapi.Account, error) {
	if f.Account == nil {
		return nil, errors.NewRemoteRejection(401, `{"error":"unauthorized"}`)
	}
	return f.Account, nil
}

// CreateIDE hands out CreatedIDE, which must be a key of IDEs.
func (f *fakeAPI) CreateIDE(ctx context.Context, appUUID, label string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.IDELabels = append(f.IDELabels, label)
	if i, ok := f.IDEs[f.CreatedIDE]; ok {
		i.Label = label
	}
	return f.CreatedIDE, nil
}

func (f *fakeAPI) GetIDE(ctx context.Context, ideUUID string) (*cloudapi.IDE, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.IDEs[ideUUID]
	if !ok {
		return nil, errors.NewRemoteRejection(404, `{"error":"not_found"}`)
	}
	return i, nil
}

// scriptedPrompter answers prompts from queues.
type scriptedPrompter struct {
	Inputs    []string
	Passwords []string
	Confirms  []bool
	Selects   [][]string

	Notes []string
	Asked []string
}

func (p *scriptedPrompter) Note(text string) { p.Notes = append(p.Notes, text) }

func (p *scriptedPrompter) Confirm(question string, def bool) (bool, error) {
	p.Asked = append(p.Asked, question)
	if len(p.Confirms) == 0 {
		return def, nil
	}
	v := p.Confirms[0]
	p.Confirms = p.Confirms[1:]
	return v, nil
}

func (p *scriptedPrompter) Input(title, def string, validate func(string) error) (string, error) {
	p.Asked = append(p.Asked, title)
	v := def
	if len(p.Inputs) > 0 {
		v = p.Inputs[0]
		p.Inputs = p.Inputs[1:]
	}
	if v == "" {
		v = def
	}
	return v, nil
}

func (p *scriptedPrompter) Password(title string, validate func(string) error) (string, error) {
	p.Asked = append(p.Asked, title)
	if len(p.Passwords) == 0 {
		return "", errors.New(errors.ErrValidation, "Cancelled", "")
	}
	v := p.Passwords[0]
	p.Passwords = p.Passwords[1:]
	return v, nil
}

func (p *scriptedPrompter) MultiSelect(title string, choices []ui.Choice) ([]string, error) {
	p.Asked = append(p.Asked, title)
	if len(p.Selects) == 0 {
		return nil, nil
	}
	v := p.Selects[0]
	p.Selects = p.Selects[1:]
	return v, nil
}

// testEnv bundles a runtime with the fakes behind it.
type testEnv struct {
	rt      *Runtime
	out     *bytes.Buffer
	errOut  *bytes.Buffer
	api     *fakeAPI
	prompt  *scriptedPrompter
	runner  *exectesting.FakeRunner
	agent   agent.Agent
	dialer  *sshtesting.MockDialer
	clock   *pollertesting.FakeClock
	log     *logger.BufferLogger
	picks   []string
	sshDir  string
	workDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	te := &testEnv{
		out:     &bytes.Buffer{},
		errOut:  &bytes.Buffer{},
		api:     newFakeAPI(),
		prompt:  &scriptedPrompter{},
		runner:  exectesting.NewFakeRunner(),
		agent:   agent.NewKeyring(),
		dialer:  sshtesting.NewMockDialer(),
		clock:   pollertesting.NewFakeClock(),
		log:     logger.NewBufferLogger(),
		sshDir:  t.TempDir(),
		workDir: t.TempDir(),
	}

	cfg := config.DefaultConfig()
	cfg.SSH.Dir = te.sshDir
	cfg.Keychain.Method = "agent"
	cfg.Output.Color = ui.ColorNever

	te.rt = &Runtime{
		Config:      cfg,
		In:          strings.NewReader(""),
		Out:         te.out,
		ErrOut:      te.errOut,
		Log:         te.log,
		Interactive: false,
		Prompt:      te.prompt,
		Runner:      te.runner,
		Agent:       te.agent,
		Dialer:      te.dialer,
		Clock:       te.clock,
		NewAPI:      func(ctx context.Context) (API, error) { return te.api, nil },
		WorkDir:     te.workDir,
	}
	te.rt.Pick = func(title string, choices []ui.Choice) (*ui.Choice, error) {
		if len(te.picks) == 0 {
			return nil, nil
		}
		want := te.picks[0]
		te.picks = te.picks[1:]
		for i := range choices {
			if choices[i].Value == want {
				return &choices[i], nil
			}
		}
		return nil, nil
	}
	return te
}

// interactive turns on prompting with the scripted prompter.
func (te *testEnv) interactive() *testEnv {
	te.rt.Interactive = true
	return te
}

// writePublicKey writes a fresh ed25519 public key into the SSH dir and
// returns its path and contents.
func (te *testEnv) writePublicKey(t *testing.T, filename string) (string, string) {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub))) + " " + filename

	path := filepath.Join(te.sshDir, filename+".pub")
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0644))
	return path, line
}

// fakeKeygen stands in for ssh-keygen by writing a passphrase-protected
// ed25519 pair to the path given with -f.
func fakeKeygen(t *testing.T) exectesting.Response {
	return exectesting.Response{Hook: func(cmd exec.Command) {
		var path, password string
		for i := 0; i+1 < len(cmd.Args); i++ {
			switch cmd.Args[i] {
			case "-f":
				path = cmd.Args[i+1]
			case "-N":
				password = cmd.Args[i+1]
			}
		}
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		block, err := ssh.MarshalPrivateKeyWithPassphrase(priv, "cloudctl", []byte(password))
		require.NoError(t, err)
		sshPub, err := ssh.NewPublicKey(pub)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
		require.NoError(t, os.WriteFile(path+".pub", ssh.MarshalAuthorizedKey(sshPub), 0644))
	}}
}

func withEnvironments(api *fakeAPI) {
	api.Apps = []cloudapi.Application{{UUID: testAppUUID, Name: "Marketing site"}}
	prod := cloudapi.Environment{ID: "24-prod", Label: "Production", Name: "prod", SSHURL: "site.prod@prod.example.com"}
	prod.Flags.Production = true
	dev := cloudapi.Environment{ID: "24-dev", Label: "Dev", Name: "dev", SSHURL: "site.dev@dev.example.com"}
	api.Envs[testAppUUID] = []cloudapi.Environment{prod, dev}
}
