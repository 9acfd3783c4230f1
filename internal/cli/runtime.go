package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rileyhilliard/cloudctl/internal/cloudapi"
	"github.com/rileyhilliard/cloudctl/internal/config"
	"github.com/rileyhilliard/cloudctl/internal/credentials"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/exec"
	"github.com/rileyhilliard/cloudctl/internal/ide"
	"github.com/rileyhilliard/cloudctl/internal/keychain"
	"github.com/rileyhilliard/cloudctl/internal/logger"
	"github.com/rileyhilliard/cloudctl/internal/poller"
	"github.com/rileyhilliard/cloudctl/internal/ui"
	"github.com/rileyhilliard/cloudctl/pkg/sshutil"
	"golang.org/x/crypto/ssh/agent"
)

// API is the slice of the platform API the commands use.
type API interface {
	ListSSHKeys(ctx context.Context) ([]cloudapi.SSHKey, error)
	CreateSSHKey(ctx context.Context, label, publicKey string) (string, error)
	DeleteSSHKey(ctx context.Context, keyUUID string) error
	ListApplications(ctx context.Context) ([]cloudapi.Application, error)
	GetApplication(ctx context.Context, appUUID string) (*cloudapi.Application, error)
	ListEnvironments(ctx context.Context, appUUID string) ([]cloudapi.Environment, error)
	GetEnvironment(ctx context.Context, envID string) (*cloudapi.Environment, error)
	GetLogStream(ctx context.Context, envID string) (*cloudapi.LogStream, error)
	GetAccount(ctx context.Context) (*cloudapi.Account, error)
	CreateIDE(ctx context.Context, appUUID, label string) (string, error)
	GetIDE(ctx context.Context, ideUUID string) (*cloudapi.IDE, error)
}

// Prompter asks the user for values. ui.Prompter is the real one.
type Prompter interface {
	Note(text string)
	Confirm(question string, def bool) (bool, error)
	Input(title, def string, validate func(string) error) (string, error)
	Password(title string, validate func(string) error) (string, error)
	MultiSelect(title string, choices []ui.Choice) ([]string, error)
}

// Runtime carries what a command needs. Execute builds one from flags and
// config; tests build one with fakes.
type Runtime struct {
	Config      *config.Config
	In          io.Reader
	Out         io.Writer
	ErrOut      io.Writer
	Log         logger.Logger
	Interactive bool
	Prompt      Prompter
	Pick        func(title string, choices []ui.Choice) (*ui.Choice, error)

	Runner exec.Runner
	Agent  agent.Agent
	Dialer sshutil.Dialer
	Clock  poller.Clock
	Health ide.Checker
	NewAPI func(ctx context.Context) (API, error)

	// Application is the --application flag value.
	Application string
	WorkDir     string
	// JSON selects machine-readable output.
	JSON bool

	closers []io.Closer
}

// newRuntime wires real dependencies from the loaded config and global flags.
func newRuntime(cfg *config.Config, in io.Reader, out, errOut io.Writer) *Runtime {
	rt := &Runtime{
		Config:      cfg,
		In:          in,
		Out:         out,
		ErrOut:      errOut,
		Log:         logger.Default(),
		Runner:      exec.NewLocalRunner(),
		Clock:       poller.RealClock(),
		Health:      ide.NewHealthChecker(cfg.API.Timeout),
		Application: applicationFlag,
		JSON:        machineMode,
	}

	prompter := ui.NewPrompter(in, out)
	if noInteraction {
		prompter.Interactive = false
	}
	rt.Interactive = prompter.Interactive
	rt.Prompt = prompter
	rt.Pick = func(title string, choices []ui.Choice) (*ui.Choice, error) {
		return ui.Pick(title, choices, in, out)
	}

	if ag, closer := keychain.ConnectAgent(); ag != nil {
		rt.Agent = ag
		rt.closers = append(rt.closers, closer)
	}
	rt.Dialer = sshutil.OptionsDialer{Options: rt.sshOptions()}

	rt.NewAPI = func(ctx context.Context) (API, error) {
		creds, err := credentials.Load()
		if err != nil {
			return nil, err
		}
		client, err := cloudapi.New(ctx, cloudapi.Options{
			BaseURL:      cfg.API.BaseURL,
			AuthURL:      cfg.API.AuthURL,
			ClientID:     creds.Key,
			ClientSecret: creds.Secret,
			Timeout:      cfg.API.Timeout,
		})
		if err != nil {
			return nil, err
		}
		client.SetLogger(logger.WithComponent(rt.Log, "api"))
		return client, nil
	}

	if wd, err := os.Getwd(); err == nil {
		rt.WorkDir = wd
	}
	return rt
}

// sshOptions derives connection settings from the ssh config section.
func (rt *Runtime) sshOptions() sshutil.Options {
	opts := sshutil.DefaultOptions()
	dir := rt.Config.SSH.Dir
	opts.Timeout = rt.Config.SSH.ConnectTimeout
	opts.StrictHostKeyChecking = rt.Config.SSH.StrictHostKeyChecking
	opts.KnownHostsPath = filepath.Join(dir, "known_hosts")
	opts.ConfigPath = filepath.Join(dir, "config")
	opts.IdentityFiles = []string{
		filepath.Join(dir, "id_ed25519"),
		filepath.Join(dir, "id_rsa"),
		filepath.Join(dir, "id_ecdsa"),
	}
	opts.Agent = rt.Agent
	return opts
}

// Close releases the agent connection.
func (rt *Runtime) Close() {
	for _, c := range rt.closers {
		c.Close()
	}
	rt.closers = nil
}

// component returns the runtime logger tagged with name.
func (rt *Runtime) component(name string) logger.Logger {
	return logger.WithComponent(rt.Log, name)
}

// choose asks the user to pick one choice. One choice is taken as-is;
// without a terminal more than one is an error naming the flag to use.
func (rt *Runtime) choose(title, flagHint string, choices []ui.Choice) (ui.Choice, error) {
	if len(choices) == 0 {
		return ui.Choice{}, errors.NewResolution("Nothing to choose from: "+title, flagHint)
	}
	if len(choices) == 1 {
		return choices[0], nil
	}
	if !rt.Interactive {
		return ui.Choice{}, errors.New(errors.ErrValidation,
			"Can't ask "+title+" without a terminal", flagHint)
	}

	picked, err := rt.Pick(title, choices)
	if err != nil {
		return ui.Choice{}, err
	}
	if picked == nil {
		return ui.Choice{}, errors.New(errors.ErrValidation, "Cancelled", "")
	}
	return *picked, nil
}

// resolveApplication returns the application UUID from --application, the
// linked config, or a picker over the account's applications.
func (rt *Runtime) resolveApplication(ctx context.Context, api API) (string, error) {
	if rt.Application != "" {
		return rt.Application, nil
	}
	if rt.Config.Application != "" {
		return rt.Config.Application, nil
	}
	return rt.pickApplication(ctx, api)
}

// pickApplication asks the user to choose one of the account's applications.
func (rt *Runtime) pickApplication(ctx context.Context, api API) (string, error) {
	apps, err := api.ListApplications(ctx)
	if err != nil {
		return "", err
	}
	choices := make([]ui.Choice, len(apps))
	for i, a := range apps {
		choices[i] = ui.Choice{Title: a.Name, Description: a.UUID, Value: a.UUID}
	}
	picked, err := rt.choose("Choose a Cloud Platform application",
		"Pass --application <uuid> or run 'cloudctl app:link'.", choices)
	if err != nil {
		return "", err
	}
	return picked.Value, nil
}
