// Package ide provisions Cloud IDEs and handles the chores that only make
// sense inside one: its SSH key and its share link.
//
// A new IDE is reachable some minutes after the API accepts it. Creator
// waits for that by polling the IDE's /health endpoint with the same
// ticker and deadline loop the SSH key poller uses.
package ide

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rileyhilliard/cloudctl/internal/cloudapi"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/logger"
	"github.com/rileyhilliard/cloudctl/internal/poller"
	"github.com/rileyhilliard/cloudctl/internal/ui"
	"github.com/rileyhilliard/cloudctl/internal/validate"
)

// Defaults for waiting on a new IDE.
const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 10 * time.Minute
)

// EnvUUID names the variable the platform sets inside every IDE.
const EnvUUID = "CLOUDCTL_IDE_UUID"

// ReadyMessage is printed once the IDE answers its health check.
const ReadyMessage = "Your IDE is ready!"

// KeyFilenamePrefix starts the name of the key the IDE uses for the platform.
const KeyFilenamePrefix = "id_rsa_cloud_ide_"

// API is the part of the platform API the IDE commands use.
type API interface {
	GetAccount(ctx context.Context) (*cloudapi.Account, error)
	CreateIDE(ctx context.Context, appUUID, label string) (string, error)
	GetIDE(ctx context.Context, ideUUID string) (*cloudapi.IDE, error)
}

// Checker tests whether a running IDE answers.
type Checker interface {
	Check(ctx context.Context, ideURL string) error
}

// Creator creates IDEs and waits for them to come up.
type Creator struct {
	API      API
	Health   Checker
	Clock    poller.Clock
	Log      logger.Logger
	Interval time.Duration
	Timeout  time.Duration
}

// NewCreator returns a creator with the default interval, timeout and real clock.
func NewCreator(api API, health Checker) *Creator {
	return &Creator{
		API:      api,
		Health:   health,
		Clock:    poller.RealClock(),
		Log:      logger.Noop(),
		Interval: DefaultInterval,
		Timeout:  DefaultTimeout,
	}
}

// DefaultLabel is offered when asking for the label of a new IDE.
func DefaultLabel(ctx context.Context, api API) string {
	acct, err := api.GetAccount(ctx)
	if err != nil || strings.TrimSpace(acct.Name) == "" {
		return "My IDE"
	}
	return strings.TrimSpace(acct.Name) + "'s IDE"
}

// Create asks the platform for a new IDE on appUUID and returns it.
func (c *Creator) Create(ctx context.Context, appUUID, label string) (*cloudapi.IDE, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, errors.NewValidation("label", "The IDE label cannot be empty")
	}
	ideUUID, err := c.API.CreateIDE(ctx, appUUID, label)
	if err != nil {
		return nil, err
	}
	c.Log.Debug("created IDE %s", ideUUID)
	created, err := c.API.GetIDE(ctx, ideUUID)
	if err != nil {
		return nil, err
	}
	if created.URL() == "" {
		return nil, errors.New(errors.ErrAPI,
			"The platform returned no URL for IDE "+ideUUID, "")
	}
	return created, nil
}

// Wait polls the IDE's health check until it passes or the timeout elapses.
// A timeout is not an error.
func (c *Creator) Wait(ctx context.Context, created *cloudapi.IDE) (poller.State, error) {
	failed := func(attempt int, err error) {
		c.Log.Debug("health attempt %d on %s failed: %v", attempt, created.UUID, err)
	}
	check := func(ctx context.Context) error { return c.Health.Check(ctx, created.URL()) }
	state, _, err := poller.Until(ctx, c.Clock, c.Interval, c.Timeout, check, failed)
	return state, err
}

// Report prints the outcome of Wait.
func Report(w io.Writer, created *cloudapi.IDE, state poller.State) {
	if state != poller.Succeeded {
		ui.Warning(w, "Your IDE isn't answering yet. It can take a few more minutes to start.")
		fmt.Fprintf(w, "Your IDE URL: %s\n", created.URL())
		return
	}
	fmt.Fprintln(w, ReadyMessage)
	fmt.Fprintf(w, "Your IDE URL: %s\n", created.URL())
	if site := created.SiteURL(); site != "" {
		fmt.Fprintf(w, "Your site URL: %s\n", site)
	}
}

// CurrentUUID returns the UUID of the IDE this process runs in.
func CurrentUUID() (string, error) {
	id := strings.TrimSpace(os.Getenv(EnvUUID))
	if id == "" {
		return "", errors.New(errors.ErrValidation,
			"This command can only be run inside a Cloud IDE",
			fmt.Sprintf("Run it from an IDE terminal, where %s is set.", EnvUUID))
	}
	return id, nil
}

// KeyFilename is the private key filename for the IDE with ideUUID.
func KeyFilename(ideUUID string) string {
	return KeyFilenamePrefix + ideUUID
}

// KeyLabel is the platform label of an IDE's SSH key.
func KeyLabel(i *cloudapi.IDE) string {
	return validate.NormalizeLabel("IDE_" + i.Label + "_" + i.UUID)
}
