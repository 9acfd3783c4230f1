// Package uploader sends a local public key to the Cloud Platform account and
// optionally waits for it to become usable.
package uploader

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rileyhilliard/cloudctl/internal/cloudapi"
	"github.com/rileyhilliard/cloudctl/internal/logger"
	"github.com/rileyhilliard/cloudctl/internal/poller"
	"github.com/rileyhilliard/cloudctl/internal/sshkey"
	"github.com/rileyhilliard/cloudctl/internal/validate"
)

// Messages shown around the wait prompt.
const (
	PropagationNote = "It may take some time before the SSH key is installed on all of your application's web servers."
	WaitQuestion    = "Would you like to wait until Cloud Platform is ready?"
	UploadedMessage = "Your SSH key has been successfully uploaded to Cloud Platform."
)

// KeyAPI is the part of the platform API the uploader talks to.
type KeyAPI interface {
	CreateSSHKey(ctx context.Context, label, publicKey string) (string, error)
	ListSSHKeys(ctx context.Context) ([]cloudapi.SSHKey, error)
}

// Prompter asks the user questions. A nil Prompter means non-interactive.
type Prompter interface {
	Note(text string)
	Confirm(question string, def bool) (bool, error)
}

// Waiter blocks until the uploaded key works or gives up.
type Waiter interface {
	Wait(ctx context.Context, appUUID string) (poller.PollState, error)
}

// UploadRequest is the payload for one upload. It is never persisted.
type UploadRequest struct {
	Label     string
	PublicKey string
}

// Options for a single Upload call.
type Options struct {
	PublicKeyPath string
	Label         string

	// Wait polls for readiness after a successful upload.
	Wait bool
	// Application is polled for a non-production environment. Resolved lazily
	// through ResolveApp when empty.
	Application string
}

// Result reports what Upload did.
type Result struct {
	Request UploadRequest
	Waited  bool
	Poll    poller.PollState
}

// Uploader runs the upload flow.
type Uploader struct {
	API      KeyAPI
	Waiter   Waiter
	Prompter Prompter
	Out      io.Writer
	Log      logger.Logger

	// ResolveApp is called only when a wait actually starts and no
	// application was given.
	ResolveApp func(ctx context.Context) (string, error)
}

// New returns an uploader writing to out.
func New(api KeyAPI, waiter Waiter, out io.Writer) *Uploader {
	return &Uploader{
		API:    api,
		Waiter: waiter,
		Out:    out,
		Log:    logger.Noop(),
	}
}

// BuildRequest validates the key path and label and reads the key.
func BuildRequest(publicKeyPath, label string) (UploadRequest, string, error) {
	path, err := sshkey.CheckUploadPath(publicKeyPath)
	if err != nil {
		return UploadRequest{}, "", err
	}
	label = validate.NormalizeLabel(label)
	if err := validate.Label(label); err != nil {
		return UploadRequest{}, "", err
	}
	publicKey, err := sshkey.ReadPublicKey(path)
	if err != nil {
		return UploadRequest{}, "", err
	}
	return UploadRequest{Label: label, PublicKey: publicKey}, path, nil
}

// Upload posts the key and, if asked, waits for it to propagate.
// Anything other than 202 from the platform is a RemoteRejection.
func (u *Uploader) Upload(ctx context.Context, opts Options) (Result, error) {
	req, path, err := BuildRequest(opts.PublicKeyPath, opts.Label)
	if err != nil {
		return Result{}, err
	}
	res := Result{Request: req}

	if _, err := u.API.CreateSSHKey(ctx, req.Label, req.PublicKey); err != nil {
		return res, err
	}
	fmt.Fprintf(u.Out, "Uploaded %s to the Cloud Platform with label %s\n", filepath.Base(path), req.Label)

	if !opts.Wait {
		return res, nil
	}

	if u.Prompter != nil {
		u.Prompter.Note(PropagationNote)
		ok, err := u.Prompter.Confirm(WaitQuestion, true)
		if err != nil {
			return res, err
		}
		if !ok {
			fmt.Fprintln(u.Out, UploadedMessage)
			return res, nil
		}
	}

	keys, err := u.API.ListSSHKeys(ctx)
	if err != nil {
		return res, err
	}
	if cloudapi.FindSSHKey(keys, req.PublicKey) == nil {
		u.Log.Debug("uploaded key not listed on the account yet, skipping readiness check")
		return res, nil
	}

	app := opts.Application
	if app == "" && u.ResolveApp != nil {
		if app, err = u.ResolveApp(ctx); err != nil {
			return res, err
		}
	}

	res.Waited = true
	res.Poll, err = u.Waiter.Wait(ctx, app)
	return res, err
}
