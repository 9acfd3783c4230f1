// Package cloudapi is a small client for the Cloud Platform REST API. It only
// models the endpoints cloudctl uses.
package cloudapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTimeout bounds every API request.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL      string
	AuthURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to the Cloud Platform API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
}

// New returns a client that authenticates with the OAuth2 client-credentials grant.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, errors.New(errors.ErrAuth,
			"No API credentials found",
			"Run 'cloudctl auth:login' with your API key and secret")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cc := clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.AuthURL,
	}
	// The token fetch uses the context's client, so it gets the same timeout.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	hc := cc.Client(ctx)
	hc.Timeout = timeout

	return NewWithHTTPClient(opts.BaseURL, hc), nil
}

// NewWithHTTPClient returns a client that sends requests through hc as-is.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
		log:        logger.Noop(),
	}
}

// SetLogger sets the logger used for request tracing.
func (c *Client) SetLogger(l logger.Logger) {
	c.log = l
}

// do sends a request and decodes the response into result when the status
// matches want. Any other status becomes a RemoteRejection carrying the body.
func (c *Client) do(ctx context.Context, method, path string, body any, want int, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrAPI, "Couldn't encode request", "")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrAPI,
			fmt.Sprintf("Couldn't build request for %s", path),
			"Check api.base_url in your config")
	}
	req.Header.Set("Accept", "application/hal+json, application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("%s %s", method, req.URL.String())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrAPI, "Couldn't read API response", "")
	}
	c.log.Debug("%s %s -> %d", method, path, resp.StatusCode)

	if resp.StatusCode != want {
		return errors.NewRemoteRejection(resp.StatusCode, string(data))
	}
	if result == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return errors.WrapWithCode(err, errors.ErrAPI,
			fmt.Sprintf("Couldn't decode response from %s", path), "")
	}
	return nil
}

func (c *Client) transportError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return errors.WrapWithCode(err, errors.ErrAuth,
			"The Cloud Platform rejected your API credentials",
			"Run 'cloudctl auth:login' again with a valid key and secret")
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return errors.WrapWithCode(err, errors.ErrAPI,
			"The Cloud Platform API timed out",
			"Try again, or raise api.timeout in your config")
	}
	return errors.WrapWithCode(err, errors.ErrAPI,
		"Couldn't reach the Cloud Platform API",
		"Check your network connection and api.base_url")
}

func checkUUID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.NewValidation(kind+" UUID", fmt.Sprintf("%q is not a valid %s UUID", id, kind))
	}
	return nil
}

// ListSSHKeys returns the keys on the current account.
func (c *Client) ListSSHKeys(ctx context.Context) ([]SSHKey, error) {
	var resp collection[SSHKey]
	if err := c.do(ctx, http.MethodGet, "/account/ssh-keys", nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Embedded.Items, nil
}

// CreateSSHKey uploads a public key. The platform answers 202 and installs
// the key asynchronously.
func (c *Client) CreateSSHKey(ctx context.Context, label, publicKey string) (string, error) {
	var resp messageResponse
	err := c.do(ctx, http.MethodPost, "/account/ssh-keys",
		CreateSSHKeyRequest{Label: label, PublicKey: publicKey}, http.StatusAccepted, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// DeleteSSHKey removes a key from the account.
func (c *Client) DeleteSSHKey(ctx context.Context, keyUUID string) error {
	if err := checkUUID("SSH key", keyUUID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/account/ssh-keys/"+keyUUID, nil, http.StatusAccepted, nil)
}

// ListApplications returns the applications the account can see.
func (c *Client) ListApplications(ctx context.Context) ([]Application, error) {
	var resp collection[Application]
	if err := c.do(ctx, http.MethodGet, "/applications", nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Embedded.Items, nil
}

// GetApplication returns one application.
func (c *Client) GetApplication(ctx context.Context, appUUID string) (*Application, error) {
	if err := checkUUID("application", appUUID); err != nil {
		return nil, err
	}
	var app Application
	if err := c.do(ctx, http.MethodGet, "/applications/"+appUUID, nil, http.StatusOK, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// ListEnvironments returns an application's environments in API order.
func (c *Client) ListEnvironments(ctx context.Context, appUUID string) ([]Environment, error) {
	if err := checkUUID("application", appUUID); err != nil {
		return nil, err
	}
	var resp collection[Environment]
	path := fmt.Sprintf("/applications/%s/environments", appUUID)
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Embedded.Items, nil
}

// GetEnvironment returns one environment by ID.
func (c *Client) GetEnvironment(ctx context.Context, envID string) (*Environment, error) {
	var env Environment
	if err := c.do(ctx, http.MethodGet, "/environments/"+url.PathEscape(envID), nil, http.StatusOK, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// GetLogStream returns the websocket details for an environment's logs.
func (c *Client) GetLogStream(ctx context.Context, envID string) (*LogStream, error) {
	var resp logStreamResponse
	path := fmt.Sprintf("/environments/%s/logstream", url.PathEscape(envID))
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	if resp.LogStream.URL == "" {
		return nil, errors.New(errors.ErrAPI,
			"The platform returned no log stream for environment "+envID,
			"Make sure the environment supports log streaming")
	}
	return &resp.LogStream, nil
}

// GetAccount returns the account the credentials belong to.
func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	var acct Account
	if err := c.do(ctx, http.MethodGet, "/account", nil, http.StatusOK, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// CreateIDE asks the platform for a new IDE and returns its UUID, taken from
// the self link of the 202 response.
func (c *Client) CreateIDE(ctx context.Context, appUUID, label string) (string, error) {
	if err := checkUUID("application", appUUID); err != nil {
		return "", err
	}
	var resp messageResponse
	p := fmt.Sprintf("/applications/%s/ides", appUUID)
	if err := c.do(ctx, http.MethodPost, p, CreateIDERequest{Label: label}, http.StatusAccepted, &resp); err != nil {
		return "", err
	}
	ideUUID := lastSegment(resp.Links.Self.Href)
	if _, err := uuid.Parse(ideUUID); err != nil {
		return "", errors.New(errors.ErrAPI,
			"The platform accepted the IDE but returned no IDE link",
			"Run 'cloudctl ide:create' again, or check the IDE list in the Cloud Platform UI")
	}
	return ideUUID, nil
}

// GetIDE returns one IDE.
func (c *Client) GetIDE(ctx context.Context, ideUUID string) (*IDE, error) {
	if err := checkUUID("IDE", ideUUID); err != nil {
		return nil, err
	}
	var ide IDE
	if err := c.do(ctx, http.MethodGet, "/ides/"+ideUUID, nil, http.StatusOK, &ide); err != nil {
		return nil, err
	}
	return &ide, nil
}

// lastSegment returns the final path element of a link, or "".
func lastSegment(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.Path == "" {
		return ""
	}
	return path.Base(strings.TrimRight(u.Path, "/"))
}

// FindSSHKey returns the account key whose public key matches publicKey
// after trimming, or nil.
func FindSSHKey(keys []SSHKey, publicKey string) *SSHKey {
	want := strings.TrimSpace(publicKey)
	for i := range keys {
		if strings.TrimSpace(keys[i].PublicKey) == want {
			return &keys[i]
		}
	}
	return nil
}

// FirstNonProduction returns the first environment not flagged production, or nil.
func FirstNonProduction(envs []Environment) *Environment {
	for i := range envs {
		if !envs[i].IsProduction() {
			return &envs[i]
		}
	}
	return nil
}
