package doctor

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/cloudctl/internal/cloudapi"
	"github.com/rileyhilliard/cloudctl/internal/credentials"
)

// CredentialsCheck verifies API credentials are stored or set in the environment.
type CredentialsCheck struct {
	Load func() (credentials.Credentials, error)
}

func (c *CredentialsCheck) Name() string     { return "credentials" }
func (c *CredentialsCheck) Category() string { return "ACCOUNT" }

func (c *CredentialsCheck) Run(_ context.Context) CheckResult {
	load := c.Load
	if load == nil {
		load = credentials.Load
	}
	if _, err := load(); err != nil {
		return fail(c, messageOf(err), suggestionOf(err))
	}
	return pass(c, "API credentials found")
}

// ApplicationLister is the API call used to prove the account works.
type ApplicationLister interface {
	ListApplications(ctx context.Context) ([]cloudapi.Application, error)
}

// APICheck signs in and lists applications.
type APICheck struct {
	Connect func(ctx context.Context) (ApplicationLister, error)
}

func (c *APICheck) Name() string     { return "api" }
func (c *APICheck) Category() string { return "ACCOUNT" }

func (c *APICheck) Run(ctx context.Context) CheckResult {
	api, err := c.Connect(ctx)
	if err != nil {
		return fail(c, messageOf(err), suggestionOf(err))
	}
	apps, err := api.ListApplications(ctx)
	if err != nil {
		return fail(c, messageOf(err), suggestionOf(err))
	}
	if len(apps) == 0 {
		return warn(c, "Signed in, but the account has no applications",
			"Ask an administrator to add you to an application")
	}
	return pass(c, fmt.Sprintf("Signed in, %d application%s visible", len(apps), pluralize(len(apps))))
}
