package doctor

import (
	"context"
	"testing"

	"github.com/rileyhilliard/cloudctl/internal/cloudapi"
	"github.com/rileyhilliard/cloudctl/internal/credentials"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/stretchr/testify/assert"
)

type stubLister struct {
	apps []cloudapi.Application
	err  error
}

func (s stubLister) ListApplications(ctx context.Context) ([]cloudapi.Application, error) {
	return s.apps, s.err
}

func TestCredentialsCheck(t *testing.T) {
	ok := &CredentialsCheck{Load: func() (credentials.Credentials, error) {
		return credentials.Credentials{Key: "k", Secret: "s"}, nil
	}}
	assert.Equal(t, StatusPass, ok.Run(context.Background()).Status)

	missing := &CredentialsCheck{Load: func() (credentials.Credentials, error) {
		return credentials.Credentials{}, errors.New(errors.ErrAuth, "No API credentials found", "Run 'cloudctl auth:login'")
	}}
	res := missing.Run(context.Background())
	assert.Equal(t, StatusFail, res.Status)
	assert.Equal(t, "No API credentials found", res.Message)
	assert.Equal(t, "Run 'cloudctl auth:login'", res.Suggestion)
}

func TestAPICheck(t *testing.T) {
	tests := []struct {
		name    string
		lister  stubLister
		connErr error
		want    CheckStatus
	}{
		{name: "apps visible", lister: stubLister{apps: []cloudapi.Application{{Name: "a"}}}, want: StatusPass},
		{name: "no apps", lister: stubLister{}, want: StatusWarn},
		{name: "list fails", lister: stubLister{err: errors.NewRemoteRejection(403, "forbidden")}, want: StatusFail},
		{name: "connect fails", connErr: errors.New(errors.ErrAuth, "bad token", ""), want: StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := &APICheck{Connect: func(ctx context.Context) (ApplicationLister, error) {
				if tt.connErr != nil {
					return nil, tt.connErr
				}
				return tt.lister, nil
			}}
			assert.Equal(t, tt.want, check.Run(context.Background()).Status)
		})
	}
}
