package poller_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/rileyhilliard/cloudctl/internal/cloudapi"
	"github.com/rileyhilliard/cloudctl/internal/poller"
	sshtesting "github.com/rileyhilliard/cloudctl/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSHChecker(t *testing.T) {
	e := env("2-dev", false)

	t.Run("success runs ls and closes", func(t *testing.T) {
		d := sshtesting.NewMockDialer()
		c := poller.NewSSHChecker(d)

		require.NoError(t, c.Check(context.Background(), e))

		client := d.Client(e.SSHURL)
		assert.Equal(t, []string{"ls"}, client.Executed)
		assert.True(t, client.Closed())
	})

	t.Run("dial failure", func(t *testing.T) {
		d := sshtesting.NewMockDialer()
		d.FailNext(fmt.Errorf("unable to authenticate"))

		err := poller.NewSSHChecker(d).Check(context.Background(), e)
		assert.ErrorContains(t, err, "unable to authenticate")
	})

	t.Run("non-zero exit", func(t *testing.T) {
		d := sshtesting.NewMockDialer()
		d.Client(e.SSHURL).SetCommandResponse("ls", sshtesting.CommandResponse{
			ExitCode: 255, Stderr: []byte("Permission denied (publickey)"),
		})

		err := poller.NewSSHChecker(d).Check(context.Background(), e)
		assert.ErrorContains(t, err, "Permission denied")
	})

	t.Run("missing ssh url", func(t *testing.T) {
		err := poller.NewSSHChecker(sshtesting.NewMockDialer()).Check(context.Background(), cloudapi.Environment{ID: "x"})
		assert.ErrorContains(t, err, "no SSH URL")
	})
}
