package cli

import (
	"fmt"

	"github.com/rileyhilliard/cloudctl/internal/credentials"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/ui"
	"github.com/spf13/cobra"
)

// LoginOptions holds options for auth:login.
type LoginOptions struct {
	Key    string
	Secret string
}

var loginOpts LoginOptions

var authLoginCmd = &cobra.Command{
	Use:   "auth:login",
	Short: "Store your Cloud Platform API key and secret",
	Long: `Save an API key and secret so other commands can call the Cloud Platform.
Credentials go to the OS keyring, or to a private file when no keyring exists.
CLOUDCTL_API_KEY and CLOUDCTL_API_SECRET override stored credentials.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		return authLoginCommand(rt, loginOpts)
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "auth:logout",
	Short: "Remove stored Cloud Platform credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		return authLogoutCommand(rt)
	},
}

func init() {
	authLoginCmd.Flags().StringVarP(&loginOpts.Key, "key", "k", "", "API key")
	authLoginCmd.Flags().StringVarP(&loginOpts.Secret, "secret", "s", "", "API secret")

	rootCmd.AddCommand(authLoginCmd, authLogoutCmd)
}

func authLoginCommand(rt *Runtime, opts LoginOptions) error {
	notEmpty := func(s string) error {
		if s == "" {
			return errors.NewValidation("credentials", "This value should not be blank.")
		}
		return nil
	}

	creds := credentials.Credentials{Key: opts.Key, Secret: opts.Secret}
	if (creds.Key == "" || creds.Secret == "") && !rt.Interactive {
		return errors.New(errors.ErrAuth, "An API key and secret are required",
			"Pass --key and --secret, or set CLOUDCTL_API_KEY and CLOUDCTL_API_SECRET.")
	}

	var err error
	if creds.Key == "" {
		if creds.Key, err = rt.Prompt.Input("Enter your Cloud Platform API key", "", notEmpty); err != nil {
			return err
		}
	}
	if creds.Secret == "" {
		if creds.Secret, err = rt.Prompt.Password("Enter your Cloud Platform API secret", notEmpty); err != nil {
			return err
		}
	}

	if err := credentials.Store(creds); err != nil {
		return err
	}
	ui.Success(rt.Out, "Saved credentials for API key %s", maskKey(creds.Key))
	return nil
}

func authLogoutCommand(rt *Runtime) error {
	if err := credentials.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(rt.Out, "Removed stored Cloud Platform credentials.")
	return nil
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8] + "…"
}
