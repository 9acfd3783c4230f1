package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rileyhilliard/cloudctl/internal/cloudapi"
	"github.com/rileyhilliard/cloudctl/internal/ide"
	"github.com/rileyhilliard/cloudctl/internal/poller"
	"github.com/rileyhilliard/cloudctl/internal/sshkey"
	"github.com/rileyhilliard/cloudctl/internal/ui"
	"github.com/spf13/cobra"
)

const (
	ideLabelQuestion = "Please enter a label for your Cloud IDE. Press enter to use default value"
	ideWaitingLabel  = "Waiting for your IDE to start. This usually takes 2 to 15 minutes"
)

// IDECreateOptions holds options for ide:create.
type IDECreateOptions struct {
	Label string
}

var (
	ideCreateOpts   IDECreateOptions
	ideShareRegen   bool
	ideWizardNoWait bool
)

var ideCreateCmd = &cobra.Command{
	Use:   "ide:create",
	Short: "Create a Cloud IDE for an application",
	Long: `Create a Cloud IDE and wait until it answers its health check.

Examples:
  cloudctl ide:create
  cloudctl ide:create --application 5fb3e2ab-0b7f-4a5e-9b64-0f2b8c1d7a3e --label "Review IDE"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		_, err := ideCreateCommand(cmd.Context(), rt, ideCreateOpts)
		return err
	},
}

var ideShareCmd = &cobra.Command{
	Use:   "ide:share",
	Short: "Print the share link of the current Cloud IDE",
	Long: `Print a link that lets others open this Cloud IDE. --regenerate
replaces the share code, so links handed out before stop working.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		_, err := ideShareCommand(cmd.Context(), rt, ideShareRegen)
		return err
	},
}

var ideWizardSSHKeyCmd = &cobra.Command{
	Use:   "ide:wizard:ssh-key:create-upload",
	Short: "Create an SSH key for the current Cloud IDE and upload it",
	Long: `Give this Cloud IDE its own SSH key. The key is named after the IDE,
so running the wizard again is safe: a key that is already uploaded is left
alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		return ideWizardSSHKeyCommand(cmd.Context(), rt, ideWizardNoWait)
	},
}

func init() {
	ideCreateCmd.Flags().StringVar(&ideCreateOpts.Label, "label", "", "label for the new IDE")
	ideShareCmd.Flags().BoolVar(&ideShareRegen, "regenerate", false, "replace the share code")
	ideWizardSSHKeyCmd.Flags().BoolVar(&ideWizardNoWait, "no-wait", false, "don't wait for the key to become available")
	rootCmd.AddCommand(ideCreateCmd, ideShareCmd, ideWizardSSHKeyCmd)
}

// ideCreated is the JSON shape of ide:create.
type ideCreated struct {
	*cloudapi.IDE
	Ready bool `json:"ready"`
}

// ideCreateCommand creates an IDE and waits for it to come up.
func ideCreateCommand(ctx context.Context, rt *Runtime, opts IDECreateOptions) (*cloudapi.IDE, error) {
	api, err := rt.NewAPI(ctx)
	if err != nil {
		return nil, err
	}
	appUUID, err := rt.resolveApplication(ctx, api)
	if err != nil {
		return nil, err
	}

	label := strings.TrimSpace(opts.Label)
	if label == "" {
		label = ide.DefaultLabel(ctx, api)
		if rt.Interactive {
			if label, err = rt.Prompt.Input(ideLabelQuestion, label, nil); err != nil {
				return nil, err
			}
		}
	}

	c := ide.NewCreator(api, rt.Health)
	c.Clock = rt.Clock
	c.Log = rt.component("ide")
	c.Interval = rt.Config.IDE.Interval
	c.Timeout = rt.Config.IDE.Timeout

	created, err := c.Create(ctx, appUUID, label)
	if err != nil {
		return nil, err
	}
	if !rt.JSON {
		ui.Success(rt.Out, "Created IDE %s", created.Label)
	}

	s := ui.NewSpinner(ideWaitingLabel, rt.Out)
	if !rt.JSON {
		s.Start()
	}
	state, err := c.Wait(ctx, created)
	switch {
	case rt.JSON:
	case err != nil:
		s.Fail()
	case state == poller.Succeeded:
		s.Success()
	default:
		s.Dismiss()
	}
	if err != nil {
		return created, err
	}

	if rt.JSON {
		return created, WriteJSONSuccess(rt.Out, ideCreated{IDE: created, Ready: state == poller.Succeeded})
	}
	ide.Report(rt.Out, created, state)
	return created, nil
}

// ideShareCommand prints the current IDE's share link.
func ideShareCommand(ctx context.Context, rt *Runtime, regenerate bool) (string, error) {
	ideUUID, err := ide.CurrentUUID()
	if err != nil {
		return "", err
	}
	api, err := rt.NewAPI(ctx)
	if err != nil {
		return "", err
	}
	current, err := api.GetIDE(ctx, ideUUID)
	if err != nil {
		return "", err
	}

	code, err := ide.ShareCode(rt.Config.IDE.ShareCodeFile, regenerate)
	if err != nil {
		return "", err
	}
	shareURL, err := ide.ShareURL(current.URL(), code)
	if err != nil {
		return "", err
	}

	if rt.JSON {
		return shareURL, WriteJSONSuccess(rt.Out, map[string]string{"url": shareURL})
	}
	if regenerate {
		ui.Success(rt.Out, "Generated a new share code. Links shared before no longer work.")
	}
	fmt.Fprintf(rt.Out, "Your IDE Share URL: %s\n", shareURL)
	return shareURL, nil
}

// ideWizardSSHKeyCommand gives the current IDE its own key on the account.
func ideWizardSSHKeyCommand(ctx context.Context, rt *Runtime, noWait bool) error {
	ideUUID, err := ide.CurrentUUID()
	if err != nil {
		return err
	}
	api, err := rt.NewAPI(ctx)
	if err != nil {
		return err
	}
	current, err := api.GetIDE(ctx, ideUUID)
	if err != nil {
		return err
	}

	filename := ide.KeyFilename(ideUUID)
	label := ide.KeyLabel(current)
	pubPath := sshkey.PublicPath(sshkey.NewGenerator(rt.Config.SSH.Dir, rt.Runner).Path(filename))
	log := rt.component("ide")

	keys, err := api.ListSSHKeys(ctx)
	if err != nil {
		return err
	}

	local := ""
	if _, statErr := os.Stat(pubPath); statErr == nil {
		if local, err = sshkey.ReadPublicKey(pubPath); err != nil {
			return err
		}
		for _, k := range keys {
			if sshkey.Normalize(k.PublicKey) == sshkey.Normalize(local) {
				fmt.Fprintf(rt.Out, "The SSH key %s is already uploaded to the Cloud Platform.\n", filename)
				return nil
			}
		}
	}

	// A key under the IDE's label with another public key is left over from
	// an earlier IDE home directory.
	for _, k := range keys {
		if k.Label != label {
			continue
		}
		log.Debug("deleting stale IDE key %s", k.UUID)
		if err := api.DeleteSSHKey(ctx, k.UUID); err != nil {
			return err
		}
		fmt.Fprintln(rt.Out, ui.Muted("Removed the old SSH key "+label+" from the Cloud Platform."))
	}

	if local == "" {
		pair, err := sshKeyCreateCommand(ctx, rt, CreateOptions{Filename: filename, Password: uuid.NewString()})
		if err != nil {
			return err
		}
		pubPath = pair.PublicPath
	}

	_, err = sshKeyUploadCommand(ctx, rt, UploadOptions{Filepath: pubPath, Label: label, NoWait: noWait})
	return err
}
