package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rileyhilliard/cloudctl/internal/cloudapi"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/keychain"
	"github.com/rileyhilliard/cloudctl/internal/logger"
	"github.com/rileyhilliard/cloudctl/internal/poller"
	"github.com/rileyhilliard/cloudctl/internal/sshkey"
	"github.com/rileyhilliard/cloudctl/internal/ui"
	"github.com/rileyhilliard/cloudctl/internal/uploader"
	"github.com/rileyhilliard/cloudctl/internal/validate"
	"github.com/spf13/cobra"
)

// DefaultKeyFilename is offered when asking for a new key's filename.
const DefaultKeyFilename = "id_rsa_cloud"

// Prompt texts
const (
	filenameQuestion = "Please enter a filename for your new local SSH key. Press enter to use default value"
	passwordQuestion = "Enter a password for your SSH key"
	labelQuestion    = "Please enter a Cloud Platform label for this SSH key"
	chooseKeyTitle   = "Choose a local SSH key to upload to the Cloud Platform"
	waitingLabel     = "Waiting for the key to become available on the Cloud Platform"
)

// CreateOptions holds options for ssh-key:create.
type CreateOptions struct {
	Filename string
	Password string
}

// UploadOptions holds options for ssh-key:upload.
type UploadOptions struct {
	Filepath string
	Label    string
	NoWait   bool
}

var (
	createOpts       CreateOptions
	uploadOpts       UploadOptions
	createUploadOpts struct {
		CreateOptions
		Label  string
		NoWait bool
	}
)

var sshKeyCreateCmd = &cobra.Command{
	Use:   "ssh-key:create",
	Short: "Create an SSH key on your local machine",
	Long: `Generate a new RSA key pair in the SSH directory and load it into your
SSH agent.

Examples:
  cloudctl ssh-key:create
  cloudctl ssh-key:create --filename id_rsa_cloud --password 's3cret!'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		_, err := sshKeyCreateCommand(cmd.Context(), rt, createOpts)
		return err
	},
}

var sshKeyUploadCmd = &cobra.Command{
	Use:   "ssh-key:upload",
	Short: "Upload a local SSH key to the Cloud Platform",
	Long: `Upload a public key to your Cloud Platform account, then wait until
the key works on a non-production environment.

Examples:
  cloudctl ssh-key:upload
  cloudctl ssh-key:upload --filepath ~/.ssh/id_rsa_cloud.pub --label laptop --no-wait`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		_, err := sshKeyUploadCommand(cmd.Context(), rt, uploadOpts)
		return err
	},
}

var sshKeyCreateUploadCmd = &cobra.Command{
	Use:   "ssh-key:create-upload",
	Short: "Create an SSH key on your local machine and upload it to the Cloud Platform",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		return sshKeyCreateUploadCommand(cmd.Context(), rt, createUploadOpts.CreateOptions,
			UploadOptions{Label: createUploadOpts.Label, NoWait: createUploadOpts.NoWait})
	},
}

var sshKeyListCmd = &cobra.Command{
	Use:   "ssh-key:list",
	Short: "List the SSH keys on your Cloud Platform account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		return sshKeyListCommand(cmd.Context(), rt)
	},
}

var sshKeyDeleteCmd = &cobra.Command{
	Use:   "ssh-key:delete [key-uuid]",
	Short: "Delete an SSH key from your Cloud Platform account",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		var keyUUID string
		if len(args) > 0 {
			keyUUID = args[0]
		}
		return sshKeyDeleteCommand(cmd.Context(), rt, keyUUID)
	},
}

func init() {
	sshKeyCreateCmd.Flags().StringVar(&createOpts.Filename, "filename", "", "filename of the new private key")
	sshKeyCreateCmd.Flags().StringVar(&createOpts.Password, "password", "", "password for the new key")

	sshKeyUploadCmd.Flags().StringVar(&uploadOpts.Filepath, "filepath", "", "path of the public key to upload")
	sshKeyUploadCmd.Flags().StringVar(&uploadOpts.Label, "label", "", "Cloud Platform label for the key")
	sshKeyUploadCmd.Flags().BoolVar(&uploadOpts.NoWait, "no-wait", false, "don't wait for the key to become available")

	sshKeyCreateUploadCmd.Flags().StringVar(&createUploadOpts.Filename, "filename", "", "filename of the new private key")
	sshKeyCreateUploadCmd.Flags().StringVar(&createUploadOpts.Password, "password", "", "password for the new key")
	sshKeyCreateUploadCmd.Flags().StringVar(&createUploadOpts.Label, "label", "", "Cloud Platform label for the key")
	sshKeyCreateUploadCmd.Flags().BoolVar(&createUploadOpts.NoWait, "no-wait", false, "don't wait for the key to become available")

	rootCmd.AddCommand(sshKeyCreateCmd, sshKeyUploadCmd, sshKeyCreateUploadCmd, sshKeyListCmd, sshKeyDeleteCmd)
}

// sshKeyCreateCommand generates a key pair and registers it with the agent.
func sshKeyCreateCommand(ctx context.Context, rt *Runtime, opts CreateOptions) (sshkey.KeyPair, error) {
	filename, err := determineFilename(rt, opts.Filename)
	if err != nil {
		return sshkey.KeyPair{}, err
	}
	password, err := determinePassword(rt, opts.Password)
	if err != nil {
		return sshkey.KeyPair{}, err
	}

	gen := sshkey.NewGenerator(rt.Config.SSH.Dir, rt.Runner)
	gen.Log = rt.component("sshkey")
	pair, err := gen.Generate(ctx, filename, password)
	if err != nil {
		return sshkey.KeyPair{}, err
	}
	ui.Success(rt.Out, "Created new SSH key %s", pair.PublicPath)

	reg := keychain.NewRegistrar(rt.Config.Keychain.Method, rt.Runner, rt.Agent)
	reg.Log = rt.component("keychain")
	added, err := reg.Register(ctx, pair, password)
	if err != nil {
		return pair, err
	}
	if added {
		ui.Success(rt.Out, "Added %s to your SSH agent", pair.Filename)
	} else {
		fmt.Fprintf(rt.Out, "%s is already loaded in your SSH agent\n", pair.Filename)
	}
	return pair, nil
}

func determineFilename(rt *Runtime, flag string) (string, error) {
	if flag != "" {
		return flag, validate.Filename(flag)
	}
	filename, err := rt.Prompt.Input(filenameQuestion, DefaultKeyFilename, trimmed(validate.Filename))
	if err != nil {
		return "", err
	}
	filename = strings.TrimSpace(filename)
	return filename, validate.Filename(filename)
}

func determinePassword(rt *Runtime, flag string) (string, error) {
	if flag != "" {
		return flag, validate.Password(flag)
	}
	if !rt.Interactive {
		return "", errors.New(errors.ErrValidation,
			"A password for the new key is required",
			"Pass --password, or run the command in a terminal.")
	}
	password, err := rt.Prompt.Password(passwordQuestion, trimmed(validate.Password))
	if err != nil {
		return "", err
	}
	password = strings.TrimSpace(password)
	return password, validate.Password(password)
}

// trimmed applies check to the value the user will end up with.
func trimmed(check func(string) error) func(string) error {
	return func(s string) error { return check(strings.TrimSpace(s)) }
}

// sshKeyUploadCommand uploads a local public key and optionally waits for it.
func sshKeyUploadCommand(ctx context.Context, rt *Runtime, opts UploadOptions) (uploader.Result, error) {
	path, err := determinePublicKey(rt, opts.Filepath)
	if err != nil {
		return uploader.Result{}, err
	}
	label, err := determineLabel(rt, opts.Label)
	if err != nil {
		return uploader.Result{}, err
	}

	api, err := rt.NewAPI(ctx)
	if err != nil {
		return uploader.Result{}, err
	}

	p := poller.New(api, poller.NewSSHChecker(rt.Dialer), rt.Out)
	p.Clock = rt.Clock
	p.Log = rt.component("poller")
	p.Interval = rt.Config.Poll.Interval
	p.Timeout = rt.Config.Poll.Timeout

	up := uploader.New(api, &spinnerWaiter{poller: p, out: rt.Out, log: rt.component("cli")}, rt.Out)
	up.Log = rt.component("uploader")
	if rt.Interactive {
		up.Prompter = rt.Prompt
	}
	up.ResolveApp = func(ctx context.Context) (string, error) {
		return rt.resolveApplication(ctx, api)
	}

	return up.Upload(ctx, uploader.Options{
		PublicKeyPath: path,
		Label:         label,
		Wait:          !opts.NoWait,
		Application:   rt.Application,
	})
}

// determinePublicKey returns the --filepath value, or the key picked from the SSH directory.
func determinePublicKey(rt *Runtime, flag string) (string, error) {
	if flag != "" {
		return sshkey.CheckUploadPath(flag)
	}

	keys, err := sshkey.FindPublicKeys(rt.Config.SSH.Dir)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", errors.NewResolution(
			fmt.Sprintf("No public SSH keys found in %s", rt.Config.SSH.Dir),
			"Create one with 'cloudctl ssh-key:create', or pass --filepath.")
	}

	choices := make([]ui.Choice, len(keys))
	for i, k := range keys {
		choices[i] = ui.Choice{Title: k.Filename, Description: k.Type, Value: k.Path}
	}
	picked, err := rt.choose(chooseKeyTitle, "Pass --filepath <key.pub>.", choices)
	if err != nil {
		return "", err
	}
	return picked.Value, nil
}

func determineLabel(rt *Runtime, flag string) (string, error) {
	checkLabel := func(s string) error { return validate.Label(validate.NormalizeLabel(s)) }
	if flag != "" {
		return validate.NormalizeLabel(flag), checkLabel(flag)
	}
	label, err := rt.Prompt.Input(labelQuestion, "", checkLabel)
	if err != nil {
		return "", err
	}
	label = validate.NormalizeLabel(label)
	return label, validate.Label(label)
}

// sshKeyCreateUploadCommand creates a key and uploads its public half.
func sshKeyCreateUploadCommand(ctx context.Context, rt *Runtime, create CreateOptions, upload UploadOptions) error {
	pair, err := sshKeyCreateCommand(ctx, rt, create)
	if err != nil {
		return err
	}
	upload.Filepath = pair.PublicPath
	_, err = sshKeyUploadCommand(ctx, rt, upload)
	return err
}

// spinnerWaiter shows a spinner while the poller runs. The poller's own
// output is held back until the spinner line is gone.
type spinnerWaiter struct {
	poller *poller.Poller
	out    io.Writer
	log    logger.Logger
}

func (w *spinnerWaiter) Wait(ctx context.Context, appUUID string) (poller.PollState, error) {
	var held bytes.Buffer
	w.poller.Out = &held

	s := ui.NewSpinner(waitingLabel, w.out)
	s.Start()
	st, err := w.poller.Wait(ctx, appUUID)
	switch {
	case err != nil:
		s.Fail()
	case st.State == poller.Succeeded:
		s.Success()
	default:
		s.Dismiss()
	}

	if _, werr := w.out.Write(held.Bytes()); werr != nil {
		w.log.Debug("writing poller output: %v", werr)
	}
	return st, err
}

// sshKeyListCommand prints the account's keys, marking the ones found locally.
func sshKeyListCommand(ctx context.Context, rt *Runtime) error {
	api, err := rt.NewAPI(ctx)
	if err != nil {
		return err
	}
	keys, err := api.ListSSHKeys(ctx)
	if err != nil {
		return err
	}
	local := localKeyIndex(rt)
	listed := make([]listedKey, len(keys))
	for i, k := range keys {
		listed[i] = listedKey{SSHKey: k, LocalFile: local[sshkey.Normalize(k.PublicKey)]}
		if listed[i].Fingerprint == "" {
			listed[i].Fingerprint, _ = sshkey.Fingerprint(k.PublicKey)
		}
	}

	if rt.JSON {
		return WriteJSONSuccess(rt.Out, listed)
	}
	if len(keys) == 0 {
		fmt.Fprintln(rt.Out, "No SSH keys on your Cloud Platform account.")
		return nil
	}

	rows := make([][]string, len(listed))
	for i, k := range listed {
		rows[i] = []string{k.Label, k.LocalFile, k.UUID, k.Fingerprint}
	}

	fmt.Fprint(rt.Out, ui.RenderTable([]ui.TableColumn{
		{Title: "Label"}, {Title: "Local file"}, {Title: "UUID"}, {Title: "Fingerprint"},
	}, rows))
	return nil
}

// listedKey is an account key annotated with the matching local file.
type listedKey struct {
	cloudapi.SSHKey
	LocalFile string `json:"local_file,omitempty"`
}

// localKeyIndex maps normalized public keys in the SSH directory to their filenames.
func localKeyIndex(rt *Runtime) map[string]string {
	index := make(map[string]string)
	keys, err := sshkey.FindPublicKeys(rt.Config.SSH.Dir)
	if err != nil {
		rt.Log.Debug("listing local keys: %v", err)
		return index
	}
	for _, k := range keys {
		pub, err := sshkey.ReadPublicKey(k.Path)
		if err != nil {
			continue
		}
		index[sshkey.Normalize(pub)] = k.Filename
	}
	return index
}

// sshKeyDeleteCommand deletes an account key chosen by UUID or picker.
func sshKeyDeleteCommand(ctx context.Context, rt *Runtime, keyUUID string) error {
	api, err := rt.NewAPI(ctx)
	if err != nil {
		return err
	}
	keys, err := api.ListSSHKeys(ctx)
	if err != nil {
		return err
	}

	var target *cloudapi.SSHKey
	if keyUUID != "" {
		for i := range keys {
			if keys[i].UUID == keyUUID {
				target = &keys[i]
				break
			}
		}
		if target == nil {
			return errors.NewResolution(
				fmt.Sprintf("No SSH key with UUID %s on your account", keyUUID),
				"Run 'cloudctl ssh-key:list' to see your keys.")
		}
	} else {
		choices := make([]ui.Choice, len(keys))
		for i, k := range keys {
			choices[i] = ui.Choice{Title: k.Label, Description: k.UUID, Value: k.UUID}
		}
		picked, err := rt.choose("Choose an SSH key to delete from the Cloud Platform", "Pass the key UUID as an argument.", choices)
		if err != nil {
			return err
		}
		for i := range keys {
			if keys[i].UUID == picked.Value {
				target = &keys[i]
			}
		}
	}

	if rt.Interactive {
		ok, err := rt.Prompt.Confirm(fmt.Sprintf("Delete SSH key %s from the Cloud Platform?", target.Label), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(rt.Out, "Cancelled.")
			return nil
		}
	}

	if err := api.DeleteSSHKey(ctx, target.UUID); err != nil {
		return err
	}
	ui.Success(rt.Out, "Deleted SSH key %s (%s)", target.Label, target.UUID)
	return nil
}
