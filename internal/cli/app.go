package cli

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/cloudctl/internal/config"
	"github.com/rileyhilliard/cloudctl/internal/ui"
	"github.com/spf13/cobra"
)

var appLinkCmd = &cobra.Command{
	Use:   "app:link [application-uuid]",
	Short: "Link this directory to a Cloud Platform application",
	Long: `Record an application UUID in .cloudctl.yaml so commands in this
directory use it without --application.

Examples:
  cloudctl app:link
  cloudctl app:link 5fb3e2ab-0b7f-4a5e-9b64-0f2b8c1d7a3e`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		var appUUID string
		if len(args) > 0 {
			appUUID = args[0]
		}
		_, err := appLinkCommand(cmd.Context(), rt, appUUID)
		return err
	},
}

var appUnlinkCmd = &cobra.Command{
	Use:   "app:unlink",
	Short: "Remove the application link from this directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		return appUnlinkCommand(rt)
	},
}

var envListCmd = &cobra.Command{
	Use:   "env:list",
	Short: "List the environments of an application",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		return envListCommand(cmd.Context(), rt)
	},
}

func init() {
	rootCmd.AddCommand(appLinkCmd, appUnlinkCmd, envListCmd)
}

// appLinkCommand writes the chosen application into the project config and
// returns the config path.
func appLinkCommand(ctx context.Context, rt *Runtime, appUUID string) (string, error) {
	api, err := rt.NewAPI(ctx)
	if err != nil {
		return "", err
	}

	name := appUUID
	if appUUID != "" {
		app, err := api.GetApplication(ctx, appUUID)
		if err != nil {
			return "", err
		}
		name = app.Name
	} else {
		if appUUID, err = rt.pickApplication(ctx, api); err != nil {
			return "", err
		}
		name = appUUID
	}

	path := config.ProjectPath(rt.WorkDir)
	if err := config.SetApplication(path, appUUID); err != nil {
		return "", err
	}
	ui.Success(rt.Out, "Linked %s to application %s", path, name)
	return path, nil
}

func appUnlinkCommand(rt *Runtime) error {
	path := config.FindProject(rt.WorkDir)
	if path == "" {
		fmt.Fprintln(rt.Out, "This directory isn't linked to an application.")
		return nil
	}
	if err := config.SetApplication(path, ""); err != nil {
		return err
	}
	fmt.Fprintf(rt.Out, "Removed the application link from %s\n", path)
	return nil
}

func envListCommand(ctx context.Context, rt *Runtime) error {
	api, err := rt.NewAPI(ctx)
	if err != nil {
		return err
	}
	appUUID, err := rt.resolveApplication(ctx, api)
	if err != nil {
		return err
	}
	envs, err := api.ListEnvironments(ctx, appUUID)
	if err != nil {
		return err
	}
	if rt.JSON {
		return WriteJSONSuccess(rt.Out, envs)
	}
	if len(envs) == 0 {
		fmt.Fprintln(rt.Out, "This application has no environments.")
		return nil
	}

	rows := make([][]string, len(envs))
	for i, e := range envs {
		prod := ""
		if e.IsProduction() {
			prod = "yes"
		}
		rows[i] = []string{e.ID, e.Label, e.Name, e.SSHURL, prod}
	}
	fmt.Fprint(rt.Out, ui.RenderTable([]ui.TableColumn{
		{Title: "ID"}, {Title: "Label"}, {Title: "Name"}, {Title: "SSH URL"}, {Title: "Production"},
	}, rows))
	return nil
}
