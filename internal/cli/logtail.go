package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/muesli/termenv"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/logstream"
	"github.com/rileyhilliard/cloudctl/internal/ui"
	"github.com/spf13/cobra"
)

var logTailTypes []string

var logTailCmd = &cobra.Command{
	Use:   "app:log:tail [env-id]",
	Short: "Stream the logs of a Cloud Platform environment",
	Long: `Tail an environment's logs until interrupted. Use --type to limit the
stream to some log sources. Without an environment ID the command asks for
one, and in a terminal it also asks which log types to show.

Examples:
  cloudctl app:log:tail
  cloudctl app:log:tail 24-a47ac10b
  cloudctl app:log:tail 24-a47ac10b --type php-error --type drupal-watchdog`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		var envID string
		if len(args) > 0 {
			envID = args[0]
		}
		return logTailCommand(cmd.Context(), rt, envID, logTailTypes)
	},
}

func init() {
	logTailCmd.Flags().StringArrayVarP(&logTailTypes, "type", "t", nil,
		"log type to show (repeatable): "+strings.Join(knownLogTypes(), ", "))
	rootCmd.AddCommand(logTailCmd)
}

func knownLogTypes() []string {
	names := make([]string, len(logstream.LogTypes))
	for i, lt := range logstream.LogTypes {
		names[i] = lt.Type
	}
	return names
}

func logTailCommand(ctx context.Context, rt *Runtime, envID string, types []string) error {
	for _, t := range types {
		if !logstream.IsKnownType(t) {
			return errors.NewValidation("type",
				fmt.Sprintf("Unknown log type %q. Known types: %s", t, strings.Join(knownLogTypes(), ", ")))
		}
	}

	api, err := rt.NewAPI(ctx)
	if err != nil {
		return err
	}
	if envID == "" {
		if envID, err = pickEnvironment(ctx, rt, api); err != nil {
			return err
		}
	}
	if len(types) == 0 && rt.Interactive {
		if types, err = pickLogTypes(rt); err != nil {
			return err
		}
	}

	stream, err := api.GetLogStream(ctx, envID)
	if err != nil {
		return err
	}

	s := logstream.NewStreamer(stream.URL, stream.Params, rt.Out)
	s.Types = types
	s.Colorize = ui.ProfileFor(rt.Config.Output.Color, rt.Out) != termenv.Ascii
	s.Log = rt.component("logstream")

	fmt.Fprintln(rt.ErrOut, ui.Muted("Streaming logs. Press Ctrl+C to stop."))
	return s.Stream(ctx)
}

// pickEnvironment asks for one of the application's environments.
func pickEnvironment(ctx context.Context, rt *Runtime, api API) (string, error) {
	appUUID, err := rt.resolveApplication(ctx, api)
	if err != nil {
		return "", err
	}
	envs, err := api.ListEnvironments(ctx, appUUID)
	if err != nil {
		return "", err
	}
	choices := make([]ui.Choice, len(envs))
	for i, e := range envs {
		choices[i] = ui.Choice{Title: e.Label, Description: e.ID, Value: e.ID}
	}
	picked, err := rt.choose("Choose a Cloud Platform environment", "Pass the environment ID as an argument.", choices)
	if err != nil {
		return "", err
	}
	return picked.Value, nil
}

// pickLogTypes asks which sources to show. No selection means all of them.
func pickLogTypes(rt *Runtime) ([]string, error) {
	choices := make([]ui.Choice, len(logstream.LogTypes))
	for i, lt := range logstream.LogTypes {
		choices[i] = ui.Choice{Title: lt.Label, Value: lt.Type}
	}
	return rt.Prompt.MultiSelect("Select one or more log types (none for all)", choices)
}
