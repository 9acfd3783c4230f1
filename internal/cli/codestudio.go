package cli

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/cloudctl/internal/codestudio"
	"github.com/rileyhilliard/cloudctl/internal/credentials"
	"github.com/rileyhilliard/cloudctl/internal/ui"
	"github.com/spf13/cobra"
)

// CodeStudioOptions holds options for codestudio:variables.
type CodeStudioOptions struct {
	PHPVersion  string
	TokenName   string
	TokenSecret string
	ShowValues  bool
}

var codeStudioOpts CodeStudioOptions

var codeStudioVariablesCmd = &cobra.Command{
	Use:   "codestudio:variables",
	Short: "Print the CI/CD variables a Code Studio project needs",
	Long: `Show the variables to add to a Code Studio project so its pipelines can
deploy to the linked application. Secret values are masked unless
--show-values is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		_, err := codeStudioVariablesCommand(cmd.Context(), rt, codeStudioOpts)
		return err
	},
}

func init() {
	codeStudioVariablesCmd.Flags().StringVar(&codeStudioOpts.PHPVersion, "php-version", "8.3", "PHP version for the pipeline image")
	codeStudioVariablesCmd.Flags().StringVar(&codeStudioOpts.TokenName, "gitlab-token-name", "", "Code Studio project access token name")
	codeStudioVariablesCmd.Flags().StringVar(&codeStudioOpts.TokenSecret, "gitlab-token-secret", "", "Code Studio project access token")
	codeStudioVariablesCmd.Flags().BoolVar(&codeStudioOpts.ShowValues, "show-values", false, "print secret values unmasked")
	rootCmd.AddCommand(codeStudioVariablesCmd)
}

func codeStudioVariablesCommand(ctx context.Context, rt *Runtime, opts CodeStudioOptions) ([]codestudio.Variable, error) {
	creds, err := credentials.Load()
	if err != nil {
		return nil, err
	}
	api, err := rt.NewAPI(ctx)
	if err != nil {
		return nil, err
	}
	appUUID, err := rt.resolveApplication(ctx, api)
	if err != nil {
		return nil, err
	}

	vars := codestudio.Defaults(codestudio.Inputs{
		ApplicationUUID: appUUID,
		APIKey:          creds.Key,
		APISecret:       creds.Secret,
		TokenName:       opts.TokenName,
		TokenSecret:     opts.TokenSecret,
		PHPVersion:      opts.PHPVersion,
	})

	if rt.JSON {
		out := vars
		if !opts.ShowValues {
			out = make([]codestudio.Variable, len(vars))
			for i, v := range vars {
				v.Value = v.MaskedValue()
				out[i] = v
			}
		}
		return vars, WriteJSONSuccess(rt.Out, out)
	}

	rows := make([][]string, len(vars))
	for i, v := range vars {
		value := v.MaskedValue()
		if opts.ShowValues {
			value = v.Value
		}
		rows[i] = []string{v.Key, value, yesNo(v.Masked), yesNo(v.Protected)}
	}
	fmt.Fprint(rt.Out, ui.RenderTable([]ui.TableColumn{
		{Title: "Key"}, {Title: "Value"}, {Title: "Masked"}, {Title: "Protected"},
	}, rows))
	return vars, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
