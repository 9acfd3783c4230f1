package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/cloudctl/internal/doctor"
	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/ui"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration, SSH and account problems",
	Long: `Run checks on the config, the local OpenSSH tools, the SSH directory and
agent, and the Cloud Platform account. Exits non-zero if any check fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := runtimeFor(cmd)
		defer rt.Close()
		return doctorCommand(cmd.Context(), rt, rt.JSON)
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// DoctorOutput represents the JSON output for the doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	AllClear bool `json:"all_clear"`
}

// collectChecks builds the checks for the current runtime.
func collectChecks(rt *Runtime) []doctor.Check {
	app := rt.Application
	if app == "" {
		app = rt.Config.Application
	}
	return []doctor.Check{
		&doctor.ConfigCheck{Explicit: cfgFile},
		&doctor.LinkCheck{Application: app},
		&doctor.ToolsCheck{Runner: rt.Runner, Method: rt.Config.Keychain.Method},
		&doctor.SSHDirCheck{Dir: rt.Config.SSH.Dir},
		&doctor.AgentCheck{Agent: rt.Agent, Method: rt.Config.Keychain.Method},
		&doctor.CredentialsCheck{},
		&doctor.APICheck{Connect: func(ctx context.Context) (doctor.ApplicationLister, error) {
			return rt.NewAPI(ctx)
		}},
	}
}

func doctorCommand(ctx context.Context, rt *Runtime, asJSON bool) error {
	checks := collectChecks(rt)
	results := doctor.RunAll(ctx, checks)

	// JSON callers read the outcome from the summary.
	if asJSON {
		return writeDoctorJSON(rt.Out, checks, results)
	}

	writeDoctorText(rt.Out, checks, results)
	if doctor.HasFailures(results) {
		return errors.New(errors.ErrValidation, doctor.Summary(results), "Fix the failed checks above and run 'cloudctl doctor' again.")
	}
	return nil
}

// groupResults orders results by doctor.Categories.
func groupResults(checks []doctor.Check, results []doctor.CheckResult) []CategoryOutput {
	grouped := make(map[string][]doctor.CheckResult)
	for i, check := range checks {
		grouped[check.Category()] = append(grouped[check.Category()], results[i])
	}
	var out []CategoryOutput
	for _, cat := range doctor.Categories {
		if rs, ok := grouped[cat]; ok {
			out = append(out, CategoryOutput{Name: cat, Results: rs})
		}
	}
	return out
}

func writeDoctorJSON(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) error {
	counts := doctor.CountByStatus(results)
	output := DoctorOutput{
		Categories: groupResults(checks, results),
		Summary: SummaryOutput{
			Pass:     counts[doctor.StatusPass],
			Warn:     counts[doctor.StatusWarn],
			Fail:     counts[doctor.StatusFail],
			AllClear: !doctor.HasIssues(results),
		},
	}
	return WriteJSONSuccess(w, output)
}

func writeDoctorText(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) {
	headerStyle := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("cloudctl diagnostic report"))
	fmt.Fprintln(w)

	for _, cat := range groupResults(checks, results) {
		fmt.Fprintln(w, headerStyle.Render(cat.Name))
		for _, r := range cat.Results {
			renderCheckResult(w, r)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("━", 60))
	if doctor.HasIssues(results) {
		ui.Failure(w, "%s", doctor.Summary(results))
	} else {
		ui.Success(w, "%s", doctor.Summary(results))
	}
}

func renderCheckResult(w io.Writer, r doctor.CheckResult) {
	symbol, color := ui.SymbolComplete, ui.ColorSuccess
	switch r.Status {
	case doctor.StatusWarn:
		symbol, color = ui.SymbolWarning, ui.ColorWarning
	case doctor.StatusFail:
		symbol, color = ui.SymbolFail, ui.ColorError
	}
	fmt.Fprintf(w, "  %s %s\n", lipgloss.NewStyle().Foreground(color).Render(symbol), r.Message)

	if r.Suggestion != "" && r.Status != doctor.StatusPass {
		for _, line := range strings.Split(r.Suggestion, "\n") {
			fmt.Fprintf(w, "    %s\n", ui.Muted(line))
		}
	}
}
