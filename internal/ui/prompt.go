package ui

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/cloudctl/internal/errors"
)

// Prompter asks the user questions through Huh forms. When Interactive is
// false, confirmations return their default and free-form questions fail.
type Prompter struct {
	In          io.Reader
	Out         io.Writer
	Interactive bool
	// Accessible renders forms as plain line prompts (screen readers, dumb terminals).
	Accessible bool
}

// NewPrompter creates a prompter; it is interactive only when both in and out are terminals.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		In:          in,
		Out:         out,
		Interactive: Interactive(in, out),
		Accessible:  os.Getenv("ACCESSIBLE") != "",
	}
}

// Note prints an informational block.
func (p *Prompter) Note(text string) {
	style := lipgloss.NewStyle().
		Foreground(ColorInfo).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(ColorMuted).
		PaddingLeft(1)
	fmt.Fprintln(p.Out, style.Render(text))
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	if !p.Interactive {
		return def, nil
	}

	answer := def
	err := p.run(huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&answer))
	return answer, err
}

// Input asks for a line of text. def pre-fills the answer and is returned
// as-is in non-interactive mode when it is non-empty.
func (p *Prompter) Input(title, def string, validate func(string) error) (string, error) {
	if !p.Interactive {
		if def != "" {
			return def, nil
		}
		return "", NonInteractiveError(title)
	}

	value := def
	field := huh.NewInput().Title(title).Value(&value)
	if validate != nil {
		field = field.Validate(fieldValidator(validate))
	}
	return value, p.run(field)
}

// Password asks for a secret without echoing it.
func (p *Prompter) Password(title string, validate func(string) error) (string, error) {
	if !p.Interactive {
		return "", NonInteractiveError(title)
	}

	var value string
	field := huh.NewInput().Title(title).EchoMode(huh.EchoModePassword).Value(&value)
	if validate != nil {
		field = field.Validate(fieldValidator(validate))
	}
	return value, p.run(field)
}

// MultiSelect asks for any number of choices and returns their values.
// Nothing selected is a valid answer.
func (p *Prompter) MultiSelect(title string, choices []Choice) ([]string, error) {
	if !p.Interactive {
		return nil, NonInteractiveError(title)
	}

	options := make([]huh.Option[string], len(choices))
	for i, c := range choices {
		options[i] = huh.NewOption(c.Title, c.Value)
	}
	var selected []string
	err := p.run(huh.NewMultiSelect[string]().
		Title(title).
		Options(options...).
		Value(&selected))
	return selected, err
}

func (p *Prompter) run(field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithInput(p.In).
		WithOutput(p.Out).
		WithAccessible(p.Accessible)

	if err := form.Run(); err != nil {
		if stderrors.Is(err, huh.ErrUserAborted) {
			return errors.New(errors.ErrValidation, "Cancelled", "")
		}
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Pass the value as a flag, or use --no-interaction.")
	}
	return nil
}

// NonInteractiveError reports that a question could not be asked.
func NonInteractiveError(question string) error {
	return errors.New(errors.ErrValidation,
		fmt.Sprintf("Can't ask %q without a terminal", question),
		"Pass the value as a flag or argument.")
}

// fieldValidator shows only the message of a structured error inline in the form.
func fieldValidator(validate func(string) error) func(string) error {
	return func(s string) error {
		err := validate(s)
		if err == nil {
			return nil
		}
		var e *errors.Error
		if errors.As(err, &e) {
			return stderrors.New(e.Message)
		}
		return err
	}
}
