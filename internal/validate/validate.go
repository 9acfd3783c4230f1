// Package validate holds the input rules for key filenames, key passwords
// and platform labels. Each rule set is an ordered list of validator tags;
// the first tag that fails decides the message returned to the user.
package validate

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/rileyhilliard/cloudctl/internal/errors"
)

// MinLength is the minimum length for key filenames and passwords.
const MinLength = 5

var validate = validator.New()

var labelStrip = regexp.MustCompile(`[^A-Za-z0-9_]`)

func init() {
	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	validate.RegisterValidation("nospaces", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), unicode.IsSpace) == -1
	})
	validate.RegisterValidation("nopathsep", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return !strings.ContainsAny(v, `/\`) && !strings.Contains(v, "..") && !filepath.IsAbs(v)
	})
}

// Rule pairs a validator tag with the message shown when it fails.
type Rule struct {
	Tag     string
	Message string
}

// FilenameRules apply to the private key filename.
var FilenameRules = []Rule{
	{Tag: "min=5", Message: "This value is too short. It should have 5 characters or more."},
	{Tag: "notblank", Message: "This value should not be blank."},
	{Tag: "nospaces", Message: "The value may not contain spaces"},
	{Tag: "nopathsep", Message: "The value may not contain path separators or '..'"},
}

// PasswordRules apply to the key passphrase.
var PasswordRules = []Rule{
	{Tag: "min=5", Message: "This value is too short. It should have 5 characters or more."},
	{Tag: "notblank", Message: "This value should not be blank."},
}

// LabelRules apply to an already normalized label.
var LabelRules = []Rule{
	{Tag: "notblank", Message: "The label cannot be empty"},
}

// Check evaluates rules in order and returns a VALIDATION error for the first failure.
func Check(field, value string, rules []Rule) error {
	for _, r := range rules {
		if err := validate.Var(value, r.Tag); err != nil {
			return errors.NewValidation(field, r.Message)
		}
	}
	return nil
}

// Filename validates a key filename.
func Filename(name string) error {
	return Check("filename", name, FilenameRules)
}

// Password validates a key password.
func Password(password string) error {
	return Check("password", password, PasswordRules)
}

// NormalizeLabel strips everything but letters, digits and underscores.
func NormalizeLabel(label string) string {
	return labelStrip.ReplaceAllString(label, "")
}

// Label validates a normalized label.
func Label(label string) error {
	return Check("label", label, LabelRules)
}
