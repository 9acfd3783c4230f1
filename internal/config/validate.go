package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rileyhilliard/cloudctl/internal/errors"
)

var structValidator = newStructValidator()

// newStructValidator reports fields by their YAML key so messages match the file.
func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but cloudctl only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Update cloudctl to the latest release.")
	}

	if err := structValidator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return errors.WrapWithCode(err, errors.ErrConfig, "Invalid config", "")
		}
		fe := fieldErrs[0]
		key := fieldKey(fe)
		return errors.New(errors.ErrConfig, fieldMessage(key, fe),
			fmt.Sprintf("Check the '%s' setting in %s.", key, configName(cfg)))
	}

	if cfg.Application != "" {
		if _, err := uuid.Parse(cfg.Application); err != nil {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("'application' must be a UUID, got %q", cfg.Application),
				"Run 'cloudctl app:link' to pick an application.")
		}
	}

	return nil
}

// fieldKey turns "Config.keychain.method" into "keychain.method".
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(key string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		choices := strings.ReplaceAll(fe.Param(), " ", ", ")
		return fmt.Sprintf("'%s' must be one of %s, got %q", key, choices, fe.Value())
	case "gt":
		return fmt.Sprintf("'%s' must be a positive duration, got %v", key, fe.Value())
	case "url":
		return fmt.Sprintf("'%s' must be a URL, got %q", key, fe.Value())
	case "required":
		return fmt.Sprintf("'%s' is required", key)
	default:
		return fmt.Sprintf("'%s' is invalid", key)
	}
}

func configName(cfg *Config) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	return "your config"
}
