package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents a cloudctl configuration file.
type Config struct {
	Version     int            `yaml:"version" mapstructure:"version"`
	Application string         `yaml:"application" mapstructure:"application"`
	LogLevel    string         `yaml:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error"`
	API         APIConfig      `yaml:"api" mapstructure:"api"`
	SSH         SSHConfig      `yaml:"ssh" mapstructure:"ssh"`
	Keychain    KeychainConfig `yaml:"keychain" mapstructure:"keychain"`
	Poll        PollConfig     `yaml:"poll" mapstructure:"poll"`
	IDE         IDEConfig      `yaml:"ide" mapstructure:"ide"`
	Output      OutputConfig   `yaml:"output" mapstructure:"output"`

	// Path is the file this config was read from, empty when only defaults apply.
	Path string `yaml:"-" mapstructure:"-"`
}

// APIConfig points the client at the platform API and its token endpoint.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url" validate:"url"`
	AuthURL string        `yaml:"auth_url" mapstructure:"auth_url" validate:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0s"`
}

// SSHConfig controls local keys and connections to environments.
type SSHConfig struct {
	// Dir holds generated keys. Supports ~ and ${HOME}.
	Dir string `yaml:"dir" mapstructure:"dir" validate:"required"`

	// StrictHostKeyChecking rejects hosts whose key changed since first contact.
	StrictHostKeyChecking bool `yaml:"strict_host_key_checking" mapstructure:"strict_host_key_checking"`

	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" validate:"gt=0s"`
}

// KeychainConfig selects how keys are added to the local keychain.
type KeychainConfig struct {
	// Method is "auto", "agent", or "askpass".
	Method string `yaml:"method" mapstructure:"method" validate:"oneof=auto agent askpass"`
}

// PollConfig controls waiting for an uploaded key to propagate.
type PollConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gt=0s"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0s"`
}

// IDEConfig controls waiting for a new Cloud IDE and sharing the current one.
type IDEConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gt=0s"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0s"`

	// ShareCodeFile holds the share code inside an IDE. Supports ~ and ${HOME}.
	ShareCodeFile string `yaml:"share_code_file" mapstructure:"share_code_file" validate:"required"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color" validate:"oneof=auto always never"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:  CurrentConfigVersion,
		LogLevel: "info",
		API: APIConfig{
			BaseURL: "https://cloud.example.com/api",
			AuthURL: "https://accounts.example.com/api/auth/oauth/token",
			Timeout: 30 * time.Second,
		},
		SSH: SSHConfig{
			Dir:                   "~/.ssh",
			StrictHostKeyChecking: true,
			ConnectTimeout:        10 * time.Second,
		},
		Keychain: KeychainConfig{Method: "auto"},
		Poll: PollConfig{
			Interval: 5 * time.Second,
			Timeout:  15 * time.Second,
		},
		IDE: IDEConfig{
			Interval:      5 * time.Second,
			Timeout:       10 * time.Minute,
			ShareCodeFile: "~/.cloudctl-ide-share-code",
		},
		Output: OutputConfig{Color: "auto"},
	}
}
