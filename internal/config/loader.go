package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the project config file name.
	ConfigFileName = ".cloudctl.yaml"
	// GlobalConfigDir is the directory for global config, relative to home.
	GlobalConfigDir = ".config/cloudctl"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. CLOUDCTL_API_BASE_URL.
	EnvPrefix = "CLOUDCTL"
)

// Load reads config from the specified path, applying defaults and
// CLOUDCTL_ environment overrides. An empty path yields defaults plus
// environment overrides.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Specify an existing file with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .cloudctl.yaml in current directory
// 3. .cloudctl.yaml in parent directories (stops at git root or home)
// 4. ~/.config/cloudctl/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	if project := FindProject(cwd); project != "" {
		return project, nil
	}

	if global := GlobalPath(); global != "" {
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// FindProject walks up from dir looking for .cloudctl.yaml. The walk stops
// at a git root or the home directory. Returns "" if none is found.
func FindProject(dir string) string {
	home, _ := os.UserHomeDir()
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		if isGitRoot(dir) || dir == home {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ProjectPath returns where the project config for dir lives: the nearest
// existing .cloudctl.yaml, or a new one at the git root (or dir itself).
func ProjectPath(dir string) string {
	if existing := FindProject(dir); existing != "" {
		return existing
	}
	if root := findGitRoot(dir); root != "" {
		return filepath.Join(root, ConfigFileName)
	}
	return filepath.Join(dir, ConfigFileName)
}

// GlobalPath returns ~/.config/cloudctl/config.yaml, or "" without a home directory.
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// LoadOrDefault finds and loads config, falling back to defaults when no
// file exists. Environment overrides apply either way.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every key so AutomaticEnv overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("application", d.Application)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.auth_url", d.API.AuthURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("ssh.dir", d.SSH.Dir)
	v.SetDefault("ssh.strict_host_key_checking", d.SSH.StrictHostKeyChecking)
	v.SetDefault("ssh.connect_timeout", d.SSH.ConnectTimeout)
	v.SetDefault("keychain.method", d.Keychain.Method)
	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("poll.timeout", d.Poll.Timeout)
	v.SetDefault("ide.interval", d.IDE.Interval)
	v.SetDefault("ide.timeout", d.IDE.Timeout)
	v.SetDefault("ide.share_code_file", d.IDE.ShareCodeFile)
	v.SetDefault("output.color", d.Output.Color)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		where := "your environment overrides"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+where)
	}

	cfg.Path = path
	cfg.SSH.Dir = ExpandTilde(Expand(cfg.SSH.Dir))
	cfg.IDE.ShareCodeFile = ExpandTilde(Expand(cfg.IDE.ShareCodeFile))
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	return cfg, nil
}

// isGitRoot checks if a directory is a git repository root.
func isGitRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir()
}

// findGitRoot walks up from dir looking for a .git directory.
func findGitRoot(dir string) string {
	for {
		if isGitRoot(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
