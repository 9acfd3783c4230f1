package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Empty(t, cfg.Application)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "~/.ssh", cfg.SSH.Dir)
	assert.True(t, cfg.SSH.StrictHostKeyChecking)
	assert.Equal(t, 10*time.Second, cfg.SSH.ConnectTimeout)
	assert.Equal(t, "auto", cfg.Keychain.Method)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 15*time.Second, cfg.Poll.Timeout)
	assert.Equal(t, 5*time.Second, cfg.IDE.Interval)
	assert.Equal(t, 10*time.Minute, cfg.IDE.Timeout)
	assert.NotEmpty(t, cfg.IDE.ShareCodeFile)
	assert.Equal(t, "auto", cfg.Output.Color)

	require.NoError(t, Validate(cfg))
}

func TestLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)

	content := `
version: 1
application: 0b4a8b7e-5c7d-4b8a-9d3e-2f1a6c9e8d70
log_level: DEBUG
api:
  base_url: https://cloud.test/api
  timeout: 5s
ssh:
  dir: ~/keys
  strict_host_key_checking: false
keychain:
  method: askpass
poll:
  interval: 1s
  timeout: 3s
output:
  color: never
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, configPath, cfg.Path)
	assert.Equal(t, "0b4a8b7e-5c7d-4b8a-9d3e-2f1a6c9e8d70", cfg.Application)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://cloud.test/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, filepath.Join(home, "keys"), cfg.SSH.Dir)
	assert.False(t, cfg.SSH.StrictHostKeyChecking)
	assert.Equal(t, "askpass", cfg.Keychain.Method)
	assert.Equal(t, time.Second, cfg.Poll.Interval)
	assert.Equal(t, 3*time.Second, cfg.Poll.Timeout)
	assert.Equal(t, "never", cfg.Output.Color)

	// Unset keys keep their defaults
	assert.Equal(t, DefaultConfig().API.AuthURL, cfg.API.AuthURL)
	assert.Equal(t, 10*time.Second, cfg.SSH.ConnectTimeout)

	require.NoError(t, Validate(cfg))
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(configPath, []byte("poll:\n  timeout: 3s\n"), 0644))

	t.Setenv("CLOUDCTL_POLL_TIMEOUT", "45s")
	t.Setenv("CLOUDCTL_API_BASE_URL", "https://env.test/api")
	t.Setenv("CLOUDCTL_SSH_STRICT_HOST_KEY_CHECKING", "false")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Poll.Timeout)
	assert.Equal(t, "https://env.test/api", cfg.API.BaseURL)
	assert.False(t, cfg.SSH.StrictHostKeyChecking)
}

func TestLoad_NoFileUsesDefaultsAndEnv(t *testing.T) {
	t.Setenv("CLOUDCTL_KEYCHAIN_METHOD", "agent")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.Path)
	assert.Equal(t, "agent", cfg.Keychain.Method)
	assert.Equal(t, 15*time.Second, cfg.Poll.Timeout)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ConfigFileName)
		require.NoError(t, os.WriteFile(path, []byte("poll: [unclosed"), 0644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Failed to read config file")
	})

	t.Run("bad duration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ConfigFileName)
		require.NoError(t, os.WriteFile(path, []byte("poll:\n  interval: soon\n"), 0644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid config format")
	})
}

func TestFind(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0644))

		found, err := Find(path)
		require.NoError(t, err)
		assert.Equal(t, path, found)
	})

	t.Run("explicit path missing", func(t *testing.T) {
		_, err := Find(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Specified config file not found")
	})

	t.Run("walks up to parent", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		project := filepath.Join(home, "work", "site")
		nested := filepath.Join(project, "web", "modules")
		require.NoError(t, os.MkdirAll(nested, 0755))
		configPath := filepath.Join(project, ConfigFileName)
		require.NoError(t, os.WriteFile(configPath, []byte("version: 1\n"), 0644))
		t.Chdir(nested)

		found, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, configPath, found)
	})

	t.Run("stops at git root", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		outer := filepath.Join(home, "outer")
		repo := filepath.Join(outer, "repo")
		require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(outer, ConfigFileName), []byte("version: 1\n"), 0644))
		t.Chdir(repo)

		found, err := Find("")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("falls back to global", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		require.NoError(t, os.MkdirAll(filepath.Dir(global), 0755))
		require.NoError(t, os.WriteFile(global, []byte("version: 1\n"), 0644))
		work := filepath.Join(home, "scratch")
		require.NoError(t, os.MkdirAll(work, 0755))
		t.Chdir(work)

		found, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, global, found)
	})
}

func TestProjectPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	t.Run("existing project config", func(t *testing.T) {
		project := filepath.Join(home, "a")
		sub := filepath.Join(project, "sub")
		require.NoError(t, os.MkdirAll(sub, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(project, ConfigFileName), nil, 0644))

		assert.Equal(t, filepath.Join(project, ConfigFileName), ProjectPath(sub))
	})

	t.Run("git root when none exists", func(t *testing.T) {
		repo := filepath.Join(home, "b")
		sub := filepath.Join(repo, "docroot")
		require.NoError(t, os.MkdirAll(filepath.Join(repo, ".git"), 0755))
		require.NoError(t, os.MkdirAll(sub, 0755))

		assert.Equal(t, filepath.Join(repo, ConfigFileName), ProjectPath(sub))
	})
}

func TestLoadOrDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(home)

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, filepath.Join(home, ".ssh"), cfg.SSH.Dir)
}
