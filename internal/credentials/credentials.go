// Package credentials stores the Cloud Platform API key and secret.
// The OS keyring is preferred; a 0600 file under the config dir is the fallback
// for machines without a keyring (CI runners, containers).
package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/logger"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name used in the OS keyring.
	KeyringService = "cloudctl"
	// KeyringUser is the account name the credentials are stored under.
	KeyringUser = "api-credentials"
	// FallbackFileName is the file used when the keyring is unavailable.
	FallbackFileName = "credentials"

	// Environment overrides, checked before any storage.
	EnvKey    = "CLOUDCTL_API_KEY"
	EnvSecret = "CLOUDCTL_API_SECRET"
)

// Credentials is an API key pair.
type Credentials struct {
	Key    string `json:"key"`
	Secret string `json:"secret"`
}

// Valid reports whether both halves are set.
func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.Key) != "" && strings.TrimSpace(c.Secret) != ""
}

// Store saves creds in the keyring, or in the fallback file if the keyring fails.
func Store(creds Credentials) error {
	if !creds.Valid() {
		return errors.NewValidation("API key and secret", "The API key and secret cannot be empty")
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrAuth, "Couldn't encode credentials", "")
	}

	if err := keyring.Set(KeyringService, KeyringUser, string(data)); err == nil {
		return nil
	}
	return storeInFile(data)
}

// Load returns credentials from the environment, the keyring or the fallback file, in that order.
func Load() (Credentials, error) {
	if env := (Credentials{Key: os.Getenv(EnvKey), Secret: os.Getenv(EnvSecret)}); env.Valid() {
		return env, nil
	}

	raw, err := keyring.Get(KeyringService, KeyringUser)
	if err != nil {
		raw, err = loadFromFile()
		if err != nil {
			return Credentials{}, err
		}
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil || !creds.Valid() {
		return Credentials{}, errors.New(errors.ErrAuth,
			"Stored API credentials are corrupt",
			"Run 'cloudctl auth:logout' then 'cloudctl auth:login'")
	}
	return creds, nil
}

// Clear removes credentials from both the keyring and the fallback file.
// A keyring that can't be reached is ignored; a file left behind is not.
func Clear() error {
	keyringErr := keyring.Delete(KeyringService, KeyringUser)
	if keyringErr != nil && keyringErr != keyring.ErrNotFound {
		logger.Default().Debug("clearing keyring credentials: %v", keyringErr)
	}

	if fileErr := deleteFile(); fileErr != nil {
		path, _ := FilePath()
		return errors.WrapWithCode(fileErr, errors.ErrAuth,
			"Couldn't clear stored credentials",
			"Remove "+path+" manually")
	}
	return nil
}

func storeInFile(data []byte) error {
	path, err := FilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.WrapWithCode(err, errors.ErrAuth,
			"Couldn't create "+filepath.Dir(path),
			"Check permissions on your home directory")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.WrapWithCode(err, errors.ErrAuth,
			"Couldn't write "+path,
			"Check permissions on your home directory")
	}
	return nil
}

func loadFromFile() (string, error) {
	path, err := FilePath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", errors.New(errors.ErrAuth,
			"No API credentials found in keyring or file storage",
			"Run 'cloudctl auth:login' with your API key and secret")
	}
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrAuth, "Couldn't read "+path, "")
	}
	return string(data), nil
}

func deleteFile() error {
	path, err := FilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// FilePath returns the fallback credentials file. CLOUDCTL_CONFIG_DIR overrides
// the default ~/.config/cloudctl.
func FilePath() (string, error) {
	if dir := os.Getenv("CLOUDCTL_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, FallbackFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrAuth, "Couldn't determine home directory", "")
	}
	return filepath.Join(home, ".config", "cloudctl", FallbackFileName), nil
}
