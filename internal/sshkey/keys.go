package sshkey

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rileyhilliard/cloudctl/internal/errors"
	"golang.org/x/crypto/ssh"
)

// PublicSuffix is appended to a private key path to get its public key path.
const PublicSuffix = ".pub"

// KeyPair is a private/public key file pair on disk.
type KeyPair struct {
	PrivatePath string
	PublicPath  string
	Filename    string // base name of the private key
}

// NewKeyPair builds the pair for a private key path.
func NewKeyPair(privatePath string) KeyPair {
	return KeyPair{
		PrivatePath: privatePath,
		PublicPath:  PublicPath(privatePath),
		Filename:    filepath.Base(privatePath),
	}
}

// PublicPath returns the public key path for a private key path.
func PublicPath(privatePath string) string {
	return privatePath + PublicSuffix
}

// PrivatePath returns the private key path for a public key path.
// Paths without the public suffix are returned unchanged.
func PrivatePath(publicPath string) string {
	return strings.TrimSuffix(publicPath, PublicSuffix)
}

// KeyInfo contains information about a local public key.
type KeyInfo struct {
	Path       string // Full path to the public key
	Filename   string // Base name, e.g. id_rsa.pub
	Type       string // Key type (ed25519, rsa, ecdsa)
	HasPrivate bool   // Whether the matching private key exists
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// FindPublicKeys lists *.pub files in dir, sorted by name.
func FindPublicKeys(dir string) ([]KeyInfo, error) {
	matches, err := filepath.Glob(filepath.Join(ExpandPath(dir), "*"+PublicSuffix))
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't list SSH keys in %s", dir),
			"Check that the directory exists and is readable")
	}
	sort.Strings(matches)

	keys := make([]KeyInfo, 0, len(matches))
	for _, path := range matches {
		_, privErr := os.Stat(PrivatePath(path))
		keys = append(keys, KeyInfo{
			Path:       path,
			Filename:   filepath.Base(path),
			Type:       inferKeyType(path),
			HasPrivate: privErr == nil,
		})
	}
	return keys, nil
}

// inferKeyType determines key type from filename.
func inferKeyType(path string) string {
	base := filepath.Base(path)
	switch {
	case strings.Contains(base, "ed25519"):
		return "ed25519"
	case strings.Contains(base, "ecdsa"):
		return "ecdsa"
	case strings.Contains(base, "rsa"):
		return "rsa"
	default:
		return "unknown"
	}
}

// ReadPublicKey reads the contents of a public key file.
func ReadPublicKey(pubPath string) (string, error) {
	data, err := os.ReadFile(pubPath)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to read public key: %s", pubPath),
			"Check that the file exists and is readable")
	}
	return strings.TrimSpace(string(data)), nil
}

// CheckUploadPath verifies that path exists and names a public key file.
func CheckUploadPath(path string) (string, error) {
	path = ExpandPath(path)
	if _, err := os.Stat(path); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrValidation,
			fmt.Sprintf("The filepath %s is not valid", path),
			"Point --filepath at an existing public key")
	}
	if !strings.HasSuffix(path, PublicSuffix) {
		return "", errors.New(errors.ErrValidation,
			fmt.Sprintf("The filepath %s does not have the .pub extension", path),
			"Upload the public half of the key pair")
	}
	return path, nil
}

// Normalize reduces a public key line to "<algorithm> <base64>", dropping any
// leading options and the trailing comment. Lines that don't parse are just trimmed.
func Normalize(publicKey string) string {
	fields := strings.Fields(publicKey)
	for i, f := range fields {
		if (strings.HasPrefix(f, "ssh-") || strings.HasPrefix(f, "ecdsa-") || strings.HasPrefix(f, "sk-")) && i+1 < len(fields) {
			return f + " " + fields[i+1]
		}
	}
	return strings.TrimSpace(publicKey)
}

// Fingerprint returns the SHA256 fingerprint of an authorized_keys style line.
func Fingerprint(publicKey string) (string, error) {
	pk, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			"Couldn't parse public key",
			"Make sure the file contains a single OpenSSH public key")
	}
	return ssh.FingerprintSHA256(pk), nil
}
