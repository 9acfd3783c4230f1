package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// testPublicKey returns a freshly generated authorized_keys line with a comment.
func testPublicKey(t *testing.T, comment string) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))
	if comment != "" {
		line += " " + comment
	}
	return line
}

func TestKeyPairPaths(t *testing.T) {
	pair := NewKeyPair("/home/user/.ssh/id_rsa_cloud")

	assert.Equal(t, "/home/user/.ssh/id_rsa_cloud", pair.PrivatePath)
	assert.Equal(t, "/home/user/.ssh/id_rsa_cloud.pub", pair.PublicPath)
	assert.Equal(t, "id_rsa_cloud", pair.Filename)
	assert.Equal(t, pair.PrivatePath, PrivatePath(pair.PublicPath))
	assert.Equal(t, "/x/key", PrivatePath("/x/key"))
}

func TestInferKeyType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/user/.ssh/id_ed25519.pub", "ed25519"},
		{"/home/user/.ssh/id_rsa", "rsa"},
		{"/home/user/.ssh/id_ecdsa", "ecdsa"},
		{"/home/user/.ssh/backup_rsa_key", "rsa"},
		{"/home/user/.ssh/id_dsa", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, inferKeyType(tt.path))
		})
	}
}

func TestFindPublicKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_rsa.pub"), []byte("ssh-rsa AAAA"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_rsa"), []byte("private"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_ed25519.pub"), []byte("ssh-ed25519 AAAA"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "known_hosts"), []byte(""), 0600))

	keys, err := FindPublicKeys(dir)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	assert.Equal(t, "id_ed25519.pub", keys[0].Filename)
	assert.Equal(t, "ed25519", keys[0].Type)
	assert.False(t, keys[0].HasPrivate)

	assert.Equal(t, "id_rsa.pub", keys[1].Filename)
	assert.True(t, keys[1].HasPrivate)
}

func TestFindPublicKeys_EmptyDir(t *testing.T) {
	keys, err := FindPublicKeys(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestReadPublicKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "id_test.pub")
	require.NoError(t, os.WriteFile(path, []byte("  ssh-ed25519 AAAA... user@host \n\n"), 0600))

	content, err := ReadPublicKey(path)
	require.NoError(t, err)
	assert.Equal(t, "ssh-ed25519 AAAA... user@host", content)
}

func TestReadPublicKey_MissingFile(t *testing.T) {
	_, err := ReadPublicKey("/nonexistent/path/id_test.pub")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read public key")
}

func TestCheckUploadPath(t *testing.T) {
	dir := t.TempDir()
	pub := filepath.Join(dir, "id_rsa.pub")
	priv := filepath.Join(dir, "id_rsa")
	require.NoError(t, os.WriteFile(pub, []byte("x"), 0600))
	require.NoError(t, os.WriteFile(priv, []byte("x"), 0600))

	got, err := CheckUploadPath(pub)
	require.NoError(t, err)
	assert.Equal(t, pub, got)

	_, err = CheckUploadPath(priv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not have the .pub extension")

	_, err = CheckUploadPath(filepath.Join(dir, "missing.pub"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))
	assert.Contains(t, err.Error(), "is not valid")
}

func TestNormalize(t *testing.T) {
	key := testPublicKey(t, "")
	withComment := key + " jane@laptop"

	assert.Equal(t, key, Normalize(withComment))
	assert.Equal(t, key, Normalize("  "+withComment+"\n"))
	assert.Equal(t, key, Normalize(`from="10.0.0.1" `+withComment))
	assert.Equal(t, "garbage", Normalize("  garbage  "))
}

func TestNormalize_RSAPaddingKeptIntact(t *testing.T) {
	// Keys whose base64 ends in "==" must keep the padding.
	line := "ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAABAQ== user@host"
	assert.Equal(t, "ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAABAQ==", Normalize(line))
}

func TestFingerprint(t *testing.T) {
	fp, err := Fingerprint(testPublicKey(t, "me@host"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fp, "SHA256:"))

	_, err = Fingerprint("not a key")
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}
	assert.Equal(t, filepath.Join(home, ".ssh"), ExpandPath("~/.ssh"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
}
