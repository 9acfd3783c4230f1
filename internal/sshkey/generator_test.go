package sshkey

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/cloudctl/internal/errors"
	"github.com/rileyhilliard/cloudctl/internal/exec"
	exectesting "github.com/rileyhilliard/cloudctl/internal/exec/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeKeyFiles mimics ssh-keygen by creating the files named by -f.
func writeKeyFiles(t *testing.T) func(cmd exec.Command) {
	return func(cmd exec.Command) {
		for i, a := range cmd.Args {
			if a == "-f" && i+1 < len(cmd.Args) {
				path := cmd.Args[i+1]
				require.NoError(t, os.WriteFile(path, []byte("private"), 0600))
				require.NoError(t, os.WriteFile(path+".pub", []byte("ssh-rsa AAAA"), 0600))
			}
		}
	}
}

func TestGenerate_Success(t *testing.T) {
	dir := t.TempDir()
	runner := exectesting.NewFakeRunner().
		On("ssh-keygen", exectesting.Response{Hook: writeKeyFiles(t)})
	gen := NewGenerator(dir, runner)

	pair, err := gen.Generate(context.Background(), "id_rsa_cloud", "hunter22")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "id_rsa_cloud"), pair.PrivatePath)
	assert.Equal(t, filepath.Join(dir, "id_rsa_cloud.pub"), pair.PublicPath)

	calls := runner.CallsTo("ssh-keygen")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-t", "rsa", "-b", "4096", "-f", pair.PrivatePath, "-N", "hunter22"}, calls[0].Args)
}

func TestGenerate_RejectsBadInputBeforeRunningTool(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		password string
		wantMsg  string
	}{
		{name: "short filename", filename: "abc", password: "hunter22", wantMsg: "too short"},
		{name: "blank filename", filename: "       ", password: "hunter22", wantMsg: "should not be blank"},
		{name: "filename with space", filename: "my key", password: "hunter22", wantMsg: "may not contain spaces"},
		{name: "filename escaping the dir", filename: "../escaped", password: "hunter22", wantMsg: "path separators"},
		{name: "absolute filename", filename: "/tmp/id_rsa_cloud", password: "hunter22", wantMsg: "path separators"},
		{name: "short password", filename: "id_rsa_cloud", password: "abc", wantMsg: "too short"},
		{name: "blank password", filename: "id_rsa_cloud", password: "      ", wantMsg: "should not be blank"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := exectesting.NewFakeRunner()
			gen := NewGenerator(t.TempDir(), runner)

			_, err := gen.Generate(context.Background(), tt.filename, tt.password)

			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrValidation))
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Empty(t, runner.Calls, "ssh-keygen must not run")
		})
	}
}

func TestGenerate_ExistingFileConflicts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "id_rsa_cloud"), []byte("existing"), 0600))
	runner := exectesting.NewFakeRunner()

	_, err := NewGenerator(dir, runner).Generate(context.Background(), "id_rsa_cloud", "hunter22")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConflict))
	assert.Empty(t, runner.Calls)
}

func TestGenerate_MissingBinary(t *testing.T) {
	runner := exectesting.NewFakeRunner().Missing("ssh-keygen")

	_, err := NewGenerator(t.TempDir(), runner).Generate(context.Background(), "id_rsa_cloud", "hunter22")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTool))
	assert.Empty(t, runner.Calls)
}

func TestGenerate_ToolFailureSurfacesOutput(t *testing.T) {
	runner := exectesting.NewFakeRunner().
		On("ssh-keygen", exectesting.Response{Output: "Saving key failed: Permission denied", ExitCode: 1})

	_, err := NewGenerator(t.TempDir(), runner).Generate(context.Background(), "id_rsa_cloud", "hunter22")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTool))
	assert.Contains(t, err.Error(), "Saving key failed: Permission denied")
}

func TestGenerate_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "ssh")
	runner := exectesting.NewFakeRunner().
		On("ssh-keygen", exectesting.Response{Hook: writeKeyFiles(t)})

	_, err := NewGenerator(dir, runner).Generate(context.Background(), "id_rsa_cloud", "hunter22")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
