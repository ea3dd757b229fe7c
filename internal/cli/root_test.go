package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	err := cmd.Execute()
	require.NoError(t, err)
	require.NotEmpty(t, buf.String())
}

func TestDoctorWithExampleConfig(t *testing.T) {
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	configPath, err := filepath.Abs(filepath.Join("..", "..", "configs", "config.example.yaml"))
	require.NoError(t, err)
	require.FileExists(t, configPath)

	cmd.SetArgs([]string{"doctor", "--config", configPath})

	err = cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, buf.String(), "Config OK")
}

func TestReadAssertionFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tests.txt")
	content := "// header comment\nadd(1, 2) == 3\n\nadd(0, 0) == 0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	assertions, err := readAssertionFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"add(1, 2) == 3", "add(0, 0) == 0"}, assertions)
}
