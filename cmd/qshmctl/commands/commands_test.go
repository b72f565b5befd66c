//go:build unix

package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/plugin-qshm/pkg/qshm"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInfoWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o600))
	uri := qshm.Prefix + path

	out, err := run(t, "info", uri)
	require.NoError(t, err)
	assert.Contains(t, out, "size:   2048 (2.0 KiB)")
	assert.Contains(t, out, "plugin: qshm")

	out, err = run(t, "write", "--offset", "16", uri, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "wrote 4 bytes at 0x10\n", out)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, got[16:20])

	out, err = run(t, "read", "--offset", "16", "--count", "4", uri)
	require.NoError(t, err)
	assert.Contains(t, out, "de ad be ef")
}

func TestWriteOutOfBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")
	require.NoError(t, os.WriteFile(path, make([]byte, 8), 0o600))

	_, err := run(t, "write", "--offset", "6", qshm.Prefix+path, "00112233")
	assert.ErrorIs(t, err, qshm.ErrPermissionDenied)

	_, err = run(t, "write", "--offset", "0", qshm.Prefix+path, "zz")
	assert.Error(t, err)
}

func TestReadPastEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region")
	require.NoError(t, os.WriteFile(path, []byte("abcd"), 0o600))

	out, err := run(t, "read", "--offset", "2", "--count", "16", qshm.Prefix+path)
	require.NoError(t, err)
	assert.Contains(t, out, "63 64")
	assert.Contains(t, out, "|cd|")

	out, err = run(t, "read", "--offset", "100", "--count", "16", qshm.Prefix+path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNotAQshmURI(t *testing.T) {
	_, err := run(t, "info", "/dev/shm/whatever")
	assert.Error(t, err)
}
