package app_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndproxy6/ndppd/internal/app"
)

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ndppd.pid")

	require.NoError(t, app.WritePIDFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	pid, err := strconv.Atoi(string(data[:len(data)-1]))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}
