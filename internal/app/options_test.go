package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndproxy6/ndppd/internal/app"
)

func TestParseArgs_defaults(t *testing.T) {
	o, err := app.ParseArgs("ndppd", nil)
	require.NoError(t, err)

	assert.Equal(t, "/etc/ndppd.conf", o.ConfigPath)
	assert.False(t, o.Daemon)
	assert.False(t, o.Verbose)
	assert.Empty(t, o.PIDFile)
}

func TestParseArgs_longFlags(t *testing.T) {
	o, err := app.ParseArgs("ndppd", []string{"--config", "/tmp/x.yaml", "--daemon", "--verbose"})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x.yaml", o.ConfigPath)
	assert.True(t, o.Daemon)
	assert.True(t, o.Verbose)
}

func TestParseArgs_shortFlags(t *testing.T) {
	o, err := app.ParseArgs("ndppd", []string{"-c", "/tmp/x.yaml", "-d", "-p", "/tmp/ndppd.pid", "-v"})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/x.yaml", o.ConfigPath)
	assert.True(t, o.Daemon)
	assert.Equal(t, "/tmp/ndppd.pid", o.PIDFile)
	assert.True(t, o.Verbose)
}

func TestParseArgs_unknownOption(t *testing.T) {
	_, err := app.ParseArgs("ndppd", []string{"--bogus"})
	assert.Error(t, err)
}

func TestParseArgs_missingValue(t *testing.T) {
	_, err := app.ParseArgs("ndppd", []string{"--config"})
	assert.Error(t, err)
}
