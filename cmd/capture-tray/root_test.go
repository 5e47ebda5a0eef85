package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*cobra.Command, *options) {
	t.Helper()
	opts := &options{}
	cmd := &cobra.Command{Use: "capture-tray"}
	bindFlags(cmd, opts)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, opts
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ui":"tray","log_level":"debug"}`), 0644))

	cmd, opts := parse(t, "--config", path, "--ui", "terminal", "--storage-dir", dir)
	cfg, err := loadConfig(cmd, opts)
	require.NoError(t, err)

	assert.Equal(t, "terminal", cfg.UI)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, dir, cfg.Storage.Dir)
}

func TestLoadConfigRejectsInvalidFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cmd, opts := parse(t, "--config", path, "--ui", "web")
	_, err := loadConfig(cmd, opts)
	assert.ErrorContains(t, err, "ui must be tray or terminal")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "capture-tray dev (unknown)\n", out.String())
}
