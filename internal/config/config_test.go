package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icyseptember2237/jshell"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, jshell.TypeEngineJs, cfg.Engine)
	assert.Equal(t, LoaderGo, cfg.Loader)
	assert.Equal(t, jshell.DefaultBootDir, cfg.BootDir)
	assert.Equal(t, jshell.DefaultBootArchive, cfg.BootArchive)
	assert.Equal(t, jshell.DefaultLogFile, cfg.LogFile)
	assert.Equal(t, []string{"."}, cfg.LibraryPath)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.NoTCPIP)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "jsh.yaml", `
engine: lua
library_path:
  - lib
  - /opt/jsh/modules
debug: true
no_tcpip: true
`)

	cfg, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	require.NoError(t, err)
	assert.Equal(t, jshell.TypeEngineLua, cfg.Engine)
	assert.Equal(t, []string{"lib", "/opt/jsh/modules"}, cfg.LibraryPath)
	assert.True(t, cfg.Debug)
	assert.True(t, cfg.NoTCPIP)
	assert.Equal(t, jshell.DefaultBootDir, cfg.BootDir)
}

func TestLoadExplicitFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "custom.toml", `
loader = "none"
boot_archive = "-"
`)

	cfg, err := Load(context.Background(), LoadOptions{ConfigFilePath: path})
	require.NoError(t, err)
	assert.Equal(t, LoaderNone, cfg.Loader)
	assert.Equal(t, "-", cfg.BootArchive)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, err := Load(context.Background(), LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "jsh.yaml", "engine: js\n")
	t.Setenv("JSH_ENGINE", "lua")
	t.Setenv("JSBOOTPATH", "/srv/boot/")

	cfg, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	require.NoError(t, err)
	assert.Equal(t, jshell.TypeEngineLua, cfg.Engine)
	assert.Equal(t, "/srv/boot/", cfg.BootDir)
}

func TestLoadBootDirEnvPrecedence(t *testing.T) {
	t.Setenv("JSH_BOOT_DIR", "primary/")
	t.Setenv("JSBOOTPATH", "legacy/")

	cfg, err := Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "primary/", cfg.BootDir)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "jsh.yaml", "engine: cobol\n")

	_, err := Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	assert.ErrorIs(t, err, jshell.ErrUnknownEngine)

	cfg := DefaultConfig()
	cfg.Loader = "dlopen"
	assert.ErrorContains(t, cfg.Validate(), "unknown loader")
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, LoadOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
