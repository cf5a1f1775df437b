package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mplxls/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionFlag(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), Version)
}

func TestRejectsPositionalArguments(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.CheckerEnv, "")

	cfg, err := loadConfig(newViper(), "")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfigLayers(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mplxls.yaml")
	require.NoError(t, os.WriteFile(file, []byte(
		"max_depth: 5\ncheck_timeout: 2s\nrename_scope: workspace\nexclude_dirs: [vendor]\n",
	), 0o644))
	t.Setenv("MPLXLS_WATCH", "false")
	t.Setenv("MPLXLS_MAX_DEPTH", "4")
	t.Setenv(config.CheckerEnv, "/opt/mplx/bin/mplx")

	cfg, err := loadConfig(newViper(), file)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.MaxDepth)
	assert.Equal(t, 2*time.Second, cfg.CheckTimeout.Std())
	assert.Equal(t, config.RenameScopeWorkspace, cfg.RenameScope)
	assert.Equal(t, []string{"vendor"}, cfg.ExcludeDirs)
	assert.False(t, cfg.Watch)
	assert.Equal(t, "/opt/mplx/bin/mplx", cfg.CLIPath)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MPLXLS_RENAME_SCOPE", "workspace")

	cmd := newRootCommand()
	v := newViper()
	bindFlags(v, cmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--rename-scope", "open", "--checker", "/usr/bin/mplx"}))

	cfg, err := loadConfig(v, "")
	require.NoError(t, err)
	assert.Equal(t, config.RenameScopeOpen, cfg.RenameScope)
	assert.Equal(t, "/usr/bin/mplx", cfg.CLIPath)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(newViper(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
