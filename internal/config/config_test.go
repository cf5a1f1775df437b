package config_test

import (
	"runtime"
	"strings"
	"testing"
	"time"

	"mplxls/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysOnlyPresentFields(t *testing.T) {
	opts := map[string]any{
		"cliPath":       "/opt/mplx/bin/mplx",
		"max_depth":     5,
		"check_timeout": "2s",
		"debounce":      150,
	}
	cfg, err := config.Load(config.Default(), opts)
	require.NoError(t, err)

	assert.Equal(t, "/opt/mplx/bin/mplx", cfg.CLIPath)
	assert.Equal(t, 5, cfg.MaxDepth)
	assert.Equal(t, 2*time.Second, cfg.CheckTimeout.Std())
	assert.Equal(t, 150*time.Millisecond, cfg.Debounce.Std())
	assert.Equal(t, ".mplx", cfg.Extension)
	assert.Equal(t, config.RenameScopeOpen, cfg.RenameScope)
	assert.Contains(t, cfg.ExcludeDirs, ".git")
}

func TestLoadNil(t *testing.T) {
	cfg, err := config.Load(config.Default(), nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		opts map[string]any
	}{
		{"rename scope", map[string]any{"rename_scope": "everywhere"}},
		{"parallelism", map[string]any{"parallelism": 0}},
		{"extension", map[string]any{"extension": "mplx"}},
		{"duration", map[string]any{"check_timeout": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(config.Default(), tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestCheckerPath(t *testing.T) {
	t.Setenv(config.CheckerEnv, "")
	cfg := config.Default()
	assert.Equal(t, config.DefaultCheckerPath(runtime.GOOS), cfg.CheckerPath())

	t.Setenv(config.CheckerEnv, "/from/env/mplx")
	assert.Equal(t, "/from/env/mplx", cfg.CheckerPath())

	cfg.CLIPath = "/from/options/mplx"
	assert.Equal(t, "/from/options/mplx", cfg.CheckerPath())
}

func TestDefaultCheckerPath(t *testing.T) {
	assert.Equal(t, "build/dev/Presentation/tools/mplx/mplx", config.DefaultCheckerPath("linux"))
	assert.Equal(t, `build\dev\Presentation\tools\mplx\mplx.exe`, config.DefaultCheckerPath("windows"))
}

func TestLoadFromJSON(t *testing.T) {
	cfg, err := config.LoadFromJSON(strings.NewReader(`{"rename_scope": "workspace", "watch": false}`))
	require.NoError(t, err)
	assert.Equal(t, config.RenameScopeWorkspace, cfg.RenameScope)
	assert.False(t, cfg.Watch)
	assert.True(t, cfg.IndexEnabled)
}

func TestDefaultsMap(t *testing.T) {
	values := config.Defaults()
	assert.Equal(t, "mplx", values["language"])
	assert.Equal(t, "10s", values["check_timeout"])
	assert.EqualValues(t, 3, values["max_depth"])
}
