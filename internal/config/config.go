package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"
)

const (
	RenameScopeOpen      = "open"
	RenameScopeWorkspace = "workspace"

	// CheckerEnv names the environment variable consulted when no checker path is configured.
	CheckerEnv = "MPLX_CLI"
)

type Config struct {
	CLIPath      string   `json:"cli_path"`
	Language     string   `json:"language"`
	Extension    string   `json:"extension"`
	MaxDepth     int      `json:"max_depth"`
	CheckTimeout Duration `json:"check_timeout"`
	Debounce     Duration `json:"debounce"`
	RenameScope  string   `json:"rename_scope"`
	IndexPath    string   `json:"index_path"` // empty selects the state directory
	IndexEnabled bool     `json:"index_enabled"`
	Watch        bool     `json:"watch"`
	ExcludeDirs  []string `json:"exclude_dirs"`
	Parallelism  int      `json:"parallelism"`
}

var defaultConfig = Config{
	Language:     "mplx",
	Extension:    ".mplx",
	MaxDepth:     3,
	CheckTimeout: Duration(10 * time.Second),
	RenameScope:  RenameScopeOpen,
	IndexEnabled: true,
	Watch:        true,
	ExcludeDirs:  []string{".git", "node_modules", "build", ".vs", ".vscode"},
	Parallelism:  8,
}

// Default returns a copy of the built-in configuration.
func Default() Config {
	cfg := defaultConfig
	cfg.ExcludeDirs = append([]string(nil), defaultConfig.ExcludeDirs...)
	return cfg
}

// Defaults returns the built-in configuration as a flat key/value map,
// suitable for registering defaults with a layered config source.
func Defaults() map[string]any {
	data, _ := json.Marshal(Default())
	values := make(map[string]any)
	_ = json.Unmarshal(data, &values)
	return values
}

// Load overlays v onto base: v is marshalled to JSON and only the fields
// present in it overwrite. The host's camelCase "cliPath" is accepted as
// an alias of cli_path.
func Load(base Config, v any) (Config, error) {
	cfg := base
	cfg.ExcludeDirs = append([]string(nil), base.ExcludeDirs...)
	if v == nil {
		return cfg, cfg.Validate()
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}
	if string(data) == "null" {
		return cfg, cfg.Validate()
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}

	var alias struct {
		CLIPath string `json:"cliPath"`
	}
	if err := json.Unmarshal(data, &alias); err == nil && alias.CLIPath != "" {
		cfg.CLIPath = alias.CLIPath
	}

	return cfg, cfg.Validate()
}

// LoadFromJSON reads JSON from r over the defaults.
func LoadFromJSON(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	switch c.RenameScope {
	case RenameScopeOpen, RenameScopeWorkspace:
	default:
		return fmt.Errorf("invalid rename_scope %q: want %q or %q", c.RenameScope, RenameScopeOpen, RenameScopeWorkspace)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("invalid max_depth %d", c.MaxDepth)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("invalid parallelism %d", c.Parallelism)
	}
	if !strings.HasPrefix(c.Extension, ".") {
		return fmt.Errorf("invalid extension %q: must start with a dot", c.Extension)
	}
	if c.CheckTimeout < 0 || c.Debounce < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// CheckerPath resolves the external checker: the configured path, then the
// MPLX_CLI environment variable, then the in-tree development build.
func (c Config) CheckerPath() string {
	if c.CLIPath != "" {
		return c.CLIPath
	}
	if env := os.Getenv(CheckerEnv); env != "" {
		return env
	}
	return DefaultCheckerPath(runtime.GOOS)
}

// DefaultCheckerPath is the development build location of the checker for goos.
func DefaultCheckerPath(goos string) string {
	if goos == "windows" {
		return `build\dev\Presentation\tools\mplx\mplx.exe`
	}
	return "build/dev/Presentation/tools/mplx/mplx"
}
