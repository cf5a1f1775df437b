package main

import (
	"errors"
	"os"
	"path/filepath"

	"mplxls/internal/config"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range config.Defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("MPLXLS")
	v.AutomaticEnv()
	_ = v.BindEnv("cli_path", "MPLXLS_CLI_PATH", config.CheckerEnv)
	return v
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	_ = v.BindPFlag("cli_path", fs.Lookup("checker"))
	_ = v.BindPFlag("max_depth", fs.Lookup("max-depth"))
	_ = v.BindPFlag("rename_scope", fs.Lookup("rename-scope"))
}

// loadConfig reads the config file, if any, and resolves every setting
// through flags, environment and file before the built-in defaults.
func loadConfig(v *viper.Viper, file string) (config.Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, err
		}
	} else {
		v.SetConfigName("mplxls")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "mplxls"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return config.Config{}, err
			}
		}
	}
	return config.Load(config.Default(), settings(v))
}

// settings reads every known key. Booleans, numbers and lists are coerced
// to the type of their default so that environment strings like "false"
// or "5" decode.
func settings(v *viper.Viper) map[string]any {
	values := make(map[string]any)
	for key, def := range config.Defaults() {
		switch def.(type) {
		case bool:
			values[key] = v.GetBool(key)
		case float64:
			values[key] = v.GetFloat64(key)
		case []any:
			values[key] = v.GetStringSlice(key)
		default:
			values[key] = v.Get(key)
		}
	}
	return values
}
