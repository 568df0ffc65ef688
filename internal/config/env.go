package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides (PUBLISH_PYTHON, ...).
const EnvPrefix = "PUBLISH"

// NewEnv returns a viper instance reading PUBLISH_* environment variables.
func NewEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Overlay applies the overrides found in v on top of cfg. Keys left unset
// keep the file values.
func Overlay(cfg *Config, v *viper.Viper) {
	if s := v.GetString("python"); s != "" {
		cfg.RawPython = s
	}
	if s := v.GetString("timeout"); s != "" {
		cfg.RawTimeout = s
	}
	if s := v.GetString("package"); s != "" {
		cfg.Package = s
	}
	if s := v.GetString("test_repository"); s != "" {
		cfg.Upload.TestRepository = s
	}
}
