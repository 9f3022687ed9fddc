// Package config provides configuration management for xtpl using Viper for
// loading from files, environment variables and command-line flags.
//
// The configuration is read from .xtpl.yml (or the file named by
// XTPL_CONFIG_FILE), overridden by XTPL_ prefixed environment variables and
// bound flags. It covers the template engine conventions, where sources are
// read from, the build pipeline, the preview server and logging.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"

	xterrors "github.com/conneroisu/xtpl/internal/errors"
	"github.com/conneroisu/xtpl/internal/logging"
	"github.com/conneroisu/xtpl/internal/source"
)

type Config struct {
	Engine      EngineConfig      `mapstructure:"engine" yaml:"engine"`
	Source      SourceConfig      `mapstructure:"source" yaml:"source"`
	Build       BuildConfig       `mapstructure:"build" yaml:"build"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Development DevelopmentConfig `mapstructure:"development" yaml:"development"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	// Modules holds the values of plain module="require" specifiers. Viper
	// lowercases the names.
	Modules map[string]any `mapstructure:"modules" yaml:"modules"`
}

type EngineConfig struct {
	Extension      string `mapstructure:"extension" yaml:"extension"`
	DefaultPartial string `mapstructure:"default_partial" yaml:"default_partial"`
	SuperAlias     string `mapstructure:"super_alias" yaml:"super_alias"`
	ModuleID       string `mapstructure:"module_id" yaml:"module_id"`
	Compiler       string `mapstructure:"compiler" yaml:"compiler"`
	ExposeDeps     bool   `mapstructure:"expose_deps" yaml:"expose_deps"`
}

type SourceConfig struct {
	// Root is the directory templates are read from.
	Root string `mapstructure:"root" yaml:"root"`
	// BaseURL, when set, makes templates load over HTTP instead of Root.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type BuildConfig struct {
	OutputDir   string   `mapstructure:"output_dir" yaml:"output_dir"`
	Patterns    []string `mapstructure:"patterns" yaml:"patterns"`
	Concurrency int      `mapstructure:"concurrency" yaml:"concurrency"`
	Manifest    string   `mapstructure:"manifest" yaml:"manifest"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type DevelopmentConfig struct {
	HotReload bool          `mapstructure:"hot_reload" yaml:"hot_reload"`
	Debounce  time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	opts := source.DefaultOptions()
	v.SetDefault("engine.extension", opts.Extension)
	v.SetDefault("engine.default_partial", opts.DefaultPartial)
	v.SetDefault("engine.super_alias", opts.SuperAlias)
	v.SetDefault("engine.module_id", opts.ModuleID)
	v.SetDefault("engine.compiler", "identity")
	v.SetDefault("engine.expose_deps", true)

	v.SetDefault("source.root", "templates")
	v.SetDefault("source.base_url", "")

	v.SetDefault("build.output_dir", "dist")
	v.SetDefault("build.patterns", []string{"**/*.html"})
	v.SetDefault("build.concurrency", 4)
	v.SetDefault("build.manifest", "manifest.json")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("development.hot_reload", true)
	v.SetDefault("development.debounce", 300*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v, applying defaults for every
// setting v does not hold, and validates it.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, xterrors.NewConfigError(xterrors.ErrCodeConfigInvalid, "failed to decode configuration").
			WithContext("cause", err.Error())
	}

	// Slices set through env or flags arrive as a single string.
	if v.IsSet("build.patterns") {
		config.Build.Patterns = v.GetStringSlice("build.patterns")
	}
	if v.IsSet("server.allowed_origins") {
		config.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}

	if result := Validate(&config); result.HasErrors() {
		return nil, xterrors.NewConfigError(xterrors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid configuration: %s", result.Errors[0].Error()))
	}
	return &config, nil
}

// SourceOptions returns the engine naming conventions.
func (c *Config) SourceOptions() source.Options {
	return source.Options{
		Extension:      c.Engine.Extension,
		DefaultPartial: c.Engine.DefaultPartial,
		SuperAlias:     c.Engine.SuperAlias,
		ModuleID:       c.Engine.ModuleID,
	}
}

// LoggerConfig returns the logging settings. Validate has already checked
// the level.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	cfg := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	cfg.Format = c.Log.Format
	return cfg
}

// Addr returns the listen address of the preview server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
