package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/icyseptember2237/jshell"
)

const (
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "jsh"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "JSH"

	LoaderGo     = "go"
	LoaderPlugin = "plugin"
	LoaderNone   = "none"
)

// Config holds the shell settings.
type Config struct {
	Engine      string   `mapstructure:"engine"`
	Loader      string   `mapstructure:"loader"`
	BootDir     string   `mapstructure:"boot_dir"`
	BootArchive string   `mapstructure:"boot_archive"`
	LibraryPath []string `mapstructure:"library_path"`
	LogFile     string   `mapstructure:"log_file"`
	Debug       bool     `mapstructure:"debug"`
	// NoTCPIP keeps networking modules out of the engine.
	NoTCPIP bool `mapstructure:"no_tcpip"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() *Config {
	return &Config{
		Engine:      jshell.TypeEngineJs,
		Loader:      LoaderGo,
		BootDir:     jshell.DefaultBootDir,
		BootArchive: jshell.DefaultBootArchive,
		LibraryPath: []string{"."},
		LogFile:     jshell.DefaultLogFile,
	}
}

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath is searched for jsh.* instead of the working directory.
	ConfigDirPath string
}

// Load resolves the configuration from defaults, file and environment.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("engine", defaults.Engine)
	v.SetDefault("loader", defaults.Loader)
	v.SetDefault("boot_dir", defaults.BootDir)
	v.SetDefault("boot_archive", defaults.BootArchive)
	v.SetDefault("library_path", defaults.LibraryPath)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("debug", defaults.Debug)
	v.SetDefault("no_tcpip", defaults.NoTCPIP)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("boot_dir", EnvPrefix+"_BOOT_DIR", jshell.BootPathVar); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", opts.ConfigFilePath, err)
		}
	} else {
		dir := opts.ConfigDirPath
		if dir == "" {
			dir = "."
		}
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown engine and loader names.
func (c *Config) Validate() error {
	switch c.Engine {
	case jshell.TypeEngineJs, jshell.TypeEngineLua:
	default:
		return fmt.Errorf("config: engine %q: %w", c.Engine, jshell.ErrUnknownEngine)
	}
	switch c.Loader {
	case LoaderGo, LoaderPlugin, LoaderNone:
	default:
		return fmt.Errorf("config: unknown loader %q", c.Loader)
	}
	return nil
}
