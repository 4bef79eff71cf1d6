// Package config loads incrlint settings from defaults, an optional config
// file, a .env file, INCRLINT_* environment variables and command line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "INCRLINT"
	configName = "incrlint"
)

type Config struct {
	Host          string        `mapstructure:"host"`
	WorkingDir    string        `mapstructure:"working_dir"`
	DefaultBranch string        `mapstructure:"default_branch"`
	Remote        string        `mapstructure:"remote"`
	Format        string        `mapstructure:"format"`
	InputFormat   string        `mapstructure:"input_format"`
	Highlight     bool          `mapstructure:"highlight"`
	Style         string        `mapstructure:"style"`
	Watch         bool          `mapstructure:"watch"`
	Verbose       bool          `mapstructure:"verbose"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

var DefaultConfig = Config{
	Host:          "localhost:4567",
	WorkingDir:    ".",
	DefaultBranch: "master",
	Remote:        "origin",
	Format:        "text",
	InputFormat:   "json",
	Highlight:     false,
	Style:         "monokai",
	Watch:         false,
	Verbose:       false,
	Timeout:       10 * time.Second,
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"host":           "host",
	"working-dir":    "working_dir",
	"default-branch": "default_branch",
	"remote":         "remote",
	"format":         "format",
	"input-format":   "input_format",
	"highlight":      "highlight",
	"style":          "style",
	"watch":          "watch",
	"verbose":        "verbose",
	"timeout":        "timeout",
}

// InitFlags registers the configuration flags on the root command so every
// subcommand inherits them.
func InitFlags(rootCmd *cobra.Command) {
	f := rootCmd.PersistentFlags()
	f.StringP("config", "c", "", "path to a configuration file (YAML or JSON); defaults to incrlint.yaml in the working directory")
	f.String("host", DefaultConfig.Host, "analysis hub address, host:port or URL")
	f.StringP("working-dir", "C", DefaultConfig.WorkingDir, "directory inside the git repository to analyse")
	f.String("default-branch", DefaultConfig.DefaultBranch, "branch compared against when no remote branch contains HEAD")
	f.String("remote", DefaultConfig.Remote, "remote whose tracking branches are compared against")
	f.StringP("format", "f", DefaultConfig.Format, "output format: text, json or yaml")
	f.String("input-format", DefaultConfig.InputFormat, "violations input format: json or yaml")
	f.Bool("highlight", DefaultConfig.Highlight, "print the offending source line with syntax highlighting (text format)")
	f.String("style", DefaultConfig.Style, "chroma style used for highlighting")
	f.Bool("watch", DefaultConfig.Watch, "re-run the report whenever the repository changes")
	f.BoolP("verbose", "v", DefaultConfig.Verbose, "enable verbose logging")
	f.Duration("timeout", DefaultConfig.Timeout, "timeout of each request to the analysis hub")
}

// Load resolves the configuration. flags may be nil, in which case only
// defaults, files and environment are used.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env loaded", slog.Any("error", err))
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	cfgFile := ""
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			cfgFile = f.Value.String()
		}
	}
	if err := readConfigFile(v, cfgFile); err != nil {
		return nil, err
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", DefaultConfig.Host)
	v.SetDefault("working_dir", DefaultConfig.WorkingDir)
	v.SetDefault("default_branch", DefaultConfig.DefaultBranch)
	v.SetDefault("remote", DefaultConfig.Remote)
	v.SetDefault("format", DefaultConfig.Format)
	v.SetDefault("input_format", DefaultConfig.InputFormat)
	v.SetDefault("highlight", DefaultConfig.Highlight)
	v.SetDefault("style", DefaultConfig.Style)
	v.SetDefault("watch", DefaultConfig.Watch)
	v.SetDefault("verbose", DefaultConfig.Verbose)
	v.SetDefault("timeout", DefaultConfig.Timeout)
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		slog.Debug("config file loaded", slog.String("path", path))
		return nil
	}
	v.SetConfigName(configName)
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	slog.Debug("config file loaded", slog.String("path", v.ConfigFileUsed()))
	return nil
}

func (c *Config) Validate() error {
	switch c.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("invalid format %q: want text, json or yaml", c.Format)
	}
	switch c.InputFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("invalid input format %q: want json or yaml", c.InputFormat)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if strings.TrimSpace(c.Remote) == "" {
		return errors.New("remote must not be empty")
	}
	if strings.TrimSpace(c.DefaultBranch) == "" {
		return errors.New("default branch must not be empty")
	}
	return nil
}
