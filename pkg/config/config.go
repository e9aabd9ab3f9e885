// Package config loads run settings from defaults, an optional YAML file,
// GITPERSONA_ environment variables and command-line flags, in that order
// of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const (
	envPrefix      = "GITPERSONA"
	configName     = "gitpersona"
	defaultThreads = 10
)

type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Scan   ScanConfig   `mapstructure:"scan"`
	Filter FilterConfig `mapstructure:"filter"`
	GitHub GitHubConfig `mapstructure:"github"`
	Report ReportConfig `mapstructure:"report"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error disabled off"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

type ScanConfig struct {
	Threads int           `mapstructure:"threads" validate:"min=1,max=256"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=0"`
	History string        `mapstructure:"history" validate:"oneof=all default"`
	Backend string        `mapstructure:"backend" validate:"oneof=go-git exec"`
	Keep    bool          `mapstructure:"keep"`
	// WorkDir holds clones; the system temp dir when empty.
	WorkDir string `mapstructure:"workdir"`
}

type FilterConfig struct {
	Emails []string `mapstructure:"emails"`
	Names  []string `mapstructure:"names"`
}

type GitHubConfig struct {
	BaseURL   string `mapstructure:"base_url" validate:"required,url"`
	UploadURL string `mapstructure:"upload_url" validate:"required,url"`
	Token     string `mapstructure:"token"`
}

type ReportConfig struct {
	Format  string `mapstructure:"format" validate:"oneof=text json yaml"`
	Verbose bool   `mapstructure:"verbose"`
	// Color is one of auto, always, never.
	Color string `mapstructure:"color" validate:"oneof=auto always never"`
}

// FlagKeys maps command-line flag names onto configuration keys. Only flags
// present in the set passed to Load are bound.
var FlagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"threads":    "scan.threads",
	"timeout":    "scan.timeout",
	"history":    "scan.history",
	"backend":    "scan.backend",
	"keep":       "scan.keep",
	"workdir":    "scan.workdir",
	"baseurl":    "github.base_url",
	"uploadurl":  "github.upload_url",
	"format":     "report.format",
	"verbose":    "report.verbose",
	"color":      "report.color",
}

// Load resolves the configuration. An explicit configPath must exist; without
// one, gitpersona.yaml is looked up in the working directory and in
// $HOME/.config/gitpersona and is optional.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("scan.threads", defaultThreads)
	v.SetDefault("scan.timeout", "10m")
	v.SetDefault("scan.history", "all")
	v.SetDefault("scan.backend", "go-git")
	v.SetDefault("scan.keep", false)
	v.SetDefault("scan.workdir", "")

	v.SetDefault("filter.emails", []string{"noreply@github.com"})
	v.SetDefault("filter.names", []string{})

	v.SetDefault("github.base_url", "https://api.github.com/")
	v.SetDefault("github.upload_url", "https://uploads.github.com/")
	v.SetDefault("github.token", "")

	v.SetDefault("report.format", "text")
	v.SetDefault("report.verbose", false)
	v.SetDefault("report.color", "auto")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %q fails %s", fe.Namespace(), fmt.Sprint(fe.Value()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}
