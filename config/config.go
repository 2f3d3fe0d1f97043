// Package config loads the settings shared by all astroprobe commands.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configName = "astroprobe"
	envPrefix  = "astroprobe"
)

// Account is a set of sign-in credentials for one role.
type Account struct {
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"password"`
}

// Configured is true if both fields are set.
func (a Account) Configured() bool {
	return a.Email != "" && a.Password != ""
}

// UserStore locates the application's user database for the credential tools.
type UserStore struct {
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	Database string `mapstructure:"database" yaml:"database"`
}

type Config struct {
	BaseURL            string        `mapstructure:"base_url" yaml:"base_url"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	SlowRequestTimeout time.Duration `mapstructure:"slow_request_timeout" yaml:"slow_request_timeout"`
	StartupTimeout     time.Duration `mapstructure:"startup_timeout" yaml:"startup_timeout"`
	DelayBetweenTests  time.Duration `mapstructure:"delay_between_tests" yaml:"delay_between_tests"`
	Parallel           int           `mapstructure:"parallel" yaml:"parallel"`
	Capabilities       []string      `mapstructure:"capabilities" yaml:"capabilities"`
	Client             Account       `mapstructure:"client" yaml:"client"`
	Admin              Account       `mapstructure:"admin" yaml:"admin"`
	WebhookSecret      string        `mapstructure:"webhook_secret" yaml:"webhook_secret"`
	Output             string        `mapstructure:"output" yaml:"output"`
	UserStore          UserStore     `mapstructure:"user_store" yaml:"user_store"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" yaml:"-"`
}

// Defaults returns the value of every key when nothing else sets it.
func Defaults() map[string]any {
	return map[string]any{
		"base_url":             "",
		"request_timeout":      10 * time.Second,
		"slow_request_timeout": 15 * time.Second,
		"startup_timeout":      30 * time.Second,
		"delay_between_tests":  time.Second,
		"parallel":             1,
		"capabilities":         []string{},
		"client.email":         "",
		"client.password":      "",
		"admin.email":          "",
		"admin.password":       "",
		"webhook_secret":       "",
		"output":               "",
		"user_store.dsn":       "",
		"user_store.database":  "",
	}
}

// flagKeys maps command-line flag names to config keys where they differ.
var flagKeys = map[string]string{
	"url":            "base_url",
	"capability":     "capabilities",
	"delay":          "delay_between_tests",
	"timeout":        "request_timeout",
	"dsn":            "user_store.dsn",
	"database":       "user_store.database",
	"webhook-secret": "webhook_secret",
}

// Load merges, from lowest to highest precedence: defaults, the config file, environment
// variables (ASTROPROBE_BASE_URL, ASTROPROBE_CLIENT_EMAIL, ...), and flags of cmd that
// were set explicitly. If configFile is empty, astroprobe.yaml is searched for in the
// user config directory and then the working directory; not finding one is not an error.
func Load(cmd *cobra.Command, configFile string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, configName))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return c, fmt.Errorf("could not read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		if err := bindFlags(v, cmd); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("invalid configuration: %w", err)
	}
	c.File = v.ConfigFileUsed()
	return c, nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flagName, key := range flagKeys {
		if f := cmd.Flags().Lookup(flagName); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	for key := range Defaults() {
		if _, mapped := flagKeys[key]; mapped {
			continue
		}
		if f := cmd.Flags().Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateForRun checks the settings needed to run the test suites.
func (c Config) ValidateForRun() error {
	if c.BaseURL == "" {
		return errors.New("no target URL: use --url or set base_url")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("target URL %q is not an absolute http(s) URL", c.BaseURL)
	}
	if c.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d", c.Parallel)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}
