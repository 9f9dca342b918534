// Package config loads ascribe settings.
//
// Sources are layered lowest to highest: built-in defaults, a YAML config
// file, ASCRIBE_* environment variables, then explicitly set command-line
// flags. The decoded result is checked against an embedded CUE schema
// before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ASCRIBE_REMOTE_KIND.
const EnvPrefix = "ASCRIBE"

// Remote kinds.
const (
	RemoteNone  = "none"
	RemoteFile  = "file"
	RemoteS3    = "s3"
	RemoteRedis = "redis"
)

// Log configures the process logger.
type Log struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// Remote selects and configures the sync target. Path and Key may contain
// an {owner} placeholder.
type Remote struct {
	Kind           string `mapstructure:"kind" json:"kind"`
	Path           string `mapstructure:"path" json:"path"`
	Bucket         string `mapstructure:"bucket" json:"bucket"`
	Key            string `mapstructure:"key" json:"key"`
	Region         string `mapstructure:"region" json:"region"`
	Endpoint       string `mapstructure:"endpoint" json:"endpoint"`
	Addr           string `mapstructure:"addr" json:"addr"`
	Password       string `mapstructure:"password" json:"password"`
	DB             int    `mapstructure:"db" json:"db"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`
}

// Timeout bounds a single remote call. Zero means unbounded.
func (r Remote) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Config is the full set of settings.
type Config struct {
	Database           string   `mapstructure:"database" json:"database"`
	Owner              string   `mapstructure:"owner" json:"owner"`
	DefaultBible       string   `mapstructure:"default_bible" json:"default_bible"`
	Bibles             []string `mapstructure:"bibles" json:"bibles"`
	GroupWindowSeconds int      `mapstructure:"group_window_seconds" json:"group_window_seconds"`
	Log                Log      `mapstructure:"log" json:"log"`
	Remote             Remote   `mapstructure:"remote" json:"remote"`
}

// GroupWindow is how long an open group stays open before the next push
// commits it. Zero disables the window.
func (c Config) GroupWindow() time.Duration {
	return time.Duration(c.GroupWindowSeconds) * time.Second
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Database: "ascribe.db",
		Bibles:   []string{},
		Log:      Log{Level: "info", Format: "text"},
		Remote: Remote{
			Kind:           RemoteNone,
			Key:            "ascribe/{owner}/notes.json",
			TimeoutSeconds: 30,
		},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"db":           "database",
	"owner":        "owner",
	"bible":        "default_bible",
	"bibles":       "bibles",
	"group-window": "group_window_seconds",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"remote":       "remote.kind",
	"remote-path":  "remote.path",
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// File is an explicit config file. When empty, ascribe.yaml is looked
	// up in the working directory and the user config directory, and a
	// missing file is not an error.
	File string

	// Flags are consulted for keys in flagKeys. Only flags the user set
	// override lower layers.
	Flags *pflag.FlagSet
}

// Load builds the layered configuration and validates it.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readFile(v, opts.File); err != nil {
		return Config{}, err
	}

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Bibles == nil {
		cfg.Bibles = []string{}
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("database", d.Database)
	v.SetDefault("owner", d.Owner)
	v.SetDefault("default_bible", d.DefaultBible)
	v.SetDefault("bibles", d.Bibles)
	v.SetDefault("group_window_seconds", d.GroupWindowSeconds)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("remote.kind", d.Remote.Kind)
	v.SetDefault("remote.path", d.Remote.Path)
	v.SetDefault("remote.bucket", d.Remote.Bucket)
	v.SetDefault("remote.key", d.Remote.Key)
	v.SetDefault("remote.region", d.Remote.Region)
	v.SetDefault("remote.endpoint", d.Remote.Endpoint)
	v.SetDefault("remote.addr", d.Remote.Addr)
	v.SetDefault("remote.password", d.Remote.Password)
	v.SetDefault("remote.db", d.Remote.DB)
	v.SetDefault("remote.timeout_seconds", d.Remote.TimeoutSeconds)
}

func readFile(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
		return nil
	}

	v.SetConfigName("ascribe")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "ascribe"))
	}

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}
