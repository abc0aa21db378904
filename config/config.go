// Package config loads the settings shared by the ensemble commands
// from defaults, an optional file, ENSEMBLE_* environment variables and
// command line flags, in increasing order of precedence.
package config

import (
	"os"

	"github.com/ensemblecast/ensemble/transport"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read, e.g. ENSEMBLE_ADDRESS.
const EnvPrefix = "ENSEMBLE"

type Config struct {
	Transport      string  `mapstructure:"transport"`
	Address        string  `mapstructure:"address"`
	Insecure       bool    `mapstructure:"insecure"`
	MaxFPS         float64 `mapstructure:"max_fps"`
	MaxConcurrency int     `mapstructure:"max_concurrency"`
	PreviewWidth   int     `mapstructure:"preview_width"`
	PreviewHeight  int     `mapstructure:"preview_height"`
	LogLevel       string  `mapstructure:"log_level"`
	LogFormat      string  `mapstructure:"log_format"`
	MetricsAddr    string  `mapstructure:"metrics_addr"`
}

var defaults = map[string]any{
	"transport":       "tcp",
	"address":         "127.0.0.1:7470",
	"insecure":        false,
	"max_fps":         30.0,
	"max_concurrency": 0,
	"preview_width":   600,
	"preview_height":  400,
	"log_level":       "info",
	"log_format":      "text",
	"metrics_addr":    "",
}

// New returns a viper instance with defaults and environment lookup in
// place. Flags bound with BindFlags override both.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag in fs whose name, with dashes read as
// underscores, is a config key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key := flagKey(f.Name)
		if _, ok := defaults[key]; ok && err == nil {
			err = v.BindPFlag(key, f)
		}
	})
	return err
}

func flagKey(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c == '-' {
			b[i] = '_'
		}
	}
	return string(b)
}

// Load reads file, or when it is empty an ensemble.yaml from the usual
// places if one exists, and decodes the result.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "config: read %s", file)
		}
	} else {
		v.SetConfigName("ensemble")
		v.SetConfigType("yaml")
		for _, path := range []string{".", "$HOME/.ensemble", "/etc/ensemble"} {
			v.AddConfigPath(os.ExpandEnv(path))
		}
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, errors.Wrap(err, "config: read")
			}
		}
	}

	var c Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &c,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return Config{}, errors.Wrap(err, "config: decode")
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if _, ok := transport.Dialers[c.Transport]; !ok {
		return errors.Errorf("config: unknown transport %q", c.Transport)
	}
	switch {
	case c.MaxFPS < 0:
		return errors.Errorf("config: max_fps must not be negative, got %v", c.MaxFPS)
	case c.MaxConcurrency < 0:
		return errors.Errorf("config: max_concurrency must not be negative, got %d", c.MaxConcurrency)
	case c.PreviewWidth <= 0 || c.PreviewHeight <= 0:
		return errors.Errorf("config: preview size must be positive, got %dx%d", c.PreviewWidth, c.PreviewHeight)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "config")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return errors.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Logger returns a logger writing to stderr at the configured level and
// format.
func (c Config) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
