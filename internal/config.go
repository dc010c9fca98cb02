package internal

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

type NovacolConfig struct {
	AppName string `mapstructure:"app_name"`

	Pivot struct {
		Workers          int `mapstructure:"workers"`
		MinRowsPerWorker int `mapstructure:"min_rows_per_worker"`
	} `mapstructure:"pivot"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	CLI struct {
		HistoryFile string `mapstructure:"history_file"`
		HistoryMax  int    `mapstructure:"history_max"`
		Prompt      string `mapstructure:"prompt"`
	} `mapstructure:"cli"`

	Loader struct {
		Comma string `mapstructure:"comma"`
	} `mapstructure:"loader"`

	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
}

// LoadConfig reads a YAML file on top of the defaults. An empty path uses
// defaults plus NOVACOL_* environment overrides (NOVACOL_PIVOT_WORKERS, ...).
func LoadConfig(path string) (*NovacolConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NOVACOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg NovacolConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len([]rune(cfg.Loader.Comma)) > 1 {
		return nil, fmt.Errorf("config: loader.comma must be a single character, got %q", cfg.Loader.Comma)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "novacol")
	v.SetDefault("pivot.workers", 0)
	v.SetDefault("pivot.min_rows_per_worker", 16384)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("cli.history_file", "")
	v.SetDefault("cli.history_max", 2000)
	v.SetDefault("cli.prompt", "novacol> ")
	v.SetDefault("loader.comma", ",")
	v.SetDefault("server.addr", "127.0.0.1:8866")
}

// LogLevel maps log.level onto slog; unknown values fall back to info.
func (c *NovacolConfig) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Comma returns the loader delimiter, ',' when unset.
func (c *NovacolConfig) Comma() rune {
	r := []rune(c.Loader.Comma)
	if len(r) == 0 {
		return ','
	}
	return r[0]
}

// NewLogger builds the slog handler selected by log.format (text or json)
// at log.level.
func (c *NovacolConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel()}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
