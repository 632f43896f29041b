// Package config loads panopticon settings from a YAML file and
// PANOPTICON_* environment variables, and watches schema files for
// changes.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jettison/panopticon/format"
	"github.com/jettison/panopticon/snapshot"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "PANOPTICON_"

type Config struct {
	// Schema is the path of the schema file.
	Schema string `koanf:"schema"`
	// WatchSchema reloads the schema when its file changes.
	WatchSchema bool           `koanf:"watchschema"`
	Source      SourceConfig   `koanf:"source"`
	Envelope    EnvelopeConfig `koanf:"envelope"`
	Metrics     MetricsConfig  `koanf:"metrics"`
}

// SourceConfig selects where snapshots come from; at most one of File,
// Exec and WebSocket may be set.
type SourceConfig struct {
	File      string        `koanf:"file"`
	Exec      string        `koanf:"exec"`
	WebSocket string        `koanf:"websocket"`
	Every     time.Duration `koanf:"every"`
	Reconnect time.Duration `koanf:"reconnect"`
	Format    string        `koanf:"format"`
}

type EnvelopeConfig struct {
	Seq   string `koanf:"seq"`
	Time  string `koanf:"time"`
	State string `koanf:"state"`
}

type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

func Default() *Config {
	env := snapshot.DefaultEnvelope()
	return &Config{
		Source: SourceConfig{
			Every:     time.Second,
			Reconnect: 2 * time.Second,
			Format:    format.YAMLFormat.String(),
		},
		Envelope: EnvelopeConfig{Seq: env.SeqKey, Time: env.TimeKey, State: env.StateKey},
	}
}

// Load returns the defaults overridden by the file at path, if path is
// not empty, and then by the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	envKey := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	n := 0
	for _, s := range []string{c.Source.File, c.Source.Exec, c.Source.WebSocket} {
		if s != "" {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("config: at most one of source.file, source.exec and source.websocket may be set")
	}
	if _, err := c.Format(); err != nil {
		return fmt.Errorf("config: source.format: %w", err)
	}
	if c.Source.Exec != "" && c.Source.Every <= 0 {
		return fmt.Errorf("config: source.every must be positive, got %s", c.Source.Every)
	}
	return nil
}

func (c *Config) Format() (format.Format, error) {
	return format.ParseFormat(c.Source.Format)
}

func (c *Config) SnapshotEnvelope() snapshot.Envelope {
	return snapshot.Envelope{SeqKey: c.Envelope.Seq, TimeKey: c.Envelope.Time, StateKey: c.Envelope.State}
}
