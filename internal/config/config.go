// Package config loads the daemon configuration: YAML file merged with
// env-vars (prefix `CLIPFLOW__`, delimiter `__`).
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	ksink "clipflow/sink/kafka"
	ssink "clipflow/sink/stdout"
)

type BufferCfg struct {
	Driver string `koanf:"driver"` // memory|system
}

type DetectorCfg struct {
	Interval    time.Duration `koanf:"interval"`
	Slack       time.Duration `koanf:"slack"`
	Grace       time.Duration `koanf:"grace"`
	AutoTrigger bool          `koanf:"auto_trigger"` // run the pipeline on external changes
}

type FlowCfg struct {
	Timeout time.Duration `koanf:"timeout"`
	Settle  time.Duration `koanf:"settle"`
}

type EffectCfg struct {
	Command string   `koanf:"command"` // empty = no-op effect
	Args    []string `koanf:"args"`
}

type HistoryCfg struct {
	Sinks  []string     `koanf:"sinks"`
	Stdout ssink.Config `koanf:"stdout"`
	Kafka  ksink.Config `koanf:"kafka"`
}

type Config struct {
	Buffer          BufferCfg   `koanf:"buffer"`
	Detector        DetectorCfg `koanf:"detector"`
	Flow            FlowCfg     `koanf:"flow"`
	Effect          EffectCfg   `koanf:"effect"`
	History         HistoryCfg  `koanf:"history"`
	Transformations string      `koanf:"transformations"` // path to the transformation-set YAML
	ControlPort     int         `koanf:"control_port"`
	MetricsPort     int         `koanf:"metrics_port"`
	LogLevel        string      `koanf:"log_level"`
	LogJSON         bool        `koanf:"log_json"`
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	_ = k.Load(env.Provider("CLIPFLOW__", "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "CLIPFLOW__"))
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

func applyDefaults(c *Config) {
	if c.Buffer.Driver == "" {
		c.Buffer.Driver = "system"
	}
	if c.Detector.Interval == 0 {
		c.Detector.Interval = 150 * time.Millisecond
	}
	if c.Detector.Slack == 0 {
		c.Detector.Slack = 50 * time.Millisecond
	}
	if c.Detector.Grace == 0 {
		c.Detector.Grace = 80 * time.Millisecond
	}
	if c.Flow.Timeout == 0 {
		c.Flow.Timeout = 30 * time.Second
	}
	if c.Flow.Settle == 0 {
		c.Flow.Settle = 50 * time.Millisecond
	}
	if len(c.History.Sinks) == 0 {
		c.History.Sinks = []string{"stdout"}
	}
	if c.ControlPort == 0 {
		c.ControlPort = 7080
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = 9100
	}
	if c.Transformations == "" {
		c.Transformations = "transformations.yml"
	}
}
