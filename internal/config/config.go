// Package config loads agent-recall settings from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// Filename is the config file name inside the home directory.
	Filename = "config.yaml"

	EnvHome     = "AGENT_RECALL_HOME"
	EnvLogLevel = "AGENT_RECALL_LOG_LEVEL"
)

type SessionConfig struct {
	Capacity int `yaml:"capacity"`
	TopN     int `yaml:"top_n"`
}

type GraphConfig struct {
	Alpha      float64 `yaml:"alpha"`
	PruneEvery int     `yaml:"prune_every"`
	MaxDepth   int     `yaml:"max_depth"`
}

type ExpansionConfig struct {
	Limit    int     `yaml:"limit"`
	MinScore float64 `yaml:"min_score"`
}

type CalibrationConfig struct {
	QueryTags int `yaml:"query_tags"`
	EntryTags int `yaml:"entry_tags"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output,omitempty"`
}

// Config is read once per load and handed to memory contexts as a value.
type Config struct {
	RecallOnce    int               `yaml:"recall_once"`
	TagWidth      int               `yaml:"tag_width"`
	CacheCapacity int               `yaml:"cache_capacity"`
	Session       SessionConfig     `yaml:"session"`
	Graph         GraphConfig       `yaml:"graph"`
	Expansion     ExpansionConfig   `yaml:"expansion"`
	Calibration   CalibrationConfig `yaml:"calibration"`
	Log           LogConfig         `yaml:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		RecallOnce:    3,
		TagWidth:      16,
		CacheCapacity: 512,
		Session: SessionConfig{
			Capacity: 10,
			TopN:     6,
		},
		Graph: GraphConfig{
			Alpha:      0.7,
			PruneEvery: 1000,
			MaxDepth:   3,
		},
		Expansion: ExpansionConfig{
			Limit:    5,
			MinScore: 0.3,
		},
		Calibration: CalibrationConfig{
			QueryTags: 6,
			EntryTags: 8,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Path returns the config file path inside home.
func Path(home string) string {
	return filepath.Join(home, Filename)
}

// Load reads path. A missing file yields the defaults; zero fields in the file
// are filled from the defaults. EnvLogLevel overrides the log level.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		cfg = merge(cfg, &fileCfg)
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func merge(def, f *Config) *Config {
	out := *def
	setInt(&out.RecallOnce, f.RecallOnce)
	setInt(&out.TagWidth, f.TagWidth)
	setInt(&out.CacheCapacity, f.CacheCapacity)
	setInt(&out.Session.Capacity, f.Session.Capacity)
	setInt(&out.Session.TopN, f.Session.TopN)
	setInt(&out.Graph.PruneEvery, f.Graph.PruneEvery)
	setInt(&out.Graph.MaxDepth, f.Graph.MaxDepth)
	setInt(&out.Expansion.Limit, f.Expansion.Limit)
	setInt(&out.Calibration.QueryTags, f.Calibration.QueryTags)
	setInt(&out.Calibration.EntryTags, f.Calibration.EntryTags)
	if f.Graph.Alpha > 0 {
		out.Graph.Alpha = f.Graph.Alpha
	}
	if f.Expansion.MinScore > 0 {
		out.Expansion.MinScore = f.Expansion.MinScore
	}
	if f.Log.Level != "" {
		out.Log.Level = f.Log.Level
	}
	if f.Log.Format != "" {
		out.Log.Format = f.Log.Format
	}
	if f.Log.Output != "" {
		out.Log.Output = f.Log.Output
	}
	return &out
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
