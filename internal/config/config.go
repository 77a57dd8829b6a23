package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/sieve/internal/matcher"
	"gopkg.in/yaml.v3"
)

const defaultBind = ":53"

// Config is the root runtime configuration.
type Config struct {
	Bind     string           `json:"bind" yaml:"bind"`
	Timeout  int64            `json:"timeout" yaml:"timeout"` // per request, milliseconds
	Resource Resource         `json:"resource" yaml:"resource"`
	Rules    []Rule           `json:"rules" yaml:"rules"`
	Log      logger.LogConfig `json:"log" yaml:"log"`
	Cache    CacheConfig      `json:"cache" yaml:"cache"`
	Pprof    PprofConfig      `json:"pprof" yaml:"pprof"`
}

type CacheConfig struct {
	Size     int64  `json:"size" yaml:"size"`
	Lazy     bool   `json:"lazy" yaml:"lazy"`
	Persist  bool   `json:"persist" yaml:"persist"`
	File     string `json:"file" yaml:"file"`
	Interval int64  `json:"interval" yaml:"interval"` // seconds
}

// PluginConfig declares one named matcher or action. Data is handed to the
// factory registered for Type.
type PluginConfig struct {
	Name string      `json:"name" yaml:"name"`
	Type string      `json:"type" yaml:"type"`
	Data interface{} `json:"data" yaml:"data"`
}

type PprofConfig struct {
	Enable bool   `json:"enable" yaml:"enable"`
	Bind   string `json:"bind" yaml:"bind"`
}

// Rule routes requests accepted by the Match expression to Action.
// An empty Match accepts everything.
type Rule struct {
	Remark string `json:"remark" yaml:"remark"`
	Match  string `json:"match" yaml:"match"`
	Action string `json:"action" yaml:"action"`
}

type Resource struct {
	Matcher []PluginConfig `json:"matcher" yaml:"matcher"`
	Action  []PluginConfig `json:"action" yaml:"action"`
}

// Load reads the yaml configuration file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Bind == "" {
		cfg.Bind = defaultBind
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if err := checkPlugins("matcher", c.Resource.Matcher); err != nil {
		return err
	}
	for _, p := range c.Resource.Matcher {
		if err := matcher.CheckName(p.Name); err != nil {
			return err
		}
	}
	if err := checkPlugins("action", c.Resource.Action); err != nil {
		return err
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("no rules configured")
	}
	for idx, r := range c.Rules {
		if r.Action == "" {
			return fmt.Errorf("rule:%d has no action", idx)
		}
	}
	if c.Cache.Persist && c.Cache.File == "" {
		return fmt.Errorf("cache persist enabled without file")
	}
	return nil
}

func checkPlugins(kind string, ps []PluginConfig) error {
	seen := make(map[string]struct{}, len(ps))
	for idx, p := range ps {
		if p.Name == "" || p.Type == "" {
			return fmt.Errorf("%s:%d requires name and type", kind, idx)
		}
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("duplicate %s name:%s", kind, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
