package config

import (
	"fmt"
	"strings"
	"time"

	kYaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "HUFF_"

// Defaults are loaded before any other source.
var Defaults = map[string]any{
	"logger.level":             "info",
	"logger.time-format":       time.RFC3339,
	"logger.prettier":          false,
	"codec.max-input":          int64(1) << 40,
	"codec.workers":            0,
	"codec.parallel-threshold": 4 << 20,
	"codec.tree-cache":         0,
	"metrics.textfile":         "",
}

type Conf struct {
	*koanf.Koanf
}

func New() *Conf {
	return &Conf{Koanf: koanf.New(".")}
}

// Load merges, in order, the defaults, the YAML file at path (skipped when
// path is empty), HUFF_* environment variables and overrides.
func Load(path string, overrides map[string]any) (*Conf, error) {
	conf := New()

	if err := conf.Load(confmap.Provider(Defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := conf.Load(file.Provider(path), kYaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := conf.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if len(overrides) > 0 {
		if err := conf.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	return conf, nil
}

// envKey maps HUFF_CODEC_MAX_INPUT to codec.max-input: the first underscore
// separates the section, the rest join words.
func envKey(s string, v string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, name, ok := strings.Cut(key, "_")
	if !ok {
		return key, v
	}
	return section + "." + strings.ReplaceAll(name, "_", "-"), v
}

func (c *Conf) Get(path string, defaultValues ...any) any {
	if !c.Koanf.Exists(path) && len(defaultValues) > 0 {
		return defaultValues[0]
	}

	return c.Koanf.Get(path)
}

func (c *Conf) Bool(path string, defaultValues ...bool) bool {
	if !c.Koanf.Exists(path) && len(defaultValues) > 0 {
		return defaultValues[0]
	}

	return c.Koanf.Bool(path)
}

func (c *Conf) String(path string, defaultValues ...string) string {
	if !c.Koanf.Exists(path) && len(defaultValues) > 0 {
		return defaultValues[0]
	}

	return c.Koanf.String(path)
}

func (c *Conf) Int(path string, defaultValues ...int) int {
	if !c.Koanf.Exists(path) && len(defaultValues) > 0 {
		return defaultValues[0]
	}

	return c.Koanf.Int(path)
}

func (c *Conf) Int64(path string, defaultValues ...int64) int64 {
	if !c.Koanf.Exists(path) && len(defaultValues) > 0 {
		return defaultValues[0]
	}

	return c.Koanf.Int64(path)
}
