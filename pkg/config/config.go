// Package config loads citegraph settings from defaults, an optional config
// file, the environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/pflag"

	"github.com/ritzau/citegraph/pkg/hierarchy"
	"github.com/ritzau/citegraph/pkg/lens"
	"github.com/ritzau/citegraph/pkg/logging"
	"github.com/ritzau/citegraph/pkg/view"
)

// EnvPrefix prefixes environment variables, e.g. CITEGRAPH_PORT=9090
const EnvPrefix = "CITEGRAPH_"

// Config files looked up in the working directory, first match wins
var configFiles = []string{"citegraph.toml", "citegraph.yaml", "citegraph.yml"}

// Config holds all configuration for the application
type Config struct {
	Categories   string            `koanf:"categories"`
	Publications Publications      `koanf:"publications"`
	Database     string            `koanf:"database"`
	Port         int               `koanf:"port"`
	Watch        bool              `koanf:"watch"`
	OpenBrowser  bool              `koanf:"open"`
	StaticDir    string            `koanf:"static-dir"`
	Verbosity    string            `koanf:"verbosity"`
	VerboseCnt   int               `koanf:"verbose"`
	Log          Log               `koanf:"log"`
	Layout       Layout            `koanf:"layout"`
	Size         Size              `koanf:"size"`
	Years        Years             `koanf:"years"`
	Gradient     Gradient          `koanf:"gradient"`
	Filter       Filter            `koanf:"filter"`
	AsyncLinks   int               `koanf:"async-threshold"`
	Palette      map[string]string `koanf:"palette"`
	RecordURL    string            `koanf:"record-url"`
}

type Publications struct {
	Nodes string `koanf:"nodes"`
	Links string `koanf:"links"`
	Dir   string `koanf:"dir"` // per-category publication tables
}

type Log struct {
	JSON      bool   `koanf:"json"`
	File      string `koanf:"file"`
	MaxSizeMB int    `koanf:"max-size-mb"`
}

type Layout struct {
	Radius     float64 `koanf:"radius"`
	Separation float64 `koanf:"separation"`
}

type Size struct {
	Min float64 `koanf:"min"`
	Max float64 `koanf:"max"`
}

// Years is the domain of the temporal color gradient
type Years struct {
	From int `koanf:"from"`
	To   int `koanf:"to"`
}

type Gradient struct {
	Start string `koanf:"start"`
	End   string `koanf:"end"`
}

type Filter struct {
	MinCitations int `koanf:"min-citations"`
	FromYear     int `koanf:"from-year"`
	ToYear       int `koanf:"to-year"`
}

func defaults() map[string]any {
	vo := view.DefaultOptions()
	palette := make(map[string]any, len(vo.Palette))
	for k, v := range vo.Palette {
		palette[k] = v
	}
	return map[string]any{
		"categories": "",
		"publications": map[string]any{
			"nodes": "",
			"links": "",
			"dir":   "",
		},
		"database":   "",
		"port":       8080,
		"watch":      false,
		"open":       true,
		"static-dir": "",
		"verbosity":  "",
		"verbose":    0,
		"log": map[string]any{
			"json":        false,
			"file":        "",
			"max-size-mb": 10,
		},
		"layout": map[string]any{
			"radius":     vo.Layout.Radius,
			"separation": vo.Layout.CousinSeparation,
		},
		"size": map[string]any{
			"min": vo.MinSize,
			"max": vo.MaxSize,
		},
		"years": map[string]any{
			"from": vo.Gradient.From,
			"to":   vo.Gradient.To,
		},
		"gradient": map[string]any{
			"start": vo.Gradient.Start.Hex(),
			"end":   vo.Gradient.End.Hex(),
		},
		"filter": map[string]any{
			"min-citations": 0,
			"from-year":     0,
			"to-year":       0,
		},
		"async-threshold": 5000,
		"palette":         palette,
		"record-url":      vo.RecordURL,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	known := knownKeys(k)

	// 2. Config file (optional)
	if err := loadConfigFile(k); err != nil {
		return nil, err
	}

	// 3. .env and environment variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("failed to read .env", "error", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return envKey(strings.TrimPrefix(s, EnvPrefix), known)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, any) {
			key, ok := known[normalizeKey(fl.Name)]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(f, fl)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadConfigFile(k *koanf.Koanf) error {
	for _, name := range configFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		var parser koanf.Parser = toml.Parser()
		if !strings.HasSuffix(name, ".toml") {
			parser = yaml.Parser()
		}
		if err := k.Load(file.Provider(name), parser); err != nil {
			return fmt.Errorf("reading config %s: %w", name, err)
		}
		logging.Debug("loaded config file", "path", name)
		return nil
	}
	return nil
}

// normalizeKey makes config keys, flag names and environment names
// comparable: "log.max-size-mb", "log-max-size-mb" and "LOG_MAX_SIZE_MB"
// all become "log_max_size_mb".
func normalizeKey(s string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(strings.ToLower(s))
}

// knownKeys maps normalized names to the scalar keys of k
func knownKeys(k *koanf.Koanf) map[string]string {
	known := make(map[string]string)
	for _, key := range k.Keys() {
		if strings.HasPrefix(key, "palette.") {
			continue
		}
		known[normalizeKey(key)] = key
	}
	return known
}

func envKey(name string, known map[string]string) string {
	if key, ok := known[normalizeKey(name)]; ok {
		return key
	}
	return strings.ReplaceAll(strings.ToLower(name), "_", ".")
}

// Validate checks that the configuration contains usable values
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Size.Min <= 0 || c.Size.Max < c.Size.Min {
		return fmt.Errorf("invalid size range [%g, %g]", c.Size.Min, c.Size.Max)
	}
	if c.Years.To <= c.Years.From {
		return fmt.Errorf("invalid gradient years [%d, %d]", c.Years.From, c.Years.To)
	}
	if c.Filter.FromYear != 0 && c.Filter.ToYear != 0 && c.Filter.ToYear < c.Filter.FromYear {
		return fmt.Errorf("invalid year filter [%d, %d]", c.Filter.FromYear, c.Filter.ToYear)
	}
	for _, hex := range []string{c.Gradient.Start, c.Gradient.End} {
		if _, err := colorful.Hex(hex); err != nil {
			return fmt.Errorf("invalid gradient color %q: %w", hex, err)
		}
	}
	for category, hex := range c.Palette {
		if _, err := colorful.Hex(hex); err != nil {
			return fmt.Errorf("invalid palette color %q for %s: %w", hex, category, err)
		}
	}
	if c.Publications.Nodes != "" && c.Publications.Links == "" ||
		c.Publications.Nodes == "" && c.Publications.Links != "" {
		return errors.New("publications.nodes and publications.links must be set together")
	}
	return nil
}

// ViewOptions returns the view settings. The config must be valid.
func (c *Config) ViewOptions() view.Options {
	start, _ := colorful.Hex(c.Gradient.Start)
	end, _ := colorful.Hex(c.Gradient.End)
	gradient := lens.DefaultTemporalGradient()
	gradient.From, gradient.To = c.Years.From, c.Years.To
	gradient.Start, gradient.End = start, end

	return view.Options{
		Layout: hierarchy.Options{
			Radius:           c.Layout.Radius,
			CousinSeparation: c.Layout.Separation,
		},
		Palette:        c.Palette,
		MinSize:        c.Size.Min,
		MaxSize:        c.Size.Max,
		Gradient:       gradient,
		MinCitations:   c.Filter.MinCitations,
		YearFrom:       c.Filter.FromYear,
		YearTo:         c.Filter.ToYear,
		AsyncThreshold: c.AsyncLinks,
		RecordURL:      c.RecordURL,
	}
}

// LogOptions returns the logging settings
func (c *Config) LogOptions() (logging.Options, error) {
	level, err := logging.ParseLevel(c.Verbosity, c.VerboseCnt)
	if err != nil {
		return logging.Options{}, err
	}
	return logging.Options{
		Level:     level,
		JSON:      c.Log.JSON,
		File:      c.Log.File,
		MaxSizeMB: c.Log.MaxSizeMB,
	}, nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]any
}

func makeMapProvider(m map[string]any) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]any, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("not implemented")
}
