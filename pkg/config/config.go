package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/mutual-graph/pkg/filter"
)

const (
	// DefaultFile is the optional config file read from the working directory.
	DefaultFile = "mutual-graph.toml"

	envPrefix = "MUTUAL_GRAPH_"
)

// Config holds all configuration for the application
type Config struct {
	Port       int    `koanf:"port" validate:"gte=0,lte=65535"`
	Open       bool   `koanf:"open"`
	Watch      bool   `koanf:"watch"`
	HideLeaves string `koanf:"hide_leaves" validate:"hidemode"`
	Output     string `koanf:"output"`
	NodeChunk  int    `koanf:"node_chunk" validate:"gte=1"`
	EdgeChunk  int    `koanf:"edge_chunk" validate:"gte=1"`
	Verbosity  string `koanf:"verbosity" validate:"omitempty,oneof=trace debug info warn warning error"`
	VerboseCnt int    `koanf:"verbose" validate:"gte=0"`
	LogFormat  string `koanf:"log_format" validate:"oneof=compact json"`
}

// HideLeavesMode returns the parsed hide-leaves mode.
func (c *Config) HideLeavesMode() filter.Mode {
	m, err := filter.ParseMode(c.HideLeaves)
	if err != nil {
		return filter.ModeAuto
	}
	return m
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hidemode", func(fl validator.FieldLevel) bool {
		_, err := filter.ParseMode(fl.Field().String())
		return err == nil
	})
	return v
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return LoadFile(f, DefaultFile)
}

// LoadFile is Load with an explicit config file path. A missing file is not
// an error.
func LoadFile(f *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]any{
		"port":        8080,
		"open":        true,
		"watch":       false,
		"hide_leaves": string(filter.ModeAuto),
		"output":      "",
		"node_chunk":  500,
		"edge_chunk":  4000,
		"verbosity":   "",
		"verbose":     0,
		"log_format":  "compact",
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional)
	// We ignore errors here as the file might not exist
	if path != "" {
		_ = k.Load(file.Provider(path), toml.Parser())
	}

	// 3. Environment Variables
	// Prefix: MUTUAL_GRAPH_ (e.g., MUTUAL_GRAPH_HIDE_LEAVES=off)
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (--hide-leaves maps to hide_leaves)
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, any) {
			return strings.ReplaceAll(fl.Name, "-", "_"), posflag.FlagVal(f, fl)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
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
	return nil, fmt.Errorf("not implemented")
}
