package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/agenthands/topoclean/internal/core/geom"
	"github.com/agenthands/topoclean/internal/core/model"
	"github.com/pelletier/go-toml/v2"
)

type PipelineConfig struct {
	MaxIterations       int      `toml:"max_iterations"`
	SplitTargetOnExtend bool     `toml:"split_target_on_extend"`
	ArcFixMode          string   `toml:"arc_fix_mode"`
	SharpCornerDegrees  float64  `toml:"sharp_corner_degrees"`
	DefaultSequence     []string `toml:"default_sequence"`
}

// ActionConfig overrides one action. Unset fields keep the catalogue
// defaults.
type ActionConfig struct {
	Tolerance *float64 `toml:"tolerance"`
	Enabled   *bool    `toml:"enabled"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	GroupID  string `toml:"group_id"`
}

type ServerConfig struct {
	Port  string `toml:"port"`
	Store string `toml:"store"`
}

type Config struct {
	Tolerance geom.Tolerance          `toml:"tolerance"`
	Pipeline  PipelineConfig          `toml:"pipeline"`
	Actions   map[string]ActionConfig `toml:"actions"`
	Memgraph  MemgraphConfig          `toml:"memgraph"`
	Server    ServerConfig            `toml:"server"`
}

// DefaultSequence is the cleanup order used when none is configured.
var DefaultSequence = []string{
	string(model.ZeroLength),
	string(model.DeleteDuplicates),
	string(model.BreakCrossing),
	string(model.SnapClustered),
	string(model.ExtendUndershoots),
	string(model.BreakCrossing),
	string(model.EraseDangling),
}

func Default() *Config {
	return &Config{
		Tolerance: geom.DefaultTolerance,
		Pipeline: PipelineConfig{
			MaxIterations:      10,
			ArcFixMode:         "straighten",
			SharpCornerDegrees: 10,
			DefaultSequence:    append([]string(nil), DefaultSequence...),
		},
		Actions: map[string]ActionConfig{},
		Memgraph: MemgraphConfig{
			URI:     "bolt://localhost:7687",
			GroupID: "default",
		},
		Server: ServerConfig{Port: "8080", Store: "memory"},
	}
}

// Load overlays the TOML file at path on the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("TOPOCLEAN_EQUAL_POINT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("failed to parse TOPOCLEAN_EQUAL_POINT: %w", err)
		}
		c.Tolerance.EqualPoint = f
	}
	if v := os.Getenv("TOPOCLEAN_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("failed to parse TOPOCLEAN_MAX_ITERATIONS: %w", err)
		}
		c.Pipeline.MaxIterations = n
	}
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		c.Memgraph.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Memgraph.Password = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("TOPOCLEAN_STORE"); v != "" {
		c.Server.Store = v
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.Tolerance.EqualPoint <= 0 || c.Tolerance.EqualVector <= 0 {
		return fmt.Errorf("tolerances must be positive, got %g / %g", c.Tolerance.EqualPoint, c.Tolerance.EqualVector)
	}
	if c.Pipeline.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", c.Pipeline.MaxIterations)
	}
	switch c.Pipeline.ArcFixMode {
	case "straighten", "erase":
	default:
		return fmt.Errorf("unknown arc_fix_mode %q", c.Pipeline.ArcFixMode)
	}
	switch c.Server.Store {
	case "memory", "memgraph":
	default:
		return fmt.Errorf("unknown store %q", c.Server.Store)
	}
	for name := range c.Actions {
		if _, err := model.ParseActionType(name); err != nil {
			return fmt.Errorf("invalid [actions] section: %w", err)
		}
	}
	for _, name := range c.Pipeline.DefaultSequence {
		if _, err := model.ParseActionType(name); err != nil {
			return fmt.Errorf("invalid default_sequence: %w", err)
		}
	}
	return nil
}

// ToleranceFor is the configured tolerance of t, or its catalogue default.
// SharpCornerPolygon falls back to the pipeline's corner angle.
func (c *Config) ToleranceFor(t model.ActionType) float64 {
	if a, ok := c.Actions[string(t)]; ok && a.Tolerance != nil {
		return *a.Tolerance
	}
	if t == model.SharpCornerPolygon && c.Pipeline.SharpCornerDegrees > 0 {
		return c.Pipeline.SharpCornerDegrees
	}
	d, err := model.Describe(t)
	if err != nil {
		return 0
	}
	return d.DefaultTolerance
}

// Enabled reports whether t may run. Actions are enabled unless switched
// off.
func (c *Config) Enabled(t model.ActionType) bool {
	a, ok := c.Actions[string(t)]
	return !ok || a.Enabled == nil || *a.Enabled
}

// Sequence parses the configured cleanup order.
func (c *Config) Sequence() ([]model.ActionType, error) {
	names := c.Pipeline.DefaultSequence
	if len(names) == 0 {
		names = DefaultSequence
	}
	out := make([]model.ActionType, 0, len(names))
	for _, n := range names {
		t, err := model.ParseActionType(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
