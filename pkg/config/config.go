package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the recognized configuration fields (spec §6). Unknown keys
// are rejected at load time rather than silently ignored (spec §9).
type Config struct {
	Complexity ComplexityConfig `koanf:"complexity" toml:"complexity"`
	Patterns   PatternsConfig   `koanf:"patterns" toml:"patterns"`
	GodObject  GodObjectConfig  `koanf:"god_object" toml:"god_object"`
	Scoring    ScoringConfig    `koanf:"scoring" toml:"scoring"`
	Output     OutputConfig     `koanf:"output" toml:"output"`
	Exclude    ExcludeConfig    `koanf:"exclude" toml:"exclude"`
	Cache      CacheConfig      `koanf:"cache" toml:"cache"`
	Analysis   AnalysisConfig   `koanf:"analysis" toml:"analysis"`
}

// ComplexityConfig groups the complexity.* fields of spec §6.
type ComplexityConfig struct {
	Thresholds    ComplexityThresholds    `koanf:"thresholds" toml:"thresholds"`
	Weights       ComplexityWeights       `koanf:"weights" toml:"weights"`
	Normalization ComplexityNormalization `koanf:"normalization" toml:"normalization"`
}

// ComplexityThresholds are the raw-metric thresholds that gate hotspot
// classification and recommendation rules.
type ComplexityThresholds struct {
	Cyclomatic int `koanf:"cyclomatic" toml:"cyclomatic"`
	Cognitive  int `koanf:"cognitive" toml:"cognitive"`
	Nesting    int `koanf:"nesting" toml:"nesting"`
}

// ComplexityWeights are the role-weighted composition coefficients (spec
// §4.D); must sum to 1.
type ComplexityWeights struct {
	Cyclomatic float64 `koanf:"cyclomatic" toml:"cyclomatic"`
	Cognitive  float64 `koanf:"cognitive" toml:"cognitive"`
}

// ComplexityNormalization caps the per-run normalization maxima before the
// 20% headroom is applied (spec §4.D).
type ComplexityNormalization struct {
	MaxCyclomatic float64 `koanf:"max_cyclomatic" toml:"max_cyclomatic"`
	MaxCognitive  float64 `koanf:"max_cognitive" toml:"max_cognitive"`
}

// PatternsConfig groups the patterns.* fields of spec §6.
type PatternsConfig struct {
	StateMachine StateMachineConfig `koanf:"state_machine" toml:"state_machine"`
	Coordinator  CoordinatorConfig  `koanf:"coordinator" toml:"coordinator"`
}

// StateMachineConfig gates state-machine pattern detection (spec §4.E).
type StateMachineConfig struct {
	Enabled        bool `koanf:"enabled" toml:"enabled"`
	MinTransitions int  `koanf:"min_transitions" toml:"min_transitions"`
}

// CoordinatorConfig gates coordinator pattern detection (spec §4.E).
type CoordinatorConfig struct {
	MinActions int `koanf:"min_actions" toml:"min_actions"`
}

// GodObjectConfig groups the god_object.* fields of spec §6.
type GodObjectConfig struct {
	MethodThreshold int `koanf:"method_threshold" toml:"method_threshold"`
	LOCThreshold    int `koanf:"loc_threshold" toml:"loc_threshold"`
}

// ScoringConfig groups the scoring.* fields of spec §6.
type ScoringConfig struct {
	Weights ScoringWeights `koanf:"weights" toml:"weights"`
	Tiers   ScoringTiers   `koanf:"tiers" toml:"tiers"`
}

// ScoringWeights are the spec §4.H composite-score weights; must sum to 1.
type ScoringWeights struct {
	Complexity float64 `koanf:"complexity" toml:"complexity"`
	Coverage   float64 `koanf:"coverage" toml:"coverage"`
	Dependency float64 `koanf:"dependency" toml:"dependency"`
	Churn      float64 `koanf:"churn" toml:"churn"`
}

// ScoringTiers are the score-based tier cutoffs (spec §6, §8).
type ScoringTiers struct {
	Critical float64 `koanf:"critical" toml:"critical"`
	High     float64 `koanf:"high" toml:"high"`
	Medium   float64 `koanf:"medium" toml:"medium"`
}

// OutputConfig controls report formatting, carried from the teacher's
// OutputConfig and extended with the spec §6 output.patterns.* fields.
type OutputConfig struct {
	Format   string               `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color    bool                 `koanf:"color" toml:"color"`
	Verbose  bool                 `koanf:"verbose" toml:"verbose"`
	Patterns OutputPatternsConfig `koanf:"patterns" toml:"patterns"`
}

// OutputPatternsConfig controls which optional annotations writers include.
type OutputPatternsConfig struct {
	ShowPurity       bool `koanf:"show_purity" toml:"show_purity"`
	ShowFramework    bool `koanf:"show_framework" toml:"show_framework"`
	ShowRustPatterns bool `koanf:"show_rust_patterns" toml:"show_rust_patterns"`
	MaxOpportunities int  `koanf:"max_opportunities" toml:"max_opportunities"`
}

// ExcludeConfig defines file exclusion patterns using gitignore-style
// syntax, unchanged in shape from the teacher's ExcludeConfig.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls the extraction-cache collaborators of
// internal/cache (spec §9's reader/writer split).
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // hours
}

// AnalysisConfig carries the ambient run settings spec §6 leaves implicit:
// how far back churn looks, and a size guard for pathological files.
type AnalysisConfig struct {
	ChurnDays   int   `koanf:"churn_days" toml:"churn_days"`
	MaxFileSize int64 `koanf:"max_file_size" toml:"max_file_size"` // bytes, 0 = no limit
}

// DefaultConfig returns the spec §6 defaults.
func DefaultConfig() *Config {
	return &Config{
		Complexity: ComplexityConfig{
			Thresholds: ComplexityThresholds{Cyclomatic: 10, Cognitive: 15, Nesting: 4},
			Weights:    ComplexityWeights{Cyclomatic: 0.3, Cognitive: 0.7},
			Normalization: ComplexityNormalization{
				MaxCyclomatic: 50,
				MaxCognitive:  100,
			},
		},
		Patterns: PatternsConfig{
			StateMachine: StateMachineConfig{Enabled: true, MinTransitions: 2},
			Coordinator:  CoordinatorConfig{MinActions: 3},
		},
		GodObject: GodObjectConfig{MethodThreshold: 50, LOCThreshold: 2000},
		Scoring: ScoringConfig{
			Weights: ScoringWeights{Complexity: 0.4, Coverage: 0.3, Dependency: 0.2, Churn: 0.1},
			Tiers:   ScoringTiers{Critical: 50, High: 25, Medium: 10},
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
			Patterns: OutputPatternsConfig{
				ShowPurity:       true,
				ShowFramework:    true,
				ShowRustPatterns: true,
				MaxOpportunities: 5,
			},
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*_test.go", "*_test.ts", "*_test.py", "*.spec.ts", "*.spec.js", "*_spec.rb",
				"**/*_test/**", "**/test/**", "**/tests/**", "**/spec/**",
				"*.min.js", "*.min.css",
				"*.lock", "go.sum",
				"vendor/", "node_modules/", "third_party/", "external/",
				".git/", ".debtlens/", "dist/", "build/", "target/", "out/", "bin/",
				"__pycache__/", ".venv/", "venv/", "site-packages/",
				".bundle/", "sorbet/",
				".yarn/",
				"coverage/", ".nyc_output/",
				"**/mocks/", "**/*.gen.go", "**/*.generated.go", "**/*.pb.go",
				"**/generated/", "**/gen/",
				".idea/", ".vscode/", ".vs/",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".debtlens/cache",
			TTL:     24,
		},
		Analysis: AnalysisConfig{
			ChurnDays:   30,
			MaxFileSize: 10 * 1024 * 1024,
		},
	}
}

// schema describes the recognized key tree for unknown-key rejection. A nil
// leaf accepts any scalar/slice value; a nested map recurses.
var schema = map[string]any{
	"complexity": map[string]any{
		"thresholds":    map[string]any{"cyclomatic": nil, "cognitive": nil, "nesting": nil},
		"weights":       map[string]any{"cyclomatic": nil, "cognitive": nil},
		"normalization": map[string]any{"max_cyclomatic": nil, "max_cognitive": nil},
	},
	"patterns": map[string]any{
		"state_machine": map[string]any{"enabled": nil, "min_transitions": nil},
		"coordinator":   map[string]any{"min_actions": nil},
	},
	"god_object": map[string]any{"method_threshold": nil, "loc_threshold": nil},
	"scoring": map[string]any{
		"weights": map[string]any{"complexity": nil, "coverage": nil, "dependency": nil, "churn": nil},
		"tiers":   map[string]any{"critical": nil, "high": nil, "medium": nil},
	},
	"output": map[string]any{
		"format": nil, "color": nil, "verbose": nil,
		"patterns": map[string]any{
			"show_purity": nil, "show_framework": nil, "show_rust_patterns": nil, "max_opportunities": nil,
		},
	},
	"exclude": map[string]any{"patterns": nil, "gitignore": nil},
	"cache":   map[string]any{"enabled": nil, "dir": nil, "ttl": nil},
	"analysis": map[string]any{
		"churn_days": nil, "max_file_size": nil,
	},
}

// unknownKeys walks a loaded config map against schema and returns every
// dotted path not recognized, so Load can fail fast with a precise message
// instead of silently ignoring a typo'd or stale key (spec §9).
func unknownKeys(m map[string]any, node map[string]any, prefix string) []string {
	var unknown []string
	for key, value := range m {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		sub, recognized := node[key]
		if !recognized {
			unknown = append(unknown, path)
			continue
		}
		subSchema, isMap := sub.(map[string]any)
		if !isMap {
			continue
		}
		valueMap, valueIsMap := value.(map[string]any)
		if !valueIsMap {
			unknown = append(unknown, path)
			continue
		}
		unknown = append(unknown, unknownKeys(valueMap, subSchema, path)...)
	}
	return unknown
}

// Load loads configuration from a file, rejecting unrecognized keys.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if unknown := unknownKeys(k.Raw(), schema, ""); len(unknown) > 0 {
		return nil, fmt.Errorf("unrecognized configuration key(s): %s", strings.Join(unknown, ", "))
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations.
func FindConfigFile() string {
	configNames := []string{"omen.toml", "debtlens.toml", "debtlens.yaml", "debtlens.yml", "debtlens.json"}
	searchDirs := []string{".", ".debtlens"}

	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOption configures how configuration is loaded.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
}

// WithPath specifies an explicit config file path.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// LoadResult contains the loaded configuration and metadata.
type LoadResult struct {
	Config *Config
	Source string // Path to the config file, empty if using defaults
}

// LoadConfig loads configuration with the provided options, searching
// standard locations when no explicit path is given, and always validating
// before returning (spec §7: configuration error is fatal at startup).
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	var cfg *Config
	var source string
	var err error

	if o.path != "" {
		if _, statErr := os.Stat(o.path); os.IsNotExist(statErr) {
			return nil, fmt.Errorf("config file not found: %s", o.path)
		}
		cfg, err = Load(o.path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", o.path, err)
		}
		source = o.path
	} else {
		source = FindConfigFile()
		if source == "" {
			cfg = DefaultConfig()
		} else {
			cfg, err = Load(source)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", source, err)
			}
		}
	}

	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("config validation failed: %w", validationErr)
	}

	return &LoadResult{Config: cfg, Source: source}, nil
}

// LoadOrDefault loads config from standard locations or returns defaults.
func LoadOrDefault() (*Config, error) {
	result, err := LoadConfig()
	if err != nil {
		if FindConfigFile() == "" {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	return result.Config, nil
}

// ErrFileTooLarge is returned when a file exceeds the configured size limit.
var ErrFileTooLarge = errors.New("file exceeds maximum size limit")

// IsFileTooLarge reports whether size exceeds maxSize. maxSize<=0 means no limit.
func IsFileTooLarge(size int64, maxSize int64) bool {
	if maxSize <= 0 {
		return false
	}
	return size > maxSize
}

// Validate checks that all config values are within acceptable ranges.
func (c *Config) Validate() error {
	var errs []error

	if c.Complexity.Thresholds.Cyclomatic < 1 {
		errs = append(errs, errors.New("complexity.thresholds.cyclomatic must be at least 1"))
	}
	if c.Complexity.Thresholds.Cognitive < 1 {
		errs = append(errs, errors.New("complexity.thresholds.cognitive must be at least 1"))
	}
	if c.Complexity.Thresholds.Nesting < 1 {
		errs = append(errs, errors.New("complexity.thresholds.nesting must be at least 1"))
	}
	if sum := c.Complexity.Weights.Cyclomatic + c.Complexity.Weights.Cognitive; sum < 0.99 || sum > 1.01 {
		errs = append(errs, fmt.Errorf("complexity.weights must sum to 1.0, got %f", sum))
	}
	if c.Complexity.Normalization.MaxCyclomatic <= 0 {
		errs = append(errs, errors.New("complexity.normalization.max_cyclomatic must be positive"))
	}
	if c.Complexity.Normalization.MaxCognitive <= 0 {
		errs = append(errs, errors.New("complexity.normalization.max_cognitive must be positive"))
	}

	if c.Patterns.StateMachine.MinTransitions < 1 {
		errs = append(errs, errors.New("patterns.state_machine.min_transitions must be at least 1"))
	}
	if c.Patterns.Coordinator.MinActions < 1 {
		errs = append(errs, errors.New("patterns.coordinator.min_actions must be at least 1"))
	}

	if c.GodObject.MethodThreshold < 1 {
		errs = append(errs, errors.New("god_object.method_threshold must be at least 1"))
	}
	if c.GodObject.LOCThreshold < 1 {
		errs = append(errs, errors.New("god_object.loc_threshold must be at least 1"))
	}

	w := c.Scoring.Weights
	if sum := w.Complexity + w.Coverage + w.Dependency + w.Churn; sum < 0.99 || sum > 1.01 {
		errs = append(errs, fmt.Errorf("scoring.weights must sum to 1.0, got %f", sum))
	}
	if w.Complexity < 0 || w.Coverage < 0 || w.Dependency < 0 || w.Churn < 0 {
		errs = append(errs, errors.New("scoring.weights values must be non-negative"))
	}

	t := c.Scoring.Tiers
	if !(t.Critical > t.High && t.High > t.Medium && t.Medium >= 0) {
		errs = append(errs, errors.New("scoring.tiers must satisfy critical > high > medium >= 0"))
	}

	if c.Output.Patterns.MaxOpportunities < 1 {
		errs = append(errs, errors.New("output.patterns.max_opportunities must be at least 1"))
	}
	switch c.Output.Format {
	case "text", "json", "markdown", "toon":
	default:
		errs = append(errs, fmt.Errorf("output.format %q is not one of text, json, markdown, toon", c.Output.Format))
	}

	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must be non-negative"))
	}

	if c.Analysis.ChurnDays < 1 || c.Analysis.ChurnDays > 3650 {
		errs = append(errs, errors.New("analysis.churn_days must be between 1 and 3650"))
	}
	if c.Analysis.MaxFileSize < 0 {
		errs = append(errs, errors.New("analysis.max_file_size must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
