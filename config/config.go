package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/crosssection"
	"github.com/KaxaNuk/Data-Curator-Use-Cases/portfolio"
)

// EnvPrefix prefixes every environment override, e.g. XSECTION_START_DATE.
const EnvPrefix = "XSECTION"

// Config represents a complete assembly and portfolio run
type Config struct {
	StartDate      string   `json:"start_date" yaml:"start_date" envconfig:"START_DATE" validate:"required,datetime=2006-01-02"`
	EndDate        string   `json:"end_date" yaml:"end_date" envconfig:"END_DATE" validate:"required,datetime=2006-01-02"`
	DateColumn     string   `json:"date_column" yaml:"date_column" envconfig:"DATE_COLUMN" validate:"required"`
	InputDir       string   `json:"input_dir" yaml:"input_dir" envconfig:"INPUT_DIR" validate:"required"`
	Identifiers    []string `json:"identifiers,omitempty" yaml:"identifiers,omitempty" envconfig:"IDENTIFIERS" validate:"dive,required"`
	Features       []string `json:"features" yaml:"features" envconfig:"FEATURES" validate:"required,min=1,dive,required"`
	MissingFeature string   `json:"missing_feature" yaml:"missing_feature" envconfig:"MISSING_FEATURE" validate:"omitempty,oneof=fail skip"`
	Workers        int      `json:"workers" yaml:"workers" envconfig:"WORKERS" validate:"min=0"`
	Derive         bool     `json:"derive" yaml:"derive" envconfig:"DERIVE"`
	LogLevel       string   `json:"log_level" yaml:"log_level" envconfig:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`

	Output    OutputConfig    `json:"output" yaml:"output" envconfig:"OUTPUT"`
	Rebalance RebalanceConfig `json:"rebalance" yaml:"rebalance" envconfig:"REBALANCE"`
	Portfolio PortfolioConfig `json:"portfolio" yaml:"portfolio" envconfig:"PORTFOLIO"`
	Server    ServerConfig    `json:"server" yaml:"server" envconfig:"SERVER"`
}

// OutputConfig says where and how results are written
type OutputConfig struct {
	Dir         string   `json:"dir" yaml:"dir" envconfig:"DIR" validate:"required"`
	Formats     []string `json:"formats" yaml:"formats" envconfig:"FORMATS" validate:"required,min=1,dive,oneof=csv xlsx sqlite"`
	Workbook    string   `json:"workbook,omitempty" yaml:"workbook,omitempty" envconfig:"WORKBOOK"`
	DBPath      string   `json:"db_path,omitempty" yaml:"db_path,omitempty" envconfig:"DB_PATH"`
	MetricsFile string   `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty" envconfig:"METRICS_FILE"`
}

// RebalanceConfig drives the rebalance signal; an empty target symbol
// disables portfolio construction.
type RebalanceConfig struct {
	TargetSymbol string  `json:"target_symbol" yaml:"target_symbol" envconfig:"TARGET_SYMBOL"`
	SignalColumn string  `json:"signal_column" yaml:"signal_column" envconfig:"SIGNAL_COLUMN"`
	WindowDays   int     `json:"window_days" yaml:"window_days" envconfig:"WINDOW_DAYS" validate:"min=0"`
	Threshold    float64 `json:"threshold" yaml:"threshold" envconfig:"THRESHOLD"`
}

// PortfolioConfig selects the cross-sections used for ranking
type PortfolioConfig struct {
	SignalFeature   string `json:"signal_feature" yaml:"signal_feature" envconfig:"SIGNAL_FEATURE"`
	UniverseFeature string `json:"universe_feature" yaml:"universe_feature" envconfig:"UNIVERSE_FEATURE"`
	TopN            int    `json:"top_n" yaml:"top_n" envconfig:"TOP_N" validate:"min=0"`
}

// ServerConfig contains the read API parameters
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" envconfig:"ADDR" validate:"required"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		StartDate:  "2020-01-01",
		EndDate:    "2025-06-30",
		DateColumn: "m_date",
		InputDir:   "Output",
		Features: []string{
			"c_trend_following_signal_252d",
			"c_trend_following_signal_21d",
			"c_investable_universe_63d",
		},
		MissingFeature: "fail",
		Derive:         true,
		LogLevel:       "info",
		Output: OutputConfig{
			Dir:      "Output",
			Formats:  []string{"csv"},
			Workbook: "cross_sections.xlsx",
			DBPath:   "xsection.db",
		},
		Rebalance: RebalanceConfig{
			TargetSymbol: "SPY",
			SignalColumn: "c_log_difference_high_to_low",
			WindowDays:   5,
			Threshold:    0.025,
		},
		Portfolio: PortfolioConfig{
			SignalFeature:   "c_trend_following_signal_21d",
			UniverseFeature: "c_investable_universe_63d",
			TopN:            5,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load builds the configuration from defaults, the optional file at path and
// XSECTION_* environment overrides, in that order, and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
// on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Try YAML first, fall back to JSON
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}
	return cfg, nil
}

// ApplyEnv overrides fields from XSECTION_* environment variables. Unset
// variables leave the current value alone.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("load config from env: %w", err)
	}
	return nil
}

// Encode renders the configuration as "yaml" or "json".
func (c *Config) Encode(format string) ([]byte, error) {
	switch format {
	case "yaml", "yml":
		return yaml.Marshal(c)
	case "json":
		return json.MarshalIndent(c, "", "  ")
	}
	return nil, fmt.Errorf("unknown config format %q", format)
}

// SaveToFile saves configuration to a file (YAML or JSON based on extension)
func (c *Config) SaveToFile(path string) error {
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	data, err := c.Encode(format)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report yaml names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fieldError(verrs[0])
		}
		return err
	}

	if _, err := c.Range(); err != nil {
		return err
	}

	for _, f := range c.Output.Formats {
		switch f {
		case "xlsx":
			if c.Output.Workbook == "" {
				return fmt.Errorf("output.workbook is required for xlsx output")
			}
		case "sqlite":
			if c.Output.DBPath == "" {
				return fmt.Errorf("output.db_path is required for sqlite output")
			}
		}
	}

	if !c.PortfolioEnabled() {
		return nil
	}
	if c.Rebalance.SignalColumn == "" {
		return fmt.Errorf("rebalance.signal_column is required")
	}
	if c.Rebalance.WindowDays <= 0 {
		return fmt.Errorf("rebalance.window_days must be positive")
	}
	if c.Portfolio.TopN <= 0 {
		return fmt.Errorf("portfolio.top_n must be positive")
	}
	for _, f := range []struct{ name, feature string }{
		{"portfolio.signal_feature", c.Portfolio.SignalFeature},
		{"portfolio.universe_feature", c.Portfolio.UniverseFeature},
	} {
		if f.feature == "" {
			return fmt.Errorf("%s is required", f.name)
		}
		if !contains(c.Features, f.feature) {
			return fmt.Errorf("%s %q is not in features", f.name, f.feature)
		}
	}
	if len(c.Identifiers) > 0 && !contains(c.Identifiers, c.Rebalance.TargetSymbol) {
		return fmt.Errorf("rebalance.target_symbol %q is not in identifiers", c.Rebalance.TargetSymbol)
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", path)
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", path, fe.Param())
	case "datetime":
		return fmt.Errorf("%s must be a date (YYYY-MM-DD)", path)
	case "min":
		return fmt.Errorf("%s must be at least %s", path, fe.Param())
	}
	return fmt.Errorf("%s is invalid (%s)", path, fe.Tag())
}

// PortfolioEnabled reports whether a rebalance target is configured.
func (c *Config) PortfolioEnabled() bool {
	return c.Rebalance.TargetSymbol != ""
}

// Range returns the configured date range.
func (c *Config) Range() (crosssection.DateRange, error) {
	start, err := time.Parse(time.DateOnly, c.StartDate)
	if err != nil {
		return crosssection.DateRange{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := time.Parse(time.DateOnly, c.EndDate)
	if err != nil {
		return crosssection.DateRange{}, fmt.Errorf("end_date: %w", err)
	}
	return crosssection.NewDateRange(start, end)
}

// Policy returns the missing feature policy, defaulting to fail.
func (c *Config) Policy() (crosssection.MissingFeaturePolicy, error) {
	if c.MissingFeature == "" {
		return crosssection.FailOnMissing, nil
	}
	return crosssection.ParseMissingFeaturePolicy(c.MissingFeature)
}

// Options assembles the crosssection options.
func (c *Config) Options() (crosssection.Options, error) {
	r, err := c.Range()
	if err != nil {
		return crosssection.Options{}, err
	}
	p, err := c.Policy()
	if err != nil {
		return crosssection.Options{}, err
	}
	return crosssection.Options{
		DateColumn:     c.DateColumn,
		Range:          r,
		Features:       c.Features,
		MissingFeature: p,
		Workers:        c.Workers,
	}, nil
}

func (c *Config) SignalParams() portfolio.SignalParams {
	return portfolio.SignalParams{
		WindowDays: c.Rebalance.WindowDays,
		Threshold:  c.Rebalance.Threshold,
		Column:     portfolio.SignalColumn,
	}
}

// Level maps log_level onto slog.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// HasFormat reports whether output format f is enabled.
func (c *Config) HasFormat(f string) bool {
	return contains(c.Output.Formats, f)
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}
