package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/nearlimit-cli/internal/catalog"
	"github.com/KaramelBytes/nearlimit-cli/internal/measurements"
	"github.com/KaramelBytes/nearlimit-cli/internal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Generation
	Samples        int     `mapstructure:"samples" yaml:"samples" validate:"gt=0"`
	NearLimitRatio float64 `mapstructure:"near_limit_ratio" yaml:"near_limit_ratio" validate:"gte=0,lte=1"`
	Coefficient    float64 `mapstructure:"near_limit_coefficient" yaml:"near_limit_coefficient" validate:"gte=0,lte=1"`
	Seed           uint64  `mapstructure:"seed" yaml:"seed"`
	Mode           string  `mapstructure:"mode" yaml:"mode" validate:"oneof=naive realistic both"`
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries" validate:"gte=1"`
	OnExhausted    string  `mapstructure:"on_exhausted" yaml:"on_exhausted" validate:"oneof=fail fallback skip"`
	Clip           bool    `mapstructure:"clip" yaml:"clip"`

	// Measurement source
	MeasurementsPath  string `mapstructure:"measurements_path" yaml:"measurements_path"`
	MeasurementsSheet string `mapstructure:"measurements_sheet" yaml:"measurements_sheet"`
	ParameterColumn   string `mapstructure:"parameter_column" yaml:"parameter_column" validate:"required"`
	ValueColumn       string `mapstructure:"value_column" yaml:"value_column" validate:"required"`
	// Assumed statistics for parameters the site does not measure, keyed by
	// parameter key (COD, Turbidity, ...). Empty means the built-in set.
	Assumed map[string]measurements.AssumedStats `mapstructure:"assumed" yaml:"assumed,omitempty" validate:"dive"`
	// Sites overrides the measurement label of a parameter, keyed by
	// parameter key, e.g. PH: pH-waarde.
	Sites map[string]string `mapstructure:"site_names" yaml:"site_names,omitempty"`

	// Output
	OutDir      string `mapstructure:"out_dir" yaml:"out_dir" validate:"required"`
	CatalogPath string `mapstructure:"catalog_path" yaml:"catalog_path"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=console json"`
}

// Dir returns ~/.nearlimit.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".nearlimit"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.nearlimit/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("NEARLIMIT")
	v.AutomaticEnv()

	v.SetDefault("samples", 10000)
	v.SetDefault("near_limit_ratio", 0.2)
	v.SetDefault("near_limit_coefficient", 0.8)
	v.SetDefault("seed", 42)
	v.SetDefault("mode", "both")
	v.SetDefault("max_retries", 1000)
	v.SetDefault("on_exhausted", "fail")
	v.SetDefault("clip", false)
	v.SetDefault("measurements_path", "")
	v.SetDefault("measurements_sheet", measurements.DefaultSheet)
	v.SetDefault("parameter_column", measurements.DefaultParameterColumn)
	v.SetDefault("value_column", measurements.DefaultValueColumn)
	v.SetDefault("out_dir", "data")
	v.SetDefault("catalog_path", "")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

var validate = validator.New()

// Validate checks field constraints and the assumed-statistics keys.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for k := range c.Assumed {
		if _, ok := catalog.ParseKey(k); !ok {
			return fmt.Errorf("invalid config: assumed: unknown parameter %q", k)
		}
	}
	if _, err := c.SiteNames(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// AssumedParams overlays the configured assumptions on the built-in ones, so
// a config tuning only COD keeps Turbidity and TSS assumed.
func (c *Global) AssumedParams() (map[catalog.Param]measurements.AssumedStats, error) {
	out := measurements.DefaultAssumed()
	for k, a := range c.Assumed {
		p, ok := catalog.ParseKey(k)
		if !ok {
			return nil, fmt.Errorf("assumed: unknown parameter %q", k)
		}
		out[p] = a
	}
	return out, nil
}

// SiteNames returns the measurement label map: the built-in labels with the
// configured per-parameter overrides applied.
func (c *Global) SiteNames() (map[string]catalog.Param, error) {
	byParam := make(map[catalog.Param]string, catalog.Count)
	for label, p := range measurements.DefaultSiteNames {
		byParam[p] = label
	}
	for k, label := range c.Sites {
		p, ok := catalog.ParseKey(k)
		if !ok {
			return nil, fmt.Errorf("site_names: unknown parameter %q", k)
		}
		if strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("site_names: empty label for %s", p)
		}
		byParam[p] = label
	}
	out := make(map[string]catalog.Param, len(byParam))
	for p, label := range byParam {
		if q, dup := out[label]; dup {
			return nil, fmt.Errorf("site_names: label %q used for both %s and %s", label, q, p)
		}
		out[label] = p
	}
	return out, nil
}

// Keys lists the scalar keys accepted by Set, sorted.
func Keys() []string {
	keys := []string{
		"samples", "near_limit_ratio", "near_limit_coefficient", "seed", "mode",
		"max_retries", "on_exhausted", "clip", "measurements_path",
		"measurements_sheet", "parameter_column", "value_column", "out_dir",
		"catalog_path", "log_level", "log_format",
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a scalar key from its string form and re-validates; c is left
// untouched on error. Assumed statistics use the form assumed.<Key>.mean or
// assumed.<Key>.std.
func (c *Global) Set(key, val string) error {
	next := *c
	if err := next.assign(key, val); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func (c *Global) assign(key, val string) error {
	switch key {
	case "samples":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for samples: %w", err)
		}
		c.Samples = i
	case "near_limit_ratio":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for near_limit_ratio: %w", err)
		}
		c.NearLimitRatio = f
	case "near_limit_coefficient":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for near_limit_coefficient: %w", err)
		}
		c.Coefficient = f
	case "seed":
		u, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed: %w", err)
		}
		c.Seed = u
	case "mode":
		c.Mode = strings.ToLower(val)
	case "max_retries":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for max_retries: %w", err)
		}
		c.MaxRetries = i
	case "on_exhausted":
		c.OnExhausted = strings.ToLower(val)
	case "clip":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for clip: %w", err)
		}
		c.Clip = b
	case "measurements_path":
		c.MeasurementsPath = val
	case "measurements_sheet":
		c.MeasurementsSheet = val
	case "parameter_column":
		c.ParameterColumn = val
	case "value_column":
		c.ValueColumn = val
	case "out_dir":
		c.OutDir = val
	case "catalog_path":
		c.CatalogPath = val
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		c.LogFormat = strings.ToLower(val)
	default:
		if strings.HasPrefix(key, "site_names.") {
			return c.setSiteName(strings.TrimPrefix(key, "site_names."), val)
		}
		return c.setAssumed(key, val)
	}
	return nil
}

func (c *Global) setAssumed(key, val string) error {
	parts := strings.Split(key, ".")
	if len(parts) != 3 || parts[0] != "assumed" {
		return fmt.Errorf("unknown key: %s", key)
	}
	p, ok := catalog.ParseKey(parts[1])
	if !ok {
		return fmt.Errorf("unknown parameter in %s", key)
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fmt.Errorf("invalid float for %s: %w", key, err)
	}
	// viper lowercases map keys; store them under canonical keys
	resolved, err := c.AssumedParams()
	if err != nil {
		return err
	}
	c.Assumed = make(map[string]measurements.AssumedStats, len(resolved))
	for rp, a := range resolved {
		c.Assumed[rp.String()] = a
	}
	a := c.Assumed[p.String()]
	switch parts[2] {
	case "mean":
		a.Mean = f
	case "std":
		a.Std = f
	default:
		return fmt.Errorf("unknown key: %s (use mean or std)", key)
	}
	c.Assumed[p.String()] = a
	return nil
}

func (c *Global) setSiteName(key, label string) error {
	p, ok := catalog.ParseKey(key)
	if !ok {
		return fmt.Errorf("unknown parameter in site_names.%s", key)
	}
	// viper lowercases map keys; store them under canonical keys
	next := make(map[string]string, len(c.Sites)+1)
	for k, v := range c.Sites {
		if q, ok := catalog.ParseKey(k); ok {
			next[q.String()] = v
		}
	}
	next[p.String()] = label
	c.Sites = next
	return nil
}
