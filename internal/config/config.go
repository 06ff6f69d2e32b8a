// Package config loads converter configuration from YAML (preferred) or a
// legacy INI file, layered under environment-variable overrides, and derives
// the record-filtering policy the parser applies.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/ini.v1"
)

// Formats and report types accepted by the renderer registry.
var (
	knownFormats = map[string]bool{"xlsx": true, "csv": true}
	knownTypes   = map[string]bool{"vulnerability": true, "host": true, "summary": true}
)

// Config holds all converter settings.
type Config struct {
	Report    ReportConfig    `koanf:"report"`
	Filter    FilterConfig    `koanf:"filter"`
	Parse     ParseConfig     `koanf:"parse"`
	Telemetry TelemetryConfig `koanf:"telemetry"`

	// InputFiles comes from the CLI only, never from the config file.
	InputFiles []string `koanf:"-"`
}

// ReportConfig selects the output artifact.
type ReportConfig struct {
	Format     string `koanf:"format"`      // xlsx or csv
	Type       string `koanf:"type"`        // vulnerability, host or summary
	OutputFile string `koanf:"output_file"` // base name, extension appended
	Template   string `koanf:"template"`    // reserved for template-driven renderers
}

// FilterConfig holds the record-inclusion policy inputs.
type FilterConfig struct {
	MinLevel      string `koanf:"min_level"`      // c/h/m/l/n or full level name
	ExcludeLevels string `koanf:"exclude_levels"` // letters, e.g. "ln"

	NetworksIncludeFile string `koanf:"networks_include_file"`
	NetworksExcludeFile string `koanf:"networks_exclude_file"`
	RegexIncludeFile    string `koanf:"regex_include_file"`
	RegexExcludeFile    string `koanf:"regex_exclude_file"`
	CVEIncludeFile      string `koanf:"cve_include_file"`
	CVEExcludeFile      string `koanf:"cve_exclude_file"`
}

// ParseConfig holds batch-processing parameters.
type ParseConfig struct {
	// Workers bounds concurrent per-file extraction; the merge itself is
	// always a single-threaded reduction.
	Workers int `koanf:"workers"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Report: ReportConfig{
			Format:     "xlsx",
			Type:       "vulnerability",
			OutputFile: "openvas_report",
		},
		Filter: FilterConfig{
			MinLevel: "none",
		},
		Parse: ParseConfig{
			Workers: 4,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Load reads configuration from a file, auto-detecting format by extension.
// .yaml/.yml → YAML (koanf), .conf/.ini or anything else → legacy INI.
// Environment variables (OVR_ prefix) always override file values. An empty
// path yields defaults plus env overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		k := koanf.New(".")
		if err := loadDefaults(k); err != nil {
			return nil, err
		}
		if err := loadEnvOverrides(k); err != nil {
			return nil, err
		}
		return unmarshalAndValidate(k)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return loadINI(path)
	}
}

func loadYAML(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
	}

	if err := loadEnvOverrides(k); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(k)
}

func loadINI(path string) (*Config, error) {
	m, warnings, err := iniToMapFromFile(path)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load INI values: %w", err)
	}

	if err := loadEnvOverrides(k); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(k)
}

// LoadINIWithWarnings reads a legacy INI file without env overrides and
// returns unrecognized-key warnings. Used by the migrate-config command.
func LoadINIWithWarnings(path string) (*Config, []string, error) {
	m, warnings, err := iniToMapFromFile(path)
	if err != nil {
		return nil, nil, err
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, nil, err
	}

	if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
		return nil, nil, fmt.Errorf("failed to load INI values: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Normalize()

	return &cfg, warnings, nil
}

// iniKeyMap maps INI key names (lowercased, separators stripped) to koanf
// paths.
var iniKeyMap = map[string]string{
	"format":              "report.format",
	"reporttype":          "report.type",
	"outputfile":          "report.output_file",
	"template":            "report.template",
	"minlevel":            "filter.min_level",
	"level":               "filter.min_level", // short CLI-era alias
	"excludelevels":       "filter.exclude_levels",
	"dangerexclude":       "filter.exclude_levels", // legacy alias
	"networksincludefile": "filter.networks_include_file",
	"networksexcludefile": "filter.networks_exclude_file",
	"regexincludefile":    "filter.regex_include_file",
	"regexexcludefile":    "filter.regex_exclude_file",
	"cveincludefile":      "filter.cve_include_file",
	"cveexcludefile":      "filter.cve_exclude_file",
	"workers":             "parse.workers",
	"telemetryenabled":    "telemetry.enabled",
	"otlpendpoint":        "telemetry.otlp_endpoint",
}

func iniToMapFromFile(path string) (map[string]interface{}, []string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("config file not found: %s", path)
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse INI config file: %w", err)
	}

	m := make(map[string]interface{})
	var warnings []string

	for _, section := range iniFile.Sections() {
		for _, key := range section.Keys() {
			normalised := strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(key.Name()))
			if koanfKey, ok := iniKeyMap[normalised]; ok {
				m[koanfKey] = key.Value()
			} else if section.Name() != "DEFAULT" {
				warnings = append(warnings, fmt.Sprintf("unrecognized INI key [%s] %s (skipped)", section.Name(), key.Name()))
			}
		}
	}

	return m, warnings, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := DefaultConfig()
	return k.Load(confmap.Provider(map[string]interface{}{
		"report.format":      defaults.Report.Format,
		"report.type":        defaults.Report.Type,
		"report.output_file": defaults.Report.OutputFile,
		"filter.min_level":   defaults.Filter.MinLevel,
		"parse.workers":      defaults.Parse.Workers,
		"telemetry.enabled":  defaults.Telemetry.Enabled,
	}, "."), nil)
}

func loadEnvOverrides(k *koanf.Koanf) error {
	// OVR_REPORT_FORMAT → report.format
	return k.Load(env.Provider("OVR_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "OVR_")
		s = strings.ToLower(s)
		if idx := strings.Index(s, "_"); idx >= 0 {
			return s[:idx] + "." + s[idx+1:]
		}
		return s
	}), nil)
}

func unmarshalAndValidate(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize lowercases enum fields and expands single-letter report types.
func (c *Config) Normalize() {
	switch strings.ToLower(c.Report.Type) {
	case "v":
		c.Report.Type = "vulnerability"
	case "h":
		c.Report.Type = "host"
	case "s":
		c.Report.Type = "summary"
	default:
		c.Report.Type = strings.ToLower(c.Report.Type)
	}
	c.Report.Format = strings.ToLower(c.Report.Format)
}

// Validate checks field ranges and enum membership.
func (c *Config) Validate() error {
	var errs []error

	if !knownFormats[c.Report.Format] {
		errs = append(errs, fmt.Errorf("report.format must be one of xlsx, csv; got %q", c.Report.Format))
	}
	if !knownTypes[c.Report.Type] {
		errs = append(errs, fmt.Errorf("report.type must be one of vulnerability, host, summary; got %q", c.Report.Type))
	}
	if c.Report.OutputFile == "" {
		errs = append(errs, fmt.Errorf("report.output_file must not be empty"))
	}
	if c.Parse.Workers <= 0 {
		errs = append(errs, fmt.Errorf("parse.workers must be greater than 0, got %d", c.Parse.Workers))
	}
	if _, err := parseLevelSet(c.Filter.MinLevel, c.Filter.ExcludeLevels); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// OutputPath returns the output file name with the format extension
// appended unless already present.
func (c *Config) OutputPath() string {
	ext := "." + c.Report.Format
	if strings.HasSuffix(c.Report.OutputFile, ext) {
		return c.Report.OutputFile
	}
	return c.Report.OutputFile + ext
}

// RendererKey is the report-type + format pair renderers register under.
func (c *Config) RendererKey() string {
	return c.Report.Type + "-" + c.Report.Format
}
