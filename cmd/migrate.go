package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LaCapitainerie/openvasreporting/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate-config <old.conf> [new.yaml]",
	Short: "Migrate a legacy INI config file to YAML",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		oldPath := args[0]
		newPath := strings.TrimSuffix(oldPath, ".conf")
		newPath = strings.TrimSuffix(newPath, ".ini") + ".yaml"
		if len(args) == 2 {
			newPath = args[1]
		}

		cfg, warnings, err := config.LoadINIWithWarnings(oldPath)
		if err != nil {
			return err
		}
		for _, warning := range warnings {
			cmd.PrintErrln("warning:", warning)
		}

		out, err := renderYAML(cfg)
		if err != nil {
			return err
		}
		if err := os.WriteFile(newPath, out, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", newPath, err)
		}

		cmd.Printf("Migrated %s to %s\n", oldPath, newPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// renderYAML writes the config as YAML, omitting values that match the
// defaults so migrated files stay minimal.
func renderYAML(cfg *config.Config) ([]byte, error) {
	def := config.DefaultConfig()
	var buf bytes.Buffer

	section := func(name string, fields ...[2]string) {
		var body []string
		for _, f := range fields {
			if f[1] != "" {
				body = append(body, fmt.Sprintf("  %s: %s", f[0], f[1]))
			}
		}
		if len(body) == 0 {
			return
		}
		fmt.Fprintf(&buf, "%s:\n", name)
		for _, line := range body {
			fmt.Fprintln(&buf, line)
		}
	}
	changed := func(value, defaultValue string) string {
		if value == defaultValue {
			return ""
		}
		return yamlQuote(value)
	}

	section("report",
		[2]string{"format", changed(cfg.Report.Format, def.Report.Format)},
		[2]string{"type", changed(cfg.Report.Type, def.Report.Type)},
		[2]string{"output_file", changed(cfg.Report.OutputFile, def.Report.OutputFile)},
		[2]string{"template", changed(cfg.Report.Template, def.Report.Template)},
	)
	section("filter",
		[2]string{"min_level", changed(cfg.Filter.MinLevel, def.Filter.MinLevel)},
		[2]string{"exclude_levels", changed(cfg.Filter.ExcludeLevels, def.Filter.ExcludeLevels)},
		[2]string{"networks_include_file", changed(cfg.Filter.NetworksIncludeFile, "")},
		[2]string{"networks_exclude_file", changed(cfg.Filter.NetworksExcludeFile, "")},
		[2]string{"regex_include_file", changed(cfg.Filter.RegexIncludeFile, "")},
		[2]string{"regex_exclude_file", changed(cfg.Filter.RegexExcludeFile, "")},
		[2]string{"cve_include_file", changed(cfg.Filter.CVEIncludeFile, "")},
		[2]string{"cve_exclude_file", changed(cfg.Filter.CVEExcludeFile, "")},
	)
	if cfg.Parse.Workers != def.Parse.Workers {
		fmt.Fprintf(&buf, "parse:\n  workers: %d\n", cfg.Parse.Workers)
	}
	if cfg.Telemetry.Enabled || cfg.Telemetry.OTLPEndpoint != "" {
		fmt.Fprintln(&buf, "telemetry:")
		if cfg.Telemetry.Enabled {
			fmt.Fprintln(&buf, "  enabled: true")
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			fmt.Fprintf(&buf, "  otlp_endpoint: %s\n", yamlQuote(cfg.Telemetry.OTLPEndpoint))
		}
	}

	return buf.Bytes(), nil
}

// yamlQuote quotes a scalar when YAML would otherwise misread it.
func yamlQuote(s string) string {
	if s == "" {
		return `""`
	}
	needsQuote := strings.ContainsAny(s, `:#"{}[],&*!|>'%@`+"`") ||
		s != strings.TrimSpace(s)
	if !needsQuote {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
