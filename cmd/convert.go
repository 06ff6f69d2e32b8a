package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LaCapitainerie/openvasreporting/internal/export"
	"github.com/LaCapitainerie/openvasreporting/internal/openvas"
)

var (
	convertInputs       []string
	convertOutput       string
	convertFormat       string
	convertType         string
	convertLevel        string
	convertExclude      string
	convertNetsInclude  string
	convertNetsExclude  string
	convertRegexInclude string
	convertRegexExclude string
	convertCVEInclude   string
	convertCVEExclude   string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert OpenVAS XML reports into a consolidated report",
	Long: `Convert one or more OpenVAS XML report files into a single report.

This command:
1. Validates each input file's report header
2. Extracts and filters scan results in parallel
3. Aggregates findings by vulnerability or by host
4. Writes the configured output format (xlsx or csv)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := GetLogger()
		cfg := GetConfig()

		applyConvertFlags(cmd)
		cfg.Normalize()
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		parser, registry, err := initConverter(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize converter: %w", err)
		}

		key := cfg.RendererKey()
		if !registry.Supported(key) {
			return fmt.Errorf("unsupported report type/format combination %q (supported: %v)",
				key, registry.Keys())
		}

		in := export.Input{Levels: parser.Policy().IncludedLevels()}
		switch cfg.Report.Type {
		case "host":
			tree, err := parser.ByHost(ctx, cfg.InputFiles)
			if err != nil {
				if errors.Is(err, openvas.ErrNoResults) {
					return fmt.Errorf("nothing to report: %w", err)
				}
				return err
			}
			in.Hosts = tree
		default:
			vulns, err := parser.ByVulnerability(ctx, cfg.InputFiles)
			if err != nil {
				return err
			}
			if len(vulns) == 0 {
				return fmt.Errorf("nothing to report: %w", openvas.ErrNoResults)
			}
			in.Vulnerabilities = vulns
		}

		output := cfg.OutputPath()
		if err := registry.Render(ctx, key, in, output); err != nil {
			return err
		}

		log.Info("Report written", zap.String("output", output))
		return nil
	},
}

// applyConvertFlags layers explicitly-set flags over the loaded config.
func applyConvertFlags(cmd *cobra.Command) {
	cfg.InputFiles = convertInputs

	set := func(flag string, target *string, value string) {
		if cmd.Flags().Changed(flag) {
			*target = value
		}
	}
	set("output", &cfg.Report.OutputFile, convertOutput)
	set("format", &cfg.Report.Format, convertFormat)
	set("report-type", &cfg.Report.Type, convertType)
	set("level", &cfg.Filter.MinLevel, convertLevel)
	set("exclude-levels", &cfg.Filter.ExcludeLevels, convertExclude)
	set("networks-include", &cfg.Filter.NetworksIncludeFile, convertNetsInclude)
	set("networks-exclude", &cfg.Filter.NetworksExcludeFile, convertNetsExclude)
	set("regex-include", &cfg.Filter.RegexIncludeFile, convertRegexInclude)
	set("regex-exclude", &cfg.Filter.RegexExcludeFile, convertRegexExclude)
	set("cve-include", &cfg.Filter.CVEIncludeFile, convertCVEInclude)
	set("cve-exclude", &cfg.Filter.CVEExcludeFile, convertCVEExclude)
}

func init() {
	convertCmd.Flags().StringSliceVarP(&convertInputs, "input", "i", nil, "input OpenVAS XML files (repeatable)")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output file base name")
	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", "", "output format (xlsx or csv)")
	convertCmd.Flags().StringVarP(&convertType, "report-type", "T", "", "report type (vulnerability, host or summary)")
	convertCmd.Flags().StringVarP(&convertLevel, "level", "l", "", "minimum severity level (c/h/m/l/n)")
	convertCmd.Flags().StringVarP(&convertExclude, "exclude-levels", "D", "", "severity levels to exclude (letters, e.g. ln)")
	convertCmd.Flags().StringVar(&convertNetsInclude, "networks-include", "", "file listing networks to include")
	convertCmd.Flags().StringVar(&convertNetsExclude, "networks-exclude", "", "file listing networks to exclude")
	convertCmd.Flags().StringVar(&convertRegexInclude, "regex-include", "", "file listing name patterns to include")
	convertCmd.Flags().StringVar(&convertRegexExclude, "regex-exclude", "", "file listing name patterns to exclude")
	convertCmd.Flags().StringVar(&convertCVEInclude, "cve-include", "", "file listing CVEs to include")
	convertCmd.Flags().StringVar(&convertCVEExclude, "cve-exclude", "", "file listing CVEs to exclude")
	_ = convertCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(convertCmd)
}
