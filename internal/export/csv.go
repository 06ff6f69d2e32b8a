package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/LaCapitainerie/openvasreporting/internal/report"
	"github.com/LaCapitainerie/openvasreporting/internal/severity"
)

// writeCSV opens path and streams rows through an encoding/csv writer.
func writeCSV(path string, header []string, rows func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := rows(w); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func formatCVSS(cvss float64) string {
	return strconv.FormatFloat(cvss, 'f', -1, 64)
}

// renderVulnCSV writes one row per (finding, occurrence), findings ordered
// by CVSS descending.
func renderVulnCSV(in Input, path string) error {
	header := []string{
		"hostname", "ip", "port", "protocol",
		"vulnerability", "cvss", "threat", "family",
		"description", "detection", "insight", "impact", "affected",
		"solution", "solution_type", "vuln_id", "cve", "references",
	}

	vulns := sortedCopy(in.Vulnerabilities)
	return writeCSV(path, header, func(w *csv.Writer) error {
		for _, v := range vulns {
			for _, occ := range v.Hosts {
				row := []string{
					occ.Host.Name,
					occ.Host.IP,
					strconv.Itoa(occ.Port.Number),
					occ.Port.Protocol,
					v.Name,
					formatCVSS(v.CVSS),
					string(v.Level),
					v.Family,
					v.Description,
					v.Detect,
					v.Insight,
					v.Impact,
					v.Affected,
					v.Solution,
					v.SolutionType,
					v.ID,
					strings.Join(v.CVEs, " - "),
					strings.Join(v.References, " - "),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// renderHostCSV writes one row per host finding entry, hosts in ranking
// order, entries outside the included bands skipped.
func renderHostCSV(in Input, path string) error {
	header := []string{
		"hostname", "ip", "port", "protocol",
		"vulnerability", "cvss", "threat", "family",
		"description", "detection", "version", "insight", "impact",
		"affected", "solution", "solution_type", "vuln_id", "cve", "references",
	}

	included := make(severity.Set, len(in.Levels))
	for _, l := range in.Levels {
		included[l] = true
	}

	return writeCSV(path, header, func(w *csv.Writer) error {
		for _, key := range in.Hosts.RankedKeys() {
			agg := in.Hosts[key]
			for _, v := range agg.Findings {
				if !included.Contains(v.Level) {
					continue
				}
				port := v.Hosts[0].Port
				row := []string{
					agg.Host.Name,
					agg.Host.IP,
					strconv.Itoa(port.Number),
					port.Protocol,
					v.Name,
					formatCVSS(v.CVSS),
					string(v.Level),
					v.Family,
					v.Description,
					v.Detect,
					v.Version,
					v.Insight,
					v.Impact,
					v.Affected,
					v.Solution,
					v.SolutionType,
					v.ID,
					strings.Join(v.CVEs, " - "),
					strings.Join(v.References, " - "),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// renderSummaryCSV writes one row per included band with finding and
// unique-host counts.
func renderSummaryCSV(in Input, path string) error {
	counts := report.Summarize(in.Vulnerabilities)
	return writeCSV(path, []string{"level", "count", "host_count"}, func(w *csv.Writer) error {
		for _, level := range in.Levels {
			row := []string{
				string(level),
				strconv.Itoa(counts.PerLevel[level]),
				strconv.Itoa(counts.HostsPerLevel[level]),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// sortedCopy sorts findings by CVSS descending without mutating the input.
func sortedCopy(vulns []*report.Vulnerability) []*report.Vulnerability {
	out := make([]*report.Vulnerability, len(vulns))
	copy(out, vulns)
	report.SortVulnerabilities(out)
	return out
}
