package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/LaCapitainerie/openvasreporting/internal/report"
)

// renderVulnXLSX builds the by-vulnerability workbook: a Summary sheet with
// per-band and per-family tables, a TOC sheet linking to one sheet per
// finding, each finding sheet tab-colored by severity band.
func renderVulnXLSX(in Input, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newWorkbookStyles(f)
	if err != nil {
		return err
	}

	vulns := sortedCopy(in.Vulnerabilities)
	counts := report.Summarize(vulns)

	if err := writeVulnSummary(f, styles, in, counts); err != nil {
		return err
	}

	const tocSheet = "TOC"
	if _, err := f.NewSheet(tocSheet); err != nil {
		return err
	}
	if err := setTabColor(f, tocSheet, blueColor); err != nil {
		return err
	}
	for col, width := range map[string]float64{"A": 7, "B": 5, "C": 70, "D": 15, "E": 50, "F": 7} {
		if err := f.SetColWidth(tocSheet, col, col, width); err != nil {
			return err
		}
	}
	if err := mergedTitle(f, tocSheet, "B2", "E2", "TABLE OF CONTENTS", styles.title); err != nil {
		return err
	}
	if err := setCells(f, tocSheet, 2, 3, styles.tableHead, "No.", "Vulnerability", "CVSS Score", "Hosts"); err != nil {
		return err
	}

	for i, v := range vulns {
		if err := writeVulnSheet(f, styles, tocSheet, i+1, v); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func writeVulnSummary(f *excelize.File, styles *workbookStyles, in Input, counts report.SummaryCounts) error {
	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := setTabColor(f, sheet, blueColor); err != nil {
		return err
	}
	for col, width := range map[string]float64{"A": 7, "B": 25, "C": 24, "D": 20, "E": 20, "F": 7} {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	if err := mergedTitle(f, sheet, "B2", "E2", "VULNERABILITY SUMMARY", styles.title); err != nil {
		return err
	}
	if err := setCells(f, sheet, 2, 3, styles.tableHead, "Threat", "Unique Vulns", "Hosts affected", "Discovered"); err != nil {
		return err
	}

	row := 4
	var totalVulns, totalHosts, totalDiscovered int
	for _, level := range in.Levels {
		n := counts.PerLevel[level]
		hosts := counts.HostsPerLevel[level]
		if err := setCells(f, sheet, 2, row, 0, capitalize(string(level))); err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellStyle(sheet, cell, cell, styles.title); err != nil {
			return err
		}
		if err := setCells(f, sheet, 3, row, styles.center, n, hosts, n*hosts); err != nil {
			return err
		}
		totalVulns += n
		totalHosts += hosts
		totalDiscovered += n * hosts
		row++
	}
	if err := setCells(f, sheet, 2, row, styles.tableHead, "Total", totalVulns, totalHosts, totalDiscovered); err != nil {
		return err
	}

	// Family table below the band table, fixed anchor row like the band
	// summary above it.
	if err := mergedTitle(f, sheet, "B19", "C19", "VULNERABILITIES BY FAMILY", styles.title); err != nil {
		return err
	}
	if err := setCells(f, sheet, 2, 20, styles.tableHead, "Family", "Vulnerabilities"); err != nil {
		return err
	}
	row = 21
	total := 0
	for _, family := range counts.Families() {
		if err := setCells(f, sheet, 2, row, styles.center, family, counts.PerFamily[family]); err != nil {
			return err
		}
		total += counts.PerFamily[family]
		row++
	}
	return setCells(f, sheet, 2, row, styles.tableHead, "Total", total)
}

// writeVulnSheet adds the per-finding sheet and its TOC row.
func writeVulnSheet(f *excelize.File, styles *workbookStyles, tocSheet string, index int, v *report.Vulnerability) error {
	name := sheetName(index, v.Name)
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	if err := setTabColor(f, name, v.Level.Color()); err != nil {
		return err
	}

	tocRow := index + 3
	if err := setCells(f, tocSheet, 2, tocRow, styles.cell, fmt.Sprintf("%03X", index)); err != nil {
		return err
	}
	linkCell, _ := excelize.CoordinatesToCellName(3, tocRow)
	if err := tocLink(f, tocSheet, linkCell, name, v.Name, styles.cell); err != nil {
		return err
	}
	scoreCell, _ := excelize.CoordinatesToCellName(4, tocRow)
	if err := f.SetCellValue(tocSheet, scoreCell, fmt.Sprintf("%.1f (%s)", v.CVSS, capitalize(string(v.Level)))); err != nil {
		return err
	}
	if err := f.SetCellStyle(tocSheet, scoreCell, scoreCell, styles.band[v.Level]); err != nil {
		return err
	}
	if err := setCells(f, tocSheet, 5, tocRow, styles.cell, strings.Join(v.AffectedIPs(), ", ")); err != nil {
		return err
	}
	if err := tocLink(f, name, "A1", tocSheet, "<< TOC", 0); err != nil {
		return err
	}

	widths := map[string]float64{"A": 7, "B": 20, "C": 20, "D": 50, "E": 15, "F": 15, "G": 20, "H": 7}
	for col, width := range widths {
		if err := f.SetColWidth(name, col, col, width); err != nil {
			return err
		}
	}
	const contentWidth = 120

	cves := strings.ToUpper(strings.Join(v.CVEs, ", "))
	if cves == "" {
		cves = "No CVE"
	}
	cvss := fmt.Sprintf("%.1f", v.CVSS)
	if v.CVSS < 0 {
		cvss = "No CVSS"
	}

	fields := []struct {
		label string
		value string
	}{
		{"Title", v.Name},
		{"Description", v.Description},
		{"Impact", v.Impact},
		{"Recommendation", v.Solution},
		{"Version", v.Version},
		{"Details", v.Insight},
		{"CVEs", cves},
		{"CVSS", cvss},
		{"Level", capitalize(string(v.Level))},
		{"Family", v.Family},
		{"References", strings.Join(v.References, ", ")},
	}
	for i, field := range fields {
		row := i + 2
		labelCell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellValue(name, labelCell, field.label); err != nil {
			return err
		}
		if err := f.SetCellStyle(name, labelCell, labelCell, styles.tableHead); err != nil {
			return err
		}
		from, _ := excelize.CoordinatesToCellName(3, row)
		to, _ := excelize.CoordinatesToCellName(7, row)
		if err := mergedTitle(f, name, from, to, field.value, styles.cell); err != nil {
			return err
		}
		if err := f.SetRowHeight(name, row, rowHeight(field.value, contentWidth)); err != nil {
			return err
		}
	}

	if err := setCells(f, name, 3, 14, styles.tableHead, "IP", "Host name", "Port number", "Port protocol", "Result"); err != nil {
		return err
	}
	for i, occ := range v.Hosts {
		row := i + 15
		hostName := occ.Host.Name
		if hostName == "" {
			hostName = "-"
		}
		portNumber := ""
		if occ.Port.Number != 0 {
			portNumber = fmt.Sprintf("%d", occ.Port.Number)
		}
		if err := setCells(f, name, 3, row, styles.cell,
			occ.Host.IP, hostName, portNumber, occ.Port.Protocol, occ.Port.Result); err != nil {
			return err
		}
		if err := f.SetRowHeight(name, row, rowHeight(occ.Port.Result, contentWidth)); err != nil {
			return err
		}
	}
	return nil
}
