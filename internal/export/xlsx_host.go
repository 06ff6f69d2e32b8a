package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/LaCapitainerie/openvasreporting/internal/report"
	"github.com/LaCapitainerie/openvasreporting/internal/severity"
)

// topRankedHosts caps the Summary ranking table.
const topRankedHosts = 10

// renderHostXLSX builds the by-host workbook: a Summary sheet ranking the
// most exposed hosts, a TOC sheet with per-band counts linking to one sheet
// per host, each host sheet tab-colored by its highest finding band.
func renderHostXLSX(in Input, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newWorkbookStyles(f)
	if err != nil {
		return err
	}

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return err
	}
	ranked := in.Hosts.RankedKeys()
	if err := writeHostRanking(f, styles, in, "Summary", in.Hosts.TopN(topRankedHosts), nil); err != nil {
		return err
	}

	const tocSheet = "TOC"
	if _, err := f.NewSheet(tocSheet); err != nil {
		return err
	}
	sheetNames := make(map[string]string, len(ranked))
	for i, key := range ranked {
		sheetNames[key] = fmt.Sprintf("%03X - %s", i+1, in.Hosts[key].Host.IP)
	}
	if err := writeHostRanking(f, styles, in, tocSheet, ranked, sheetNames); err != nil {
		return err
	}

	for i, key := range ranked {
		if err := writeHostSheet(f, styles, tocSheet, i+1, sheetNames[key], in.Hosts[key]); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

// writeHostRanking writes the ranking table shared by the Summary and TOC
// sheets. When sheetNames is non-nil the hostname cells link to the per-host
// sheets.
func writeHostRanking(f *excelize.File, styles *workbookStyles, in Input, sheet string, keys []string, sheetNames map[string]string) error {
	if err := setTabColor(f, sheet, blueColor); err != nil {
		return err
	}
	for col, width := range map[string]float64{"A": 3, "B": 8, "C": 30, "D": 15} {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	lastCol := 4 + len(in.Levels) + 2
	from, _ := excelize.CoordinatesToCellName(2, 2)
	to, _ := excelize.CoordinatesToCellName(lastCol, 2)
	if err := mergedTitle(f, sheet, from, to, "Hosts Ranking", styles.title); err != nil {
		return err
	}

	header := []any{"#", "Hostname", "IP"}
	for _, level := range in.Levels {
		header = append(header, string(level))
	}
	header = append(header, "total", "severity")
	if err := setCells(f, sheet, 2, 3, styles.tableHead, header...); err != nil {
		return err
	}

	for i, key := range keys {
		agg := in.Hosts[key]
		row := i + 4

		if err := setCells(f, sheet, 2, row, styles.cell, i+1); err != nil {
			return err
		}
		nameCell, _ := excelize.CoordinatesToCellName(3, row)
		if sheetNames != nil {
			if err := tocLink(f, sheet, nameCell, sheetNames[key], agg.Host.Name, styles.cell); err != nil {
				return err
			}
		} else if err := setCells(f, sheet, 3, row, styles.cell, agg.Host.Name); err != nil {
			return err
		}
		if err := setCells(f, sheet, 4, row, styles.cell, agg.Host.IP); err != nil {
			return err
		}

		values := make([]any, 0, len(in.Levels)+2)
		for _, level := range in.Levels {
			values = append(values, agg.CountFor(level))
		}
		values = append(values, agg.Total(), agg.HigherCVSS())
		if err := setCells(f, sheet, 5, row, styles.center, values...); err != nil {
			return err
		}
	}
	return nil
}

// writeHostSheet adds the per-host finding table and its TOC back-link.
func writeHostSheet(f *excelize.File, styles *workbookStyles, tocSheet string, index int, name string, agg *report.HostAggregate) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	level := severity.FromScore(agg.HigherCVSS())
	if err := setTabColor(f, name, level.Color()); err != nil {
		return err
	}
	if err := tocLink(f, name, "A1", tocSheet, "<< TOC", 0); err != nil {
		return err
	}

	widths := map[string]float64{
		"A": 7, "B": 12, "C": 22, "D": 22, "E": 22,
		"F": 10, "G": 22, "H": 40, "I": 30, "J": 12, "K": 7,
	}
	for col, width := range widths {
		if err := f.SetColWidth(name, col, col, width); err != nil {
			return err
		}
	}

	title := agg.Host.IP + " - " + agg.Host.Name
	if err := mergedTitle(f, name, "B2", "K2", title, styles.title); err != nil {
		return err
	}
	if err := setCells(f, name, 2, 3, styles.tableHead,
		"CVSS", "Name", "Version", "oid", "Port", "Family", "Description", "Recommendation", "Type of fix"); err != nil {
		return err
	}

	for i, v := range agg.Findings {
		row := i + 4

		scoreCell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellValue(name, scoreCell, fmt.Sprintf("%.2f (%s)", v.CVSS, v.Level)); err != nil {
			return err
		}
		if err := f.SetCellStyle(name, scoreCell, scoreCell, styles.band[v.Level]); err != nil {
			return err
		}

		port := v.Hosts[0].Port
		portNumber := "general"
		if port.Number != 0 {
			portNumber = fmt.Sprintf("%d", port.Number)
		}

		if err := setCells(f, name, 3, row, styles.cell,
			v.Name,
			v.Version,
			v.ID,
			portNumber+"/"+port.Protocol,
			v.Family,
			strings.ReplaceAll(v.Description, "\n", " "),
			strings.ReplaceAll(v.Solution, "\n", " "),
			v.SolutionType); err != nil {
			return err
		}

		longest := len(v.Name)
		if len(v.Description) > longest {
			longest = len(v.Description)
		}
		if len(v.Solution) > longest {
			longest = len(v.Solution)
		}
		if err := f.SetRowHeight(name, row, float64(longest/30+1)*15); err != nil {
			return err
		}
	}
	return nil
}
