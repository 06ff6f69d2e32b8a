package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/LaCapitainerie/openvasreporting/internal/severity"
)

// blueColor is the neutral accent used for headers and non-band tabs.
const blueColor = "#183868"

// sheetNameForbidden matches characters Excel rejects in worksheet names.
var sheetNameForbidden = regexp.MustCompile(`[\[\]\\'"&@#():*?/]`)

// sheetName builds a workbook-unique worksheet name from an item title:
// forbidden characters stripped, long titles shortened to keep the head and
// the tail, and a hex index prefix that keeps truncated titles apart.
func sheetName(index int, title string) string {
	name := sheetNameForbidden.ReplaceAllString(title, "")
	if len(name) > 27 {
		name = name[:15] + ".." + name[len(name)-10:]
	}
	return fmt.Sprintf("%03X_%s", index, name)
}

// rgb converts a display color token to the form excelize expects.
func rgb(token string) string {
	return strings.ToUpper(strings.TrimPrefix(token, "#"))
}

func setTabColor(f *excelize.File, sheet, token string) error {
	color := rgb(token)
	return f.SetSheetProps(sheet, &excelize.SheetPropsOptions{TabColorRGB: &color})
}

// rowHeight estimates a height for wrapped text in a merged range of the
// given character width.
func rowHeight(text string, width int) float64 {
	lines := len(text) / width
	if nl := strings.Count(text, "\n"); nl > lines {
		lines = nl
	}
	return float64(lines+1) * 15
}

func cellBorder() []excelize.Border {
	sides := []string{"left", "right", "top", "bottom"}
	border := make([]excelize.Border, 0, len(sides))
	for _, side := range sides {
		border = append(border, excelize.Border{Type: side, Color: "000000", Style: 1})
	}
	return border
}

// workbookStyles holds the style ids shared by the xlsx renderers. Built
// once per workbook; excelize style ids are workbook-scoped.
type workbookStyles struct {
	title     int
	tableHead int
	cell      int
	center    int
	band      map[severity.Level]int
}

func newWorkbookStyles(f *excelize.File) (*workbookStyles, error) {
	title, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Tahoma", Size: 12, Color: rgb(blueColor), Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    cellBorder(),
	})
	if err != nil {
		return nil, err
	}

	tableHead, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Tahoma", Size: 11, Color: "FFFFFF", Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{rgb(blueColor)}},
		Border:    cellBorder(),
	})
	if err != nil {
		return nil, err
	}

	cell, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Tahoma", Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
		Border:    cellBorder(),
	})
	if err != nil {
		return nil, err
	}

	center, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Tahoma", Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "top"},
		Border:    cellBorder(),
	})
	if err != nil {
		return nil, err
	}

	band := make(map[severity.Level]int, 5)
	for _, level := range severity.Levels() {
		id, err := f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Family: "Tahoma", Size: 10, Color: "FFFFFF"},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "top"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{rgb(level.Color())}},
			Border:    cellBorder(),
		})
		if err != nil {
			return nil, err
		}
		band[level] = id
	}

	return &workbookStyles{
		title:     title,
		tableHead: tableHead,
		cell:      cell,
		center:    center,
		band:      band,
	}, nil
}

// setCells writes consecutive styled cells in one row starting at column
// col (1-based).
func setCells(f *excelize.File, sheet string, col, row, style int, values ...any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+i, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		if style != 0 {
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}
	return nil
}

// mergedTitle writes a styled merged section title across a cell range.
func mergedTitle(f *excelize.File, sheet, from, to, text string, style int) error {
	if err := f.MergeCell(sheet, from, to); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, from, text); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, from, to, style)
}

// tocLink writes a cell holding an internal hyperlink to another sheet.
func tocLink(f *excelize.File, sheet, cell, target, text string, style int) error {
	if err := f.SetCellValue(sheet, cell, text); err != nil {
		return err
	}
	if err := f.SetCellHyperLink(sheet, cell, fmt.Sprintf("'%s'!A1", target), "Location"); err != nil {
		return err
	}
	if style != 0 {
		return f.SetCellStyle(sheet, cell, cell, style)
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
