package export

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/LaCapitainerie/openvasreporting/internal/report"
	"github.com/LaCapitainerie/openvasreporting/internal/severity"
)

func TestSheetName(t *testing.T) {
	tests := []struct {
		name  string
		index int
		title string
		want  string
	}{
		{"plain", 1, "Weak Cipher", "001_Weak Cipher"},
		{"forbidden chars stripped", 2, `Apache [mod_ssl] ('CVE')`, "002_Apache mod_ssl CVE"},
		{"long title truncated", 10, "An Extremely Long Vulnerability Title Indeed", "00A_An Extremely Lo..tle Indeed"},
		{"index in hex", 255, "x", "0FF_x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sheetName(tt.index, tt.title); got != tt.want {
				t.Errorf("sheetName(%d, %q) = %q, want %q", tt.index, tt.title, got, tt.want)
			}
		})
	}
}

func TestRGB(t *testing.T) {
	if got := rgb("#702da0"); got != "702DA0" {
		t.Errorf("rgb = %q, want 702DA0", got)
	}
}

func TestRenderVulnXLSX(t *testing.T) {
	in := Input{
		Vulnerabilities: []*report.Vulnerability{
			makeVuln("oid-1", "Critical Finding", 9.5, occ("10.0.0.1", 80), occ("10.0.0.2", 443)),
			makeVuln("oid-2", "Medium Finding", 5.0, occ("10.0.0.2", 22)),
		},
		Levels: allLevels(),
	}
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := renderVulnXLSX(in, path); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{"Summary", "TOC", "001_Critical Finding", "002_Medium Finding"}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	for i, name := range want {
		if sheets[i] != name {
			t.Errorf("sheet[%d] = %q, want %q", i, sheets[i], name)
		}
	}

	cell := func(sheet, ref string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, ref)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}

	if got := cell("Summary", "B2"); got != "VULNERABILITY SUMMARY" {
		t.Errorf("Summary!B2 = %q", got)
	}
	// first band row is critical: 1 unique vuln, 2 hosts
	if cell("Summary", "B4") != "Critical" || cell("Summary", "C4") != "1" || cell("Summary", "D4") != "2" {
		t.Errorf("critical row = %s/%s/%s", cell("Summary", "B4"), cell("Summary", "C4"), cell("Summary", "D4"))
	}
	if got := cell("Summary", "B21"); got != "Web Servers" {
		t.Errorf("family row = %q", got)
	}

	if got := cell("TOC", "C4"); got != "Critical Finding" {
		t.Errorf("TOC!C4 = %q", got)
	}
	if got := cell("TOC", "D4"); got != "9.5 (Critical)" {
		t.Errorf("TOC!D4 = %q", got)
	}

	if got := cell("001_Critical Finding", "C2"); got != "Critical Finding" {
		t.Errorf("title cell = %q", got)
	}
	if got := cell("001_Critical Finding", "C15"); got != "10.0.0.1" {
		t.Errorf("first affected host = %q", got)
	}
	link, target, err := f.GetCellHyperLink("TOC", "C4")
	if err != nil {
		t.Fatal(err)
	}
	if !link || target != "'001_Critical Finding'!A1" {
		t.Errorf("TOC link = %v %q", link, target)
	}
}

func TestRenderHostXLSX(t *testing.T) {
	tree := report.NewResultTree()
	tree.AddRecord(report.Record{
		ID: "oid-1", Name: "Root Compromise", CVSS: 9.5, Level: severity.Critical,
		Host: report.Host{IP: "10.0.0.1", Name: "web01"},
		Port: report.Port{Number: 80, Protocol: "tcp"},
	})
	tree.AddRecord(report.Record{
		ID: "oid-2", Name: "Info Leak", CVSS: 2.0, Level: severity.Low,
		Host: report.Host{IP: "10.0.0.2", Name: "db01"},
		Port: report.Port{Number: 0, Protocol: "tcp"},
	})

	path := filepath.Join(t.TempDir(), "hosts.xlsx")
	in := Input{Hosts: tree, Levels: allLevels()}
	if err := renderHostXLSX(in, path); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{"Summary", "TOC", "001 - 10.0.0.1", "002 - 10.0.0.2"}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	for i, name := range want {
		if sheets[i] != name {
			t.Errorf("sheet[%d] = %q, want %q", i, sheets[i], name)
		}
	}

	cell := func(sheet, ref string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, ref)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}

	if got := cell("Summary", "B2"); got != "Hosts Ranking" {
		t.Errorf("Summary!B2 = %q", got)
	}
	// critical host ranks first
	if cell("Summary", "D4") != "10.0.0.1" || cell("Summary", "D5") != "10.0.0.2" {
		t.Errorf("ranking = %s, %s", cell("Summary", "D4"), cell("Summary", "D5"))
	}
	// band columns follow the headers: critical count for host 1
	if got := cell("Summary", "E4"); got != "1" {
		t.Errorf("critical count = %q", got)
	}

	if got := cell("001 - 10.0.0.1", "B2"); got != "10.0.0.1 - web01" {
		t.Errorf("host title = %q", got)
	}
	if got := cell("001 - 10.0.0.1", "C4"); got != "Root Compromise" {
		t.Errorf("finding name = %q", got)
	}
	// sentinel port renders as host-level
	if got := cell("002 - 10.0.0.2", "F4"); got != "general/tcp" {
		t.Errorf("port = %q", got)
	}

	link, target, err := f.GetCellHyperLink("TOC", "C4")
	if err != nil {
		t.Fatal(err)
	}
	if !link || target != "'001 - 10.0.0.1'!A1" {
		t.Errorf("TOC link = %v %q", link, target)
	}
}
