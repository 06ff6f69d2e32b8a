package report

import (
	"testing"

	"github.com/LaCapitainerie/openvasreporting/internal/severity"
)

func TestSortVulnerabilities(t *testing.T) {
	vulns := []*Vulnerability{
		{ID: "1", Name: "Zeta", CVSS: 5.0},
		{ID: "2", Name: "Alpha", CVSS: 5.0},
		{ID: "3", Name: "Mid", CVSS: 7.5},
		{ID: "4", Name: "Top", CVSS: 9.8},
	}
	SortVulnerabilities(vulns)

	wantIDs := []string{"4", "3", "2", "1"}
	for i, v := range vulns {
		if v.ID != wantIDs[i] {
			t.Fatalf("order = %v, want CVSS desc then name asc", ids(vulns))
		}
		_ = i
	}
}

func TestSortVulnerabilities_Idempotent(t *testing.T) {
	vulns := []*Vulnerability{
		{ID: "1", Name: "B", CVSS: 5.0},
		{ID: "2", Name: "A", CVSS: 5.0},
		{ID: "3", Name: "C", CVSS: 5.0},
	}
	SortVulnerabilities(vulns)
	first := ids(vulns)
	SortVulnerabilities(vulns)
	second := ids(vulns)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("re-sorting changed order: %v vs %v", first, second)
		}
	}
	if first[0] != "2" || first[1] != "1" || first[2] != "3" {
		t.Errorf("equal scores should break ties by name ascending, got %v", first)
	}
}

func TestSummarize_UniqueHostsPerLevel(t *testing.T) {
	// One host with two critical findings: critical finding count 2,
	// critical affected-host count 1.
	v1 := newVulnerability(testRecord("V1", "10.0.0.1", 80, 9.5))
	v2 := newVulnerability(testRecord("V2", "10.0.0.1", 22, 9.1))
	counts := Summarize([]*Vulnerability{v1, v2})

	if got := counts.PerLevel[severity.Critical]; got != 2 {
		t.Errorf("critical finding count = %d, want 2", got)
	}
	if got := counts.HostsPerLevel[severity.Critical]; got != 1 {
		t.Errorf("critical affected-host count = %d, want 1", got)
	}
}

func TestSummarize_PerFamily(t *testing.T) {
	v1 := newVulnerability(testRecord("V1", "10.0.0.1", 80, 9.5))
	v1.Family = "Web Servers"
	v2 := newVulnerability(testRecord("V2", "10.0.0.2", 22, 5.0))
	v2.Family = "Web Servers"
	v3 := newVulnerability(testRecord("V3", "10.0.0.2", 0, 2.0))
	v3.Family = "General"

	counts := Summarize([]*Vulnerability{v1, v2, v3})
	if got := counts.PerFamily["Web Servers"]; got != 2 {
		t.Errorf("Web Servers count = %d, want 2", got)
	}
	if got := counts.PerFamily["General"]; got != 1 {
		t.Errorf("General count = %d, want 1", got)
	}

	fams := counts.Families()
	if len(fams) != 2 || fams[0] != "General" || fams[1] != "Web Servers" {
		t.Errorf("Families() = %v, want sorted names", fams)
	}
}

func TestSummarize_HostCountedPerLevelAcrossVulns(t *testing.T) {
	// A host hit by a critical and a low finding counts once per level.
	v1 := newVulnerability(testRecord("V1", "10.0.0.1", 80, 9.5))
	v1.Hosts = append(v1.Hosts, Occurrence{Host: Host{IP: "10.0.0.2"}})
	v2 := newVulnerability(testRecord("V2", "10.0.0.1", 22, 2.0))

	counts := Summarize([]*Vulnerability{v1, v2})
	if got := counts.HostsPerLevel[severity.Critical]; got != 2 {
		t.Errorf("critical hosts = %d, want 2", got)
	}
	if got := counts.HostsPerLevel[severity.Low]; got != 1 {
		t.Errorf("low hosts = %d, want 1", got)
	}
}

func TestSummarize_Empty(t *testing.T) {
	counts := Summarize(nil)
	if len(counts.PerLevel) != 0 || len(counts.HostsPerLevel) != 0 || len(counts.PerFamily) != 0 {
		t.Errorf("empty input should produce empty counts, got %+v", counts)
	}
}

func ids(vulns []*Vulnerability) []string {
	out := make([]string, len(vulns))
	for i, v := range vulns {
		out[i] = v.ID
	}
	return out
}
