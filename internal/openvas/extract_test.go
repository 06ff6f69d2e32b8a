package openvas

import (
	"testing"

	"github.com/LaCapitainerie/openvasreporting/internal/config"
	"github.com/LaCapitainerie/openvasreporting/internal/severity"
)

func openPolicy(t *testing.T) *config.Policy {
	t.Helper()
	p, err := config.DefaultConfig().Policy()
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func levelPolicy(t *testing.T, min string) *config.Policy {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Filter.MinLevel = min
	p, err := cfg.Policy()
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func validResult() resultXML {
	return resultXML{
		ID:          "r1",
		Host:        hostXML{IP: "10.0.0.1", Hostname: "web01"},
		Port:        "80/tcp",
		Severity:    "9.5",
		Description: "Installed version: 2.4.1",
		NVT: nvtXML{
			OID:      "1.3.6.1.4.1.25623.1.0.100001",
			Name:     "Apache RCE",
			Family:   "Web Servers",
			CVSSBase: "9.5",
			Tags:     "summary=bad things|impact=total|solution=upgrade|solution_type=VendorFix|insight=deep|affected=2.x|vuldetect=banner check",
			Refs: refsXML{Refs: []refXML{
				{Type: "cve", ID: "CVE-2024-0001"},
				{Type: "url", ID: "https://example.com/advisory"},
			}},
		},
	}
}

func TestExtractRecord_Valid(t *testing.T) {
	rec, ok := extractRecord(validResult(), openPolicy(t))
	if !ok {
		t.Fatal("valid record was skipped")
	}
	if rec.ID != "1.3.6.1.4.1.25623.1.0.100001" {
		t.Errorf("ID = %q", rec.ID)
	}
	if rec.Level != severity.Critical {
		t.Errorf("Level = %v, want critical", rec.Level)
	}
	if rec.Description != "bad things" || rec.Solution != "upgrade" || rec.SolutionType != "VendorFix" {
		t.Errorf("tag sections not extracted: %+v", rec)
	}
	if rec.Detect != "banner check" || rec.Insight != "deep" || rec.Impact != "total" || rec.Affected != "2.x" {
		t.Errorf("tag sections not extracted: %+v", rec)
	}
	if rec.Version != "2.4.1" {
		t.Errorf("Version = %q, want 2.4.1", rec.Version)
	}
	if rec.Host.IP != "10.0.0.1" || rec.Host.Name != "web01" {
		t.Errorf("Host = %+v", rec.Host)
	}
	if rec.Port.Number != 80 || rec.Port.Protocol != "tcp" {
		t.Errorf("Port = %+v", rec.Port)
	}
	if rec.Port.Result != "Installed version: 2.4.1" {
		t.Errorf("Port.Result = %q", rec.Port.Result)
	}
	if len(rec.CVEs) != 1 || rec.CVEs[0] != "CVE-2024-0001" {
		t.Errorf("CVEs = %v", rec.CVEs)
	}
	if len(rec.References) != 1 || rec.References[0] != "https://example.com/advisory" {
		t.Errorf("References = %v", rec.References)
	}
}

func TestExtractRecord_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*resultXML)
	}{
		{"missing finding id", func(r *resultXML) { r.NVT.OID = "" }},
		{"missing host", func(r *resultXML) { r.Host.IP = "  " }},
		{"missing score", func(r *resultXML) { r.NVT.CVSSBase = ""; r.Severity = "" }},
		{"non-numeric score", func(r *resultXML) { r.NVT.CVSSBase = "high" }},
		{"score above range", func(r *resultXML) { r.NVT.CVSSBase = "10.1" }},
		{"score below sentinel", func(r *resultXML) { r.NVT.CVSSBase = "-2" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validResult()
			tt.mutate(&raw)
			if _, ok := extractRecord(raw, openPolicy(t)); ok {
				t.Error("record should have been skipped")
			}
		})
	}
}

func TestExtractRecord_OptionalSectionsDefaultEmpty(t *testing.T) {
	raw := validResult()
	raw.NVT.Tags = ""
	raw.NVT.Family = ""
	rec, ok := extractRecord(raw, openPolicy(t))
	if !ok {
		t.Fatal("record with absent optional sections must still be included")
	}
	if rec.Description != "" || rec.Solution != "" || rec.Insight != "" {
		t.Errorf("absent sections should be empty strings: %+v", rec)
	}
}

func TestExtractRecord_NoScoreSentinel(t *testing.T) {
	raw := validResult()
	raw.NVT.CVSSBase = "-1"
	rec, ok := extractRecord(raw, openPolicy(t))
	if !ok {
		t.Fatal("sentinel score is valid input")
	}
	if rec.Level != severity.None {
		t.Errorf("Level = %v, want none for sentinel score", rec.Level)
	}
}

func TestExtractRecord_SeverityFallback(t *testing.T) {
	raw := validResult()
	raw.NVT.CVSSBase = ""
	raw.Severity = "6.5"
	rec, ok := extractRecord(raw, openPolicy(t))
	if !ok {
		t.Fatal("record with severity-element score was skipped")
	}
	if rec.CVSS != 6.5 || rec.Level != severity.Medium {
		t.Errorf("CVSS = %v Level = %v, want 6.5 medium", rec.CVSS, rec.Level)
	}
}

func TestExtractRecord_PolicyLevelFilter(t *testing.T) {
	raw := validResult()
	raw.NVT.CVSSBase = "2.0" // low
	if _, ok := extractRecord(raw, levelPolicy(t, "h")); ok {
		t.Error("low record should be dropped by high minimum policy")
	}
	if _, ok := extractRecord(raw, levelPolicy(t, "l")); !ok {
		t.Error("low record should pass a low minimum policy")
	}
}

func TestExtractRecord_MalformedPortDowngrades(t *testing.T) {
	raw := validResult()
	raw.Port = "not a port"
	rec, ok := extractRecord(raw, openPolicy(t))
	if !ok {
		t.Fatal("malformed port must not reject the record")
	}
	if rec.Port.Number != 0 || rec.Port.Protocol != "" || rec.Port.Result != "" {
		t.Errorf("Port = %+v, want sentinel Port{0,\"\",\"\"}", rec.Port)
	}
}

func TestExtractRecord_GeneralPort(t *testing.T) {
	raw := validResult()
	raw.Port = "general/tcp"
	rec, ok := extractRecord(raw, openPolicy(t))
	if !ok {
		t.Fatal("record skipped")
	}
	if rec.Port.Number != 0 || rec.Port.Protocol != "tcp" {
		t.Errorf("Port = %+v, want host-level tcp port", rec.Port)
	}
}

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   string
	}{
		{"installed", "Installed version: 2.4.1\nFixed version: 2.5", "2.4.1"},
		{"eol", "EOL version: 1.0.9", "1.0.9"},
		{"eol with spaces", "EOL version:   7.4", "7.4"},
		{"no match", "service banner only", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractVersion(tt.result); got != tt.want {
				t.Errorf("extractVersion(%q) = %q, want %q", tt.result, got, tt.want)
			}
		})
	}
}

func TestNVT_LegacyReferences(t *testing.T) {
	n := nvtXML{
		CVE:  "CVE-2020-1111, NOCVE, CVE-2020-2222",
		XRef: "URL:https://a.example, NOXREF",
	}
	cves := n.cves()
	if len(cves) != 2 || cves[0] != "CVE-2020-1111" || cves[1] != "CVE-2020-2222" {
		t.Errorf("cves() = %v", cves)
	}
	refs := n.references()
	if len(refs) != 1 || refs[0] != "https://a.example" {
		t.Errorf("references() = %v", refs)
	}
}
