// Package report holds the aggregated report model built from extracted scan
// records: the by-vulnerability collection, the by-host ResultTree, and the
// ranking and summary operations renderers consume. Aggregates are built once
// per input batch and are read-only afterwards, so they are safe for
// concurrent reads by multiple renderers.
package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/LaCapitainerie/openvasreporting/internal/severity"
)

// Host identifies a scanned host. Hosts are keyed by IP only; the display
// name is informational and follows a last-seen policy during aggregation.
type Host struct {
	IP   string
	Name string
}

// Port is one endpoint occurrence. Number 0 means a host-level finding with
// no specific port. Result carries the detection output observed for the
// (host, port, finding) occurrence, so Ports are never shared between
// occurrences.
type Port struct {
	Number   int
	Protocol string
	Result   string
}

var portSpec = regexp.MustCompile(`^(\d+|general)/(\w+)$`)

// ParsePort parses a scanner port specification such as "80/tcp" or
// "general/tcp" into a Port carrying the given result text. Callers are
// expected to downgrade a parse error to the zero Port rather than dropping
// the record.
func ParsePort(spec, result string) (Port, error) {
	m := portSpec.FindStringSubmatch(strings.TrimSpace(spec))
	if m == nil {
		return Port{}, fmt.Errorf("invalid port specification %q", spec)
	}
	number := 0
	if m[1] != "general" {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > 65535 {
			return Port{}, fmt.Errorf("invalid port number %q", m[1])
		}
		number = n
	}
	return Port{Number: number, Protocol: m[2], Result: result}, nil
}

// Occurrence is one (host, port) location where a finding was observed.
type Occurrence struct {
	Host Host
	Port Port
}

// Vulnerability is a unique finding identified by the scan-provided id,
// with the ordered list of occurrences where it was seen.
type Vulnerability struct {
	ID           string
	Name         string
	CVSS         float64
	Level        severity.Level
	Family       string
	Description  string
	Detect       string
	Insight      string
	Impact       string
	Affected     string
	Solution     string
	SolutionType string
	Version      string
	CVEs         []string
	References   []string
	Hosts        []Occurrence
}

// Record is one extracted and validated scan record: the scalar finding
// fields plus the single (host, port) occurrence the record reports.
type Record struct {
	ID           string
	Name         string
	CVSS         float64
	Level        severity.Level
	Family       string
	Description  string
	Detect       string
	Insight      string
	Impact       string
	Affected     string
	Solution     string
	SolutionType string
	Version      string
	CVEs         []string
	References   []string
	Host         Host
	Port         Port
}

// newVulnerability builds a Vulnerability from a record's scalar fields with
// its first occurrence attached. Every Vulnerability carries at least one
// occurrence from birth.
func newVulnerability(rec Record) *Vulnerability {
	return &Vulnerability{
		ID:           rec.ID,
		Name:         rec.Name,
		CVSS:         rec.CVSS,
		Level:        rec.Level,
		Family:       rec.Family,
		Description:  rec.Description,
		Detect:       rec.Detect,
		Insight:      rec.Insight,
		Impact:       rec.Impact,
		Affected:     rec.Affected,
		Solution:     rec.Solution,
		SolutionType: rec.SolutionType,
		Version:      rec.Version,
		CVEs:         rec.CVEs,
		References:   rec.References,
		Hosts:        []Occurrence{{Host: rec.Host, Port: rec.Port}},
	}
}

// AffectedIPs returns the unique host IPs across occurrences, in first-seen
// order.
func (v *Vulnerability) AffectedIPs() []string {
	var ips []string
	seen := make(map[string]bool, len(v.Hosts))
	for _, occ := range v.Hosts {
		if !seen[occ.Host.IP] {
			seen[occ.Host.IP] = true
			ips = append(ips, occ.Host.IP)
		}
	}
	return ips
}
