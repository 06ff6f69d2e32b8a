package openvas

import (
	"regexp"
	"strconv"

	"github.com/LaCapitainerie/openvasreporting/internal/config"
	"github.com/LaCapitainerie/openvasreporting/internal/report"
	"github.com/LaCapitainerie/openvasreporting/internal/severity"
)

// Version announcements in detection output, e.g. "Installed version: 2.4.1"
// or "EOL version: 1.0". Best-effort annotation only.
var versionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Installed version:\s*([0-9][\w.\-]*)`),
	regexp.MustCompile(`EOL version:\s*([0-9][\w.\-]*)`),
}

// extractVersion returns the announced version from detection text, or "".
func extractVersion(result string) string {
	for _, re := range versionPatterns {
		if m := re.FindStringSubmatch(result); m != nil {
			return m[1]
		}
	}
	return ""
}

// extractRecord normalizes one raw result into a Record, or reports that the
// record should be skipped. Skips are silent and local: a missing finding
// id, missing host identity, unusable severity score, or any policy filter
// miss drops the record while the batch continues. Absent optional text
// sections become empty strings. The function has no side effects.
func extractRecord(raw resultXML, policy *config.Policy) (report.Record, bool) {
	id := raw.NVT.OID
	if id == "" {
		return report.Record{}, false
	}

	ip := raw.Host.ip()
	if ip == "" {
		return report.Record{}, false
	}

	cvss, ok := extractScore(raw)
	if !ok {
		return report.Record{}, false
	}

	level := severity.FromScore(cvss)
	if !policy.AllowsLevel(level) {
		return report.Record{}, false
	}
	if !policy.AllowsHost(ip) {
		return report.Record{}, false
	}

	name := raw.NVT.Name
	if name == "" {
		name = raw.Name
	}
	if !policy.AllowsName(name) {
		return report.Record{}, false
	}

	cves := raw.NVT.cves()
	if !policy.AllowsCVEs(cves) {
		return report.Record{}, false
	}

	// The per-occurrence detection output rides on the port; a malformed
	// port specification downgrades to the sentinel Port instead of
	// rejecting the record.
	port, err := report.ParsePort(raw.Port, raw.Description)
	if err != nil {
		port = report.Port{}
	}

	tags := raw.NVT.tagMap()

	return report.Record{
		ID:           id,
		Name:         name,
		CVSS:         cvss,
		Level:        level,
		Family:       raw.NVT.Family,
		Description:  tags["summary"],
		Detect:       tags["vuldetect"],
		Insight:      tags["insight"],
		Impact:       tags["impact"],
		Affected:     tags["affected"],
		Solution:     tags["solution"],
		SolutionType: tags["solution_type"],
		Version:      extractVersion(raw.Description),
		CVEs:         cves,
		References:   raw.NVT.references(),
		Host:         report.Host{IP: ip, Name: raw.Host.Hostname},
		Port:         port,
	}, true
}

// extractScore reads the CVSS score from cvss_base, falling back to the
// result-level severity element. A missing, non-numeric or out-of-range
// score rejects the record; the -1 sentinel (no score) is in range.
func extractScore(raw resultXML) (float64, bool) {
	text := raw.NVT.CVSSBase
	if text == "" {
		text = raw.Severity
	}
	if text == "" {
		return 0, false
	}
	cvss, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	if cvss < -1 || cvss > 10 {
		return 0, false
	}
	return cvss, true
}
