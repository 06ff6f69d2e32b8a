package report

import (
	"sort"

	"github.com/LaCapitainerie/openvasreporting/internal/severity"
)

// SortVulnerabilities orders findings by CVSS descending, name ascending.
// Table-of-contents numbering and "most severe first" sections depend on
// this ordering being deterministic for equal-score ties, so the sort is
// stable and idempotent.
func SortVulnerabilities(vulns []*Vulnerability) {
	sort.SliceStable(vulns, func(i, j int) bool {
		if vulns[i].CVSS != vulns[j].CVSS {
			return vulns[i].CVSS > vulns[j].CVSS
		}
		return vulns[i].Name < vulns[j].Name
	})
}

// SummaryCounts are the derived totals renderers print on summary pages.
type SummaryCounts struct {
	// PerLevel counts findings per severity level.
	PerLevel map[severity.Level]int
	// HostsPerLevel counts unique affected hosts per level: a host touched
	// by three critical findings counts once for critical.
	HostsPerLevel map[severity.Level]int
	// PerFamily counts findings per family.
	PerFamily map[string]int
}

// Summarize computes all summary counts in one pass over the findings. The
// per-level host sets exist only for the duration of the pass.
func Summarize(vulns []*Vulnerability) SummaryCounts {
	counts := SummaryCounts{
		PerLevel:      make(map[severity.Level]int, 5),
		HostsPerLevel: make(map[severity.Level]int, 5),
		PerFamily:     make(map[string]int),
	}

	hostsByLevel := make(map[severity.Level]map[string]bool, 5)
	for _, v := range vulns {
		counts.PerLevel[v.Level]++
		counts.PerFamily[v.Family]++

		set := hostsByLevel[v.Level]
		if set == nil {
			set = make(map[string]bool)
			hostsByLevel[v.Level] = set
		}
		for _, occ := range v.Hosts {
			set[occ.Host.IP] = true
		}
	}

	for level, set := range hostsByLevel {
		counts.HostsPerLevel[level] = len(set)
	}
	return counts
}

// Families returns the family names present in the counts, sorted
// alphabetically for reproducible output.
func (s SummaryCounts) Families() []string {
	names := make([]string, 0, len(s.PerFamily))
	for name := range s.PerFamily {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
