package report

import (
	"sort"

	"github.com/LaCapitainerie/openvasreporting/internal/severity"
)

// ResultTree is the host-centric aggregate: one HostAggregate per host IP.
type ResultTree map[string]*HostAggregate

// HostAggregate holds one host and every finding entry recorded against it.
// Findings keeps one entry per record, so a finding reported on two ports of
// the same host appears twice — detail renderers need both rows. Counting
// operations de-duplicate by finding id.
type HostAggregate struct {
	Host     Host
	Findings []*Vulnerability
}

// NewResultTree creates an empty tree.
func NewResultTree() ResultTree {
	return make(ResultTree)
}

// AddRecord folds one record into the tree, creating the host aggregate on
// first sight. The host display name follows last-seen policy; the finding
// entry carries just this record's occurrence since the by-host view needs
// no cross-host fan-out.
func (t ResultTree) AddRecord(rec Record) {
	agg, ok := t[rec.Host.IP]
	if !ok {
		agg = &HostAggregate{Host: rec.Host}
		t[rec.Host.IP] = agg
	}
	if rec.Host.Name != "" {
		agg.Host.Name = rec.Host.Name
	}
	agg.Findings = append(agg.Findings, newVulnerability(rec))
}

// uniqueFindings returns one representative finding per id, in entry order.
func (a *HostAggregate) uniqueFindings() []*Vulnerability {
	seen := make(map[string]bool, len(a.Findings))
	var out []*Vulnerability
	for _, v := range a.Findings {
		if !seen[v.ID] {
			seen[v.ID] = true
			out = append(out, v)
		}
	}
	return out
}

// SeverityCounts recomputes the per-level finding counts, de-duplicated by
// finding id. Counts are always derived from the finding list, never
// mutated independently.
func (a *HostAggregate) SeverityCounts() map[severity.Level]int {
	counts := make(map[severity.Level]int, 5)
	for _, v := range a.uniqueFindings() {
		counts[v.Level]++
	}
	return counts
}

// CountFor returns the de-duplicated finding count for one level.
func (a *HostAggregate) CountFor(l severity.Level) int {
	return a.SeverityCounts()[l]
}

// Total returns the number of distinct finding ids on the host.
func (a *HostAggregate) Total() int {
	return len(a.uniqueFindings())
}

// HigherCVSS returns the maximum severity score observed among the host's
// findings, or the no-score sentinel when every finding is unscored.
func (a *HostAggregate) HigherCVSS() float64 {
	max := severity.NoScore
	for _, v := range a.Findings {
		if v.CVSS > max {
			max = v.CVSS
		}
	}
	return max
}

// weightedSeverity sums the de-duplicated per-level counts weighted by
// severity, the primary host ranking key.
func (a *HostAggregate) weightedSeverity() int {
	total := 0
	for level, n := range a.SeverityCounts() {
		total += n * level.Weight()
	}
	return total
}

// RankedKeys returns host IPs ordered most severe first: weighted severity
// descending, then total finding count descending, then maximum CVSS
// descending, then IP ascending so equal hosts order deterministically.
func (t ResultTree) RankedKeys() []string {
	keys := make([]string, 0, len(t))
	for ip := range t {
		keys = append(keys, ip)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := t[keys[i]], t[keys[j]]
		if wa, wb := a.weightedSeverity(), b.weightedSeverity(); wa != wb {
			return wa > wb
		}
		if ta, tb := a.Total(), b.Total(); ta != tb {
			return ta > tb
		}
		if ca, cb := a.HigherCVSS(), b.HigherCVSS(); ca != cb {
			return ca > cb
		}
		return keys[i] < keys[j]
	})
	return keys
}

// TopN returns the first n ranked host IPs; the full ranking when n exceeds
// the host count or is not positive.
func (t ResultTree) TopN(n int) []string {
	keys := t.RankedKeys()
	if n <= 0 || n >= len(keys) {
		return keys
	}
	return keys[:n]
}
