package report

import (
	"testing"

	"github.com/LaCapitainerie/openvasreporting/internal/severity"
)

func TestResultTree_AddRecord(t *testing.T) {
	tree := NewResultTree()
	tree.AddRecord(testRecord("V1", "10.0.0.1", 80, 9.5))
	tree.AddRecord(testRecord("V2", "10.0.0.1", 22, 5.0))
	tree.AddRecord(testRecord("V1", "10.0.0.2", 443, 9.5))

	if len(tree) != 2 {
		t.Fatalf("tree has %d hosts, want 2", len(tree))
	}

	agg := tree["10.0.0.1"]
	if agg == nil {
		t.Fatal("missing aggregate for 10.0.0.1")
	}
	if len(agg.Findings) != 2 {
		t.Errorf("10.0.0.1 has %d finding entries, want 2", len(agg.Findings))
	}
	for _, v := range agg.Findings {
		if len(v.Hosts) != 1 {
			t.Errorf("by-host finding %s carries %d occurrences, want 1", v.ID, len(v.Hosts))
		}
	}
	if tree["10.0.0.2"].Total() != 1 {
		t.Errorf("10.0.0.2 total = %d, want 1", tree["10.0.0.2"].Total())
	}
}

func TestResultTree_LastSeenHostName(t *testing.T) {
	tree := NewResultTree()
	rec := testRecord("V1", "10.0.0.1", 80, 5.0)
	rec.Host.Name = "old-name"
	tree.AddRecord(rec)

	rec2 := testRecord("V2", "10.0.0.1", 22, 5.0)
	rec2.Host.Name = "new-name"
	tree.AddRecord(rec2)

	if got := tree["10.0.0.1"].Host.Name; got != "new-name" {
		t.Errorf("host name = %q, want last-seen %q", got, "new-name")
	}
}

func TestHostAggregate_CountsDedupByID(t *testing.T) {
	// Same finding on two ports of the same host: two detail entries but a
	// single count per level.
	tree := NewResultTree()
	tree.AddRecord(testRecord("V1", "10.0.0.1", 80, 9.5))
	tree.AddRecord(testRecord("V1", "10.0.0.1", 8080, 9.5))
	tree.AddRecord(testRecord("V2", "10.0.0.1", 22, 9.1))

	agg := tree["10.0.0.1"]
	if len(agg.Findings) != 3 {
		t.Errorf("finding entries = %d, want 3", len(agg.Findings))
	}
	if got := agg.CountFor(severity.Critical); got != 2 {
		t.Errorf("critical count = %d, want 2 (deduped by id)", got)
	}
	if got := agg.Total(); got != 2 {
		t.Errorf("Total() = %d, want 2", got)
	}
}

func TestHostAggregate_HigherCVSS(t *testing.T) {
	tree := NewResultTree()
	tree.AddRecord(testRecord("V1", "10.0.0.1", 80, 3.2))
	tree.AddRecord(testRecord("V2", "10.0.0.1", 22, 8.8))
	tree.AddRecord(testRecord("V3", "10.0.0.1", 0, 5.0))

	if got := tree["10.0.0.1"].HigherCVSS(); got != 8.8 {
		t.Errorf("HigherCVSS() = %v, want 8.8", got)
	}

	unscored := NewResultTree()
	rec := testRecord("V1", "10.0.0.9", 0, severity.NoScore)
	unscored.AddRecord(rec)
	if got := unscored["10.0.0.9"].HigherCVSS(); got != severity.NoScore {
		t.Errorf("HigherCVSS() with unscored findings = %v, want sentinel", got)
	}
}

func TestResultTree_RoundTripTotals(t *testing.T) {
	// Reconstructing per-host totals from the aggregate must equal the
	// distinct finding ids seen for that host in the input.
	input := []Record{
		testRecord("V1", "10.0.0.1", 80, 9.5),
		testRecord("V1", "10.0.0.1", 443, 9.5),
		testRecord("V2", "10.0.0.1", 22, 5.0),
		testRecord("V1", "10.0.0.2", 80, 9.5),
		testRecord("V3", "10.0.0.3", 0, 2.0),
	}

	tree := NewResultTree()
	distinct := make(map[string]map[string]bool)
	for _, rec := range input {
		tree.AddRecord(rec)
		if distinct[rec.Host.IP] == nil {
			distinct[rec.Host.IP] = make(map[string]bool)
		}
		distinct[rec.Host.IP][rec.ID] = true
	}

	for ip, ids := range distinct {
		if got := tree[ip].Total(); got != len(ids) {
			t.Errorf("host %s total = %d, want %d", ip, got, len(ids))
		}
	}
}

func TestResultTree_RankedKeys(t *testing.T) {
	tree := NewResultTree()
	// 10.0.0.1: one critical. 10.0.0.2: one low. 10.0.0.3: two criticals.
	tree.AddRecord(testRecord("V1", "10.0.0.1", 80, 9.5))
	tree.AddRecord(testRecord("V2", "10.0.0.2", 80, 2.0))
	tree.AddRecord(testRecord("V1", "10.0.0.3", 80, 9.5))
	tree.AddRecord(testRecord("V3", "10.0.0.3", 22, 9.1))

	got := tree.RankedKeys()
	want := []string{"10.0.0.3", "10.0.0.1", "10.0.0.2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("RankedKeys() = %v, want %v", got, want)
		}
	}
}

func TestResultTree_RankedKeys_TieBreaksDeterministic(t *testing.T) {
	tree := NewResultTree()
	tree.AddRecord(testRecord("V1", "10.0.0.2", 80, 5.0))
	tree.AddRecord(testRecord("V1", "10.0.0.1", 80, 5.0))

	for i := 0; i < 5; i++ {
		got := tree.RankedKeys()
		if got[0] != "10.0.0.1" || got[1] != "10.0.0.2" {
			t.Fatalf("equal hosts should order by IP ascending, got %v", got)
		}
	}
}

func TestResultTree_TopN(t *testing.T) {
	tree := NewResultTree()
	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		tree.AddRecord(testRecord("V-"+ip, ip, 80, 5.0))
	}

	tests := []struct {
		name string
		n    int
		want int
	}{
		{"truncates", 2, 2},
		{"n larger than hosts", 10, 3},
		{"zero means all", 0, 3},
		{"negative means all", -1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tree.TopN(tt.n); len(got) != tt.want {
				t.Errorf("TopN(%d) returned %d keys, want %d", tt.n, len(got), tt.want)
			}
		})
	}
}
