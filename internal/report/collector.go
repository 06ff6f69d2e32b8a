package report

import "go.uber.org/zap"

// VulnCollector folds extracted records into the by-vulnerability aggregate:
// one Vulnerability per unique finding id. The first record seen for an id
// provides all scalar fields; later records with the same id contribute only
// a new occurrence. There is exactly one writer during a fold; the result is
// read-only afterwards.
type VulnCollector struct {
	byID  map[string]*Vulnerability
	order []string
	log   *zap.Logger
}

// NewVulnCollector creates an empty collector. log may be nil.
func NewVulnCollector(log *zap.Logger) *VulnCollector {
	if log == nil {
		log = zap.NewNop()
	}
	return &VulnCollector{
		byID: make(map[string]*Vulnerability),
		log:  log,
	}
}

// Add folds one record into the collection.
func (c *VulnCollector) Add(rec Record) {
	existing, ok := c.byID[rec.ID]
	if !ok {
		c.byID[rec.ID] = newVulnerability(rec)
		c.order = append(c.order, rec.ID)
		return
	}

	// First-seen wins for scalar data; scanners repeat identical metadata
	// per occurrence. Divergence is observable at debug level but never
	// overwrites or fails the batch.
	if rec.Name != existing.Name {
		c.log.Debug("scalar metadata differs between occurrences of one finding id",
			zap.String("id", rec.ID),
			zap.String("kept", existing.Name),
			zap.String("ignored", rec.Name),
		)
	}
	existing.Hosts = append(existing.Hosts, Occurrence{Host: rec.Host, Port: rec.Port})
}

// Len returns the number of unique finding ids collected.
func (c *VulnCollector) Len() int {
	return len(c.byID)
}

// Vulnerabilities returns the collected findings in first-seen order. An
// empty collection is a legitimate result when policy filtered everything
// out.
func (c *VulnCollector) Vulnerabilities() []*Vulnerability {
	out := make([]*Vulnerability, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
