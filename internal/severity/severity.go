// Package severity maps CVSS scores to discrete severity levels and their
// display attributes (rank, color). Everything here is a pure function over
// fixed thresholds; there is no process-wide state.
package severity

import (
	"fmt"
	"strings"
)

// Level is a discrete severity band derived from a CVSS score.
type Level string

const (
	Critical Level = "critical"
	High     Level = "high"
	Medium   Level = "medium"
	Low      Level = "low"
	None     Level = "none"
)

// NoScore is the sentinel CVSS value for findings without a score.
const NoScore = -1.0

// Levels returns all levels ordered from most to least severe.
func Levels() []Level {
	return []Level{Critical, High, Medium, Low, None}
}

// FromScore classifies a CVSS score into a Level using conventional CVSS v3
// bands. Unset scores (0.0 or the NoScore sentinel) classify as None. The
// function is total: every float input yields a level.
func FromScore(cvss float64) Level {
	switch {
	case cvss >= 9.0:
		return Critical
	case cvss >= 7.0:
		return High
	case cvss >= 4.0:
		return Medium
	case cvss > 0.0:
		return Low
	default:
		return None
	}
}

// Rank returns a stable sort position for the level: Critical=0 … None=4.
// Unknown levels rank after None.
func (l Level) Rank() int {
	switch l {
	case Critical:
		return 0
	case High:
		return 1
	case Medium:
		return 2
	case Low:
		return 3
	case None:
		return 4
	default:
		return 5
	}
}

// Weight returns a numeric weight for severity summation (higher = more
// severe): Critical=5 … None=1.
func (l Level) Weight() int {
	if l.Rank() > 4 {
		return 0
	}
	return 5 - l.Rank()
}

// Color returns the display color token for the level. The token is opaque
// to this package; renderers pass it through to their output format.
func (l Level) Color() string {
	switch l {
	case Critical:
		return "#702da0"
	case High:
		return "#c80000"
	case Medium:
		return "#ffc000"
	case Low:
		return "#00b050"
	default:
		return "#45b9eb"
	}
}

func (l Level) String() string {
	return string(l)
}

// Letter returns the single-letter form used by CLI flags (c/h/m/l/n).
func (l Level) Letter() string {
	if l.Rank() > 4 {
		return ""
	}
	return string(l)[:1]
}

// Parse normalises a level name or its single-letter form.
func Parse(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "critical":
		return Critical, nil
	case "h", "high":
		return High, nil
	case "m", "medium":
		return Medium, nil
	case "l", "low":
		return Low, nil
	case "n", "none":
		return None, nil
	default:
		return "", fmt.Errorf("unknown severity level %q", s)
	}
}

// Set is an inclusion set of levels.
type Set map[Level]bool

// Contains reports whether the level is included.
func (s Set) Contains(l Level) bool {
	return s[l]
}

// Levels returns the included levels ordered from most to least severe.
func (s Set) Levels() []Level {
	var out []Level
	for _, l := range Levels() {
		if s[l] {
			out = append(out, l)
		}
	}
	return out
}

// AtLeast returns the set of levels at or above min. AtLeast(None) includes
// every level.
func AtLeast(min Level) Set {
	set := make(Set, 5)
	for _, l := range Levels() {
		if l.Rank() <= min.Rank() {
			set[l] = true
		}
	}
	return set
}
