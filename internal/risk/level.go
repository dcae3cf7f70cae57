package risk

import (
	"fmt"
	"strings"
)

// Level is the CAP risk level. Levels are totally ordered: L < M < H < EH.
//
// The zero value "" means "no rating" (a form with no hazard rows). It is
// never a legal rating for a hazard row and sorts below every real level.

type Level string

const (
	LevelLow           Level = "L"
	LevelMedium        Level = "M"
	LevelHigh          Level = "H"
	LevelExtremelyHigh Level = "EH"
)

// LevelNone is the explicit "no rating" value for empty forms.
const LevelNone Level = ""

// Rank returns the ordinal position of the level. LevelNone ranks 0.
func (l Level) Rank() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	case LevelExtremelyHigh:
		return 4
	default:
		return 0
	}
}

func (l Level) Valid() bool { return l.Rank() > 0 }

// RequiresMitigation reports whether approval must be withheld at this level.
func (l Level) RequiresMitigation() bool {
	return l == LevelHigh || l == LevelExtremelyHigh
}

// ParseLevel accepts only the closed set of risk codes. Malformed codes are
// rejected here, at construction time, never deep in a handler.
func ParseLevel(code string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(code))) {
	case LevelLow:
		return LevelLow, nil
	case LevelMedium:
		return LevelMedium, nil
	case LevelHigh:
		return LevelHigh, nil
	case LevelExtremelyHigh:
		return LevelExtremelyHigh, nil
	default:
		return LevelNone, fmt.Errorf("risk: unknown risk level %q", code)
	}
}

// Max returns the higher of two levels under the ordinal order.
func Max(a, b Level) Level {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Highest folds a set of levels to the maximum. Returns LevelNone for an
// empty set.
func Highest(levels []Level) Level {
	out := LevelNone
	for _, l := range levels {
		out = Max(out, l)
	}
	return out
}
