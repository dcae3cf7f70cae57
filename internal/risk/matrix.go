package risk

import (
	"fmt"
	"strings"
)

// Likelihood and Severity are the two axes of the CAP risk grid.
// Keep these closed; grid cells are validated against them at load time.

type Likelihood string

const (
	LikelihoodFrequent   Likelihood = "frequent"
	LikelihoodLikely     Likelihood = "likely"
	LikelihoodOccasional Likelihood = "occasional"
	LikelihoodSeldom     Likelihood = "seldom"
	LikelihoodUnlikely   Likelihood = "unlikely"
)

type Severity string

const (
	SeverityCatastrophic Severity = "catastrophic"
	SeverityCritical     Severity = "critical"
	SeverityModerate     Severity = "moderate"
	SeverityNegligible   Severity = "negligible"
)

func Likelihoods() []Likelihood {
	return []Likelihood{LikelihoodFrequent, LikelihoodLikely, LikelihoodOccasional, LikelihoodSeldom, LikelihoodUnlikely}
}

func Severities() []Severity {
	return []Severity{SeverityCatastrophic, SeverityCritical, SeverityModerate, SeverityNegligible}
}

func ParseLikelihood(v string) (Likelihood, error) {
	l := Likelihood(strings.ToLower(strings.TrimSpace(v)))
	for _, known := range Likelihoods() {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("risk: unknown likelihood %q", v)
}

func ParseSeverity(v string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(v)))
	for _, known := range Severities() {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("risk: unknown severity %q", v)
}

type cellKey struct {
	l Likelihood
	s Severity
}

// Matrix is the fixed (likelihood, severity) -> level lookup.
//
// The concrete cell values are operator-supplied configuration (see
// LoadMatrix); the engine only enforces that the grid is total and that
// every cell holds a valid level. Lookup is pure and deterministic.
type Matrix struct {
	cells map[cellKey]Level
}

// NewMatrix validates totality: one valid level for every likelihood x
// severity combination, nothing outside the closed axes.
func NewMatrix(cells map[Likelihood]map[Severity]Level) (*Matrix, error) {
	m := &Matrix{cells: make(map[cellKey]Level, len(Likelihoods())*len(Severities()))}

	for l, row := range cells {
		if _, err := ParseLikelihood(string(l)); err != nil {
			return nil, err
		}
		for s, lvl := range row {
			if _, err := ParseSeverity(string(s)); err != nil {
				return nil, err
			}
			if !lvl.Valid() {
				return nil, fmt.Errorf("risk: matrix cell (%s, %s) has invalid level %q", l, s, lvl)
			}
			m.cells[cellKey{l: l, s: s}] = lvl
		}
	}

	for _, l := range Likelihoods() {
		for _, s := range Severities() {
			if _, ok := m.cells[cellKey{l: l, s: s}]; !ok {
				return nil, fmt.Errorf("risk: matrix cell (%s, %s) is missing", l, s)
			}
		}
	}
	return m, nil
}

// Level looks up the risk level for a likelihood/severity pair.
func (m *Matrix) Level(l Likelihood, s Severity) (Level, error) {
	lvl, ok := m.cells[cellKey{l: l, s: s}]
	if !ok {
		return LevelNone, fmt.Errorf("risk: no matrix cell for (%s, %s)", l, s)
	}
	return lvl, nil
}
