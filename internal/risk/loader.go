package risk

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// matrixFile is the YAML shape of the grid artifact.
//
// Example:
//
//	cells:
//	  frequent:
//	    catastrophic: EH
//	    critical: EH
//	    moderate: H
//	    negligible: M
type matrixFile struct {
	Cells map[string]map[string]string `yaml:"cells"`
}

// LoadMatrix reads the risk grid from an operator-configured YAML file.
// The grid is configuration data, not code; deployments must supply the
// authoritative CAPR 160-1 table.
func LoadMatrix(path string) (*Matrix, error) {
	// #nosec G304 -- path comes from operator-configured matrix path.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("risk: read matrix: %w", err)
	}

	var f matrixFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("risk: parse matrix: %w", err)
	}
	if len(f.Cells) == 0 {
		return nil, fmt.Errorf("risk: matrix file %s has no cells", path)
	}

	cells := make(map[Likelihood]map[Severity]Level, len(f.Cells))
	for lRaw, row := range f.Cells {
		l, err := ParseLikelihood(lRaw)
		if err != nil {
			return nil, err
		}
		cells[l] = make(map[Severity]Level, len(row))
		for sRaw, lvlRaw := range row {
			s, err := ParseSeverity(sRaw)
			if err != nil {
				return nil, err
			}
			lvl, err := ParseLevel(lvlRaw)
			if err != nil {
				return nil, fmt.Errorf("risk: matrix cell (%s, %s): %w", l, s, err)
			}
			cells[l][s] = lvl
		}
	}
	return NewMatrix(cells)
}
