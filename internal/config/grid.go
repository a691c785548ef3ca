package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"job-ingest-go/internal/models"
)

// City is a labelled location string, e.g. "Chennai" -> "Chennai, Tamil Nadu, India".
type City struct {
	Label    string `json:"label"`
	Location string `json:"location"`
}

// Grid is the set of (role, city) pairs scanned on every run. Order matters:
// rows are produced role-major, city-minor.
type Grid struct {
	Cities []City   `json:"cities"`
	Roles  []string `json:"roles"`
}

// DefaultGrid returns the grid used when no grid file exists.
func DefaultGrid() Grid {
	return Grid{
		Cities: []City{
			{Label: "Hyderabad", Location: "Hyderabad, Telangana, India"},
			{Label: "Bengaluru", Location: "Bengaluru, Karnataka, India"},
			{Label: "Chennai", Location: "Chennai, Tamil Nadu, India"},
		},
		Roles: []string{
			"software engineer",
			"data scientist",
			"ai engineer",
			"business analyst",
		},
	}
}

// gridFile mirrors the on-disk layout. Cities is a YAML mapping; decoding it
// through a node keeps the file's key order and case.
type gridFile struct {
	Cities yaml.Node `yaml:"cities"`
	Roles  []string  `yaml:"roles"`
}

// LoadGrid reads a grid file. A missing file yields DefaultGrid.
func LoadGrid(filename string) (Grid, error) {
	if filename == "" {
		return DefaultGrid(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultGrid(), nil
		}
		return Grid{}, fmt.Errorf("failed to read grid file: %w", err)
	}

	return ParseGrid(data)
}

// ParseGrid decodes a grid document.
func ParseGrid(data []byte) (Grid, error) {
	var raw gridFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Grid{}, fmt.Errorf("failed to decode grid file: %w", err)
	}

	grid := Grid{Roles: raw.Roles}

	switch raw.Cities.Kind {
	case 0:
	case yaml.MappingNode:
		for i := 0; i+1 < len(raw.Cities.Content); i += 2 {
			key, val := raw.Cities.Content[i], raw.Cities.Content[i+1]
			if val.Kind != yaml.ScalarNode {
				return Grid{}, fmt.Errorf("grid city %q: location must be a string (line %d)", key.Value, val.Line)
			}
			grid.Cities = append(grid.Cities, City{Label: key.Value, Location: val.Value})
		}
	default:
		return Grid{}, fmt.Errorf("grid cities must be a mapping of label to location (line %d)", raw.Cities.Line)
	}

	return grid, nil
}

// Cells expands the grid into its (role, city) pairs in scan order.
func (g Grid) Cells() []models.Cell {
	cells := make([]models.Cell, 0, len(g.Roles)*len(g.Cities))
	for _, role := range g.Roles {
		for _, city := range g.Cities {
			cells = append(cells, models.Cell{Role: role, City: city.Label, Location: city.Location})
		}
	}
	return cells
}

// Validate rejects grids that would scan nothing or repeat a city label.
func (g Grid) Validate() error {
	if len(g.Roles) == 0 {
		return fmt.Errorf("grid must list at least one role")
	}
	if len(g.Cities) == 0 {
		return fmt.Errorf("grid must list at least one city")
	}
	seen := make(map[string]bool, len(g.Cities))
	for _, c := range g.Cities {
		if c.Label == "" || c.Location == "" {
			return fmt.Errorf("grid city needs both a label and a location")
		}
		if seen[c.Label] {
			return fmt.Errorf("grid city %q listed twice", c.Label)
		}
		seen[c.Label] = true
	}
	for _, r := range g.Roles {
		if r == "" {
			return fmt.Errorf("grid roles cannot be empty")
		}
	}
	return nil
}
