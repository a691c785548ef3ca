package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-ingest-go/internal/models"
)

func TestParseGridKeepsOrderAndCase(t *testing.T) {
	grid, err := ParseGrid([]byte(`
cities:
  Hyderabad: "Hyderabad, Telangana, India"
  Bengaluru: "Bengaluru, Karnataka, India"
  Chennai: "Chennai, Tamil Nadu, India"
roles:
  - software engineer
  - data scientist
`))
	require.NoError(t, err)

	require.Len(t, grid.Cities, 3)
	assert.Equal(t, "Hyderabad", grid.Cities[0].Label)
	assert.Equal(t, "Bengaluru", grid.Cities[1].Label)
	assert.Equal(t, "Chennai, Tamil Nadu, India", grid.Cities[2].Location)
	assert.Equal(t, []string{"software engineer", "data scientist"}, grid.Roles)
}

func TestParseGridRejectsListOfCities(t *testing.T) {
	_, err := ParseGrid([]byte("cities: [a, b]\nroles: [x]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapping")
}

func TestParseGridRejectsNestedLocation(t *testing.T) {
	_, err := ParseGrid([]byte("cities:\n  Pune:\n    state: MH\nroles: [x]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a string")
}

func TestLoadGridMissingFile(t *testing.T) {
	grid, err := LoadGrid(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultGrid(), grid)
}

func TestCellsRoleMajor(t *testing.T) {
	grid := Grid{
		Cities: []City{{"A", "A, X"}, {"B", "B, Y"}},
		Roles:  []string{"r1", "r2"},
	}

	assert.Equal(t, []models.Cell{
		{Role: "r1", City: "A", Location: "A, X"},
		{Role: "r1", City: "B", Location: "B, Y"},
		{Role: "r2", City: "A", Location: "A, X"},
		{Role: "r2", City: "B", Location: "B, Y"},
	}, grid.Cells())
}

func TestGridValidateDuplicateCity(t *testing.T) {
	grid := Grid{Cities: []City{{"A", "x"}, {"A", "y"}}, Roles: []string{"r"}}
	err := grid.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listed twice")
}
