package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableColumnOrder(t *testing.T) {
	tbl := NewTable([]Row{
		{"zeta": 1, ColTitle: "a", ColSite: "indeed"},
		{"alpha": 2, ColJobURL: "u"},
	})

	assert.Equal(t, []string{ColSite, ColJobURL, ColTitle, "alpha", "zeta"}, tbl.Columns)
	assert.Equal(t, 2, tbl.Len())
}

func TestConcatPreservesOrder(t *testing.T) {
	a := Table{Columns: []string{"x", "y"}, Rows: []Row{{"x": 1}, {"x": 2}}}
	b := Table{Columns: []string{"y", "z"}, Rows: []Row{{"z": 3}}}

	out := Concat(a, b)

	assert.Equal(t, []string{"x", "y", "z"}, out.Columns)
	require.Len(t, out.Rows, 3)
	assert.Equal(t, 1, out.Rows[0]["x"])
	assert.Equal(t, 3, out.Rows[2]["z"])
}

func TestConcatEmpty(t *testing.T) {
	out := Concat()
	assert.Equal(t, 0, out.Len())
	assert.Empty(t, out.Columns)
}

func TestSetColumn(t *testing.T) {
	tbl := NewTable([]Row{{ColTitle: "a"}, {ColTitle: "b"}})
	tbl.SetColumn(ColRole, "data scientist")
	tbl.SetColumn(ColRole, "ai engineer")

	assert.Equal(t, []string{ColTitle, ColRole}, tbl.Columns)
	for _, r := range tbl.Rows {
		assert.Equal(t, "ai engineer", r[ColRole])
	}
}

func TestRecordsFillsAbsentKeys(t *testing.T) {
	tbl := Table{Columns: []string{"a", "b"}, Rows: []Row{{"a": 1}}}
	recs := tbl.Records()
	require.Len(t, recs, 1)
	v, ok := recs[0]["b"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestIsMissing(t *testing.T) {
	var nilPtr *string
	var nilSlice []string
	cases := []struct {
		name string
		in   any
		want bool
	}{
		{"nil", nil, true},
		{"na", NA, true},
		{"nan", math.NaN(), true},
		{"nil pointer", nilPtr, true},
		{"nil slice", nilSlice, true},
		{"zero", 0, false},
		{"empty string", "", false},
		{"false", false, false},
		{"list", []string{"go"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsMissing(tc.in))
		})
	}
}

func TestPersistedColumns(t *testing.T) {
	cols := PersistedColumns()
	assert.Len(t, cols, len(Allowlist)+1)
	assert.Equal(t, ColRawData, cols[len(cols)-1])
	assert.True(t, IsAllowlisted(ColCrawledDate))
	assert.False(t, IsAllowlisted(ColID))
}

func TestCellGoogleSearchTerm(t *testing.T) {
	c := Cell{Role: "data scientist", City: "Chennai", Location: "Chennai, Tamil Nadu, India"}
	assert.Equal(t, "data scientist jobs near Chennai since yesterday", c.GoogleSearchTerm())
}
