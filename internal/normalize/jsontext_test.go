package normalize

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-ingest-go/internal/models"
)

func TestCanonicalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string list", []string{"python", "sql"}, `["python", "sql"]`},
		{"empty list", []string{}, `[]`},
		{"sorted keys", map[string]any{"b": 1, "a": true}, `{"a": true, "b": 1}`},
		{"nested", []any{map[string]any{"k": []int{1, 2}}}, `[{"k": [1, 2]}]`},
		{"missing", []any{nil, models.NA}, `[null, null]`},
		{"integral float", []float64{5, 0.5}, `[5.0, 0.5]`},
		{"exponent floats", []float64{1e16, 0.00001}, `[1e+16, 1e-05]`},
		{"non ascii", []string{"Bengaluru \u2013 caf\u00e9"}, `["Bengaluru \u2013 caf\u00e9"]`},
		{"astral", []string{"\U0001F642"}, `["\ud83d\ude42"]`},
		{"escapes", []string{"a\"b\\c\nd\x01"}, `["a\"b\\c\nd\u0001"]`},
		{"civil date", []any{civil.Date{Year: 2026, Month: 1, Day: 2}}, `["2026-01-02"]`},
		{"struct", []any{struct {
			Name string `json:"name"`
		}{"x"}}, `[{"name": "x"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalJSON(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPyFloat(t *testing.T) {
	assert.Equal(t, "0.0", pyFloat(0))
	assert.Equal(t, "800000.0", pyFloat(800000))
	assert.Equal(t, "0.0001", pyFloat(0.0001))
	assert.Equal(t, "1.5e-07", pyFloat(1.5e-7))
	assert.Equal(t, "-2.25", pyFloat(-2.25))
}
