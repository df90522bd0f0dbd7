package storcli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellNormalization(t *testing.T) {
	tests := []struct {
		raw  string
		n    int
		kind CellKind
	}{
		{`"-"`, 0, CellDash},
		{`null`, 0, CellDash},
		{`""`, 0, CellDash},
		{`3`, 3, CellNumber},
		{`"3"`, 3, CellNumber},
		{`" 12 "`, 12, CellNumber},
		{`"F"`, 0, CellUnrecognized},
	}
	for _, tt := range tests {
		var c Cell
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &c), tt.raw)
		n, kind := c.Int()
		assert.Equal(t, tt.kind, kind, tt.raw)
		assert.Equal(t, tt.n, n, tt.raw)
	}
}

func TestCellMarshal(t *testing.T) {
	out, err := json.Marshal([]Cell{"1", "-", "F"})
	require.NoError(t, err)
	assert.JSONEq(t, `[1, "-", "F"]`, string(out))
}

func TestCommandStatusDetails(t *testing.T) {
	var s CommandStatus
	require.NoError(t, json.Unmarshal([]byte(`{"Status":"Failure","Detailed Status":["a",{"b":1}]}`), &s))
	assert.False(t, s.Success())
	assert.Equal(t, []string{"a", `{"b":1}`}, s.Details())
}
