package raid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskGroupJSON(t *testing.T) {
	tests := []struct {
		dg   DiskGroup
		json string
	}{
		{Assigned(2), `2`},
		{DiskGroup{}, `null`},
		{UnknownDiskGroup("F"), `"F"`},
	}
	for _, tt := range tests {
		out, err := json.Marshal(tt.dg)
		require.NoError(t, err)
		assert.Equal(t, tt.json, string(out))

		var back DiskGroup
		require.NoError(t, json.Unmarshal(out, &back))
		assert.Equal(t, tt.dg, back)
	}
}

func TestDiskGroupAccessors(t *testing.T) {
	id, ok := Assigned(0).Get()
	assert.True(t, ok)
	assert.Equal(t, 0, id)
	assert.True(t, Assigned(0).Is(0))
	assert.False(t, DiskGroup{}.Is(0))
	assert.True(t, DiskGroup{}.IsNone())
	assert.False(t, UnknownDiskGroup("F").IsNone())
	assert.Equal(t, "-", DiskGroup{}.String())
	assert.Equal(t, "F", UnknownDiskGroup("F").String())
}

func TestSpareTypeJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		A SpareType `json:"a"`
		B SpareType `json:"b"`
	}{SpareNone, SpareGlobal})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": null, "b": "global"}`, string(out))
}

func TestSpareEmbedsDrive(t *testing.T) {
	target := 1
	s := Spare{PhysicalDrive: PhysicalDrive{Index: 4, Extra: PhysicalDriveExtra{Address: "32:4"}}, Target: &target}

	out, err := json.Marshal(s)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.EqualValues(t, 4, m["index"])
	assert.EqualValues(t, 1, m["target"])
}

func testConfiguration() AdapterConfiguration {
	return AdapterConfiguration{
		Arrays: []Array{{
			PhysicalDrives: []PhysicalDrive{
				{Index: 0, Extra: PhysicalDriveExtra{Address: "32:0"}},
				{Index: 2, Extra: PhysicalDriveExtra{Address: "32:2"}},
			},
		}},
		Spares: []Spare{
			{PhysicalDrive: PhysicalDrive{Index: 1, Extra: PhysicalDriveExtra{Address: "32:1"}}},
		},
		Unassigned: []PhysicalDrive{
			{Index: 3, Extra: PhysicalDriveExtra{Address: "32:3"}},
			{Index: 4, Extra: PhysicalDriveExtra{Address: "32:4"}},
		},
	}
}

func TestDrivesOrderedByIndex(t *testing.T) {
	drives := testConfiguration().Drives()
	require.Len(t, drives, 5)
	for i, d := range drives {
		assert.Equal(t, i, d.Index)
	}
}

func TestSelect(t *testing.T) {
	cfg := testConfiguration()

	drives, err := cfg.Select(DriveSelector{Unassigned: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"32:3", "32:4"}, addresses(drives))

	drives, err = cfg.Select(DriveSelector{Indices: []int{4, 0}, Addresses: []string{"32:0", "32:1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"32:0", "32:1", "32:4"}, addresses(drives))

	_, err = cfg.Select(DriveSelector{Indices: []int{99}})
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = cfg.Select(DriveSelector{Addresses: []string{"9:9"}})
	assert.ErrorAs(t, err, &nf)

	assert.True(t, DriveSelector{}.Empty())
}

func addresses(drives []PhysicalDrive) []string {
	out := make([]string, len(drives))
	for i, d := range drives {
		out[i] = d.Extra.Address
	}
	return out
}
