package megaraid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/raidgod/internal/driver"
	"github.com/sigreer/raidgod/internal/raid"
	"github.com/sigreer/raidgod/internal/shell/shelltest"
	"github.com/sigreer/raidgod/internal/storcli"
)

var testHost = driver.HostInfo{
	PCI: []driver.PCIDevice{
		{Slot: "0000:00:1f.2", Class: "0x010601", Driver: "ahci"},
		{Slot: "0000:02:00.0", Class: "0x010400", Driver: KernelModule},
		{Slot: "0000:04:00.0", Class: "0x020000", Driver: KernelModule},
	},
}

func TestProbe(t *testing.T) {
	slots, err := Probe(context.Background(), testHost)
	require.NoError(t, err)
	assert.Equal(t, []string{"0000:02:00.0"}, slots)

	slots, err = Probe(context.Background(), driver.HostInfo{})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestEntryBindsAndInspects(t *testing.T) {
	r := shelltest.New("storcli")
	r.On("/call show all J", fixture(t, "controllers.json"))
	r.On("/c0/dall show all J", fixture(t, "diskgroups.json"))

	reg, err := driver.NewRegistry(Entry("storcli", r))
	require.NoError(t, err)

	bound, err := reg.Bind(context.Background(), testHost)
	require.NoError(t, err)
	require.Len(t, bound, 1)
	assert.Equal(t, driver.TypeRAID, bound[0].Type)

	out, err := bound[0].Driver.Inspect(context.Background())
	require.NoError(t, err)
	adapters, ok := out.([]*raid.Adapter)
	require.True(t, ok)
	require.Len(t, adapters, 1)
	assert.Equal(t, "PERC 6/i Integrated", adapters[0].Name)
}

func TestEntryWithoutStorcli(t *testing.T) {
	reg, err := driver.NewRegistry(Entry("storcli", shelltest.New()))
	require.NoError(t, err)

	bound, err := reg.Bind(context.Background(), testHost)
	var notFound *storcli.BinaryNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Empty(t, bound)
}
