package storcli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/raidgod/internal/shell"
	"github.com/sigreer/raidgod/internal/shell/shelltest"
)

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func newClient(t *testing.T) (*Client, *shelltest.Runner) {
	t.Helper()
	r := shelltest.New("storcli")
	c, err := New("storcli", r)
	require.NoError(t, err)
	return c, r
}

func TestNewResolvesBinary(t *testing.T) {
	c, _ := newClient(t)
	assert.Equal(t, "/usr/sbin/storcli", c.Path())

	_, err := New("storcli64", shelltest.New("storcli"))
	var notFound *BinaryNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "storcli64", notFound.Binary)
}

func TestRunCommand(t *testing.T) {
	c, r := newClient(t)
	r.On("/c0 show", "")

	res, err := c.RunCommand(context.Background(), "/c0 show", false)
	require.NoError(t, err)
	assert.Equal(t, "", res.String())

	r.OnResult("/c0 show", &shell.Result{ExitCode: 1, Stdout: "Error"})
	_, err = c.RunCommand(context.Background(), "/c0 show", false)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Contains(t, err.Error(), "Error")

	res, err = c.RunCommand(context.Background(), "/c0 show", true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)
}

func TestRunCommandStartFailure(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.RunCommand(context.Background(), "/c0 show", false)
	require.Error(t, err)
	var cmdErr *CommandError
	assert.False(t, errors.As(err, &cmdErr))
}

func TestRunQuery(t *testing.T) {
	c, r := newClient(t)
	r.On("/call show all J", fixture(t, "controllers.json"))

	var v map[string]any
	require.NoError(t, c.RunQuery(context.Background(), "/call show all", &v))
	assert.Contains(t, v, "Controllers")

	r.On("/call show all J", "not_valid_json")
	err := c.RunQuery(context.Background(), "/call show all", &v)
	var outErr *OutputError
	require.ErrorAs(t, err, &outErr)
	assert.Equal(t, "not_valid_json", outErr.Output)
}

func TestControllers(t *testing.T) {
	c, r := newClient(t)
	r.On("/call show all J", fixture(t, "controllers.json"))

	ctrls, err := c.Controllers(context.Background())
	require.NoError(t, err)
	require.Len(t, ctrls, 1)
	assert.Equal(t, 0, ctrls[0].Basics.Controller)
	assert.Equal(t, "PERC 6/i Integrated", ctrls[0].Basics.Model)
	assert.Equal(t, "megaraid_sas", ctrls[0].Version.DriverName)
	assert.Equal(t, "Optimal", ctrls[0].Status["Controller Status"])
	assert.Len(t, ctrls[0].BBUInfo, 1)

	r.On("/call show all J", "{}")
	_, err = c.Controllers(context.Background())
	var outErr *OutputError
	require.ErrorAs(t, err, &outErr)
	assert.Contains(t, outErr.Error(), "Controllers")
}

func TestEnclosures(t *testing.T) {
	c, r := newClient(t)
	r.On("/call/eall show all J", fixture(t, "enclosures.json"))
	r.On("/c99/eall show all J", fixture(t, "enclosures.json"))

	encl, err := c.Enclosures(context.Background(), All)
	require.NoError(t, err)
	require.Len(t, encl, 1)
	assert.Contains(t, encl[0], "Enclosure /c0/e32  :")
	assert.Equal(t, "/call/eall show all J", r.Last())

	_, err = c.Enclosures(context.Background(), "99")
	require.NoError(t, err)
	assert.Equal(t, "/c99/eall show all J", r.Last())

	r.On("/call/eall show all J", "{}")
	_, err = c.Enclosures(context.Background(), "")
	var outErr *OutputError
	assert.ErrorAs(t, err, &outErr)
}

func TestDiskGroups(t *testing.T) {
	c, r := newClient(t)
	empty := `{"Controllers":[{"Command Status":{"Status":"Success"},"Response Data":{"Response Data":{}}}]}`
	r.On("/call/dall show all J", empty)
	r.On("/c99/d100 show all J", empty)
	r.On("/c0/dall show all J", fixture(t, "diskgroups.json"))

	_, err := c.DiskGroups(context.Background(), All, All)
	require.NoError(t, err)
	assert.Equal(t, "/call/dall show all J", r.Last())

	_, err = c.DiskGroups(context.Background(), "99", "100")
	require.NoError(t, err)
	assert.Equal(t, "/c99/d100 show all J", r.Last())

	dgs, err := c.DiskGroups(context.Background(), "0", All)
	require.NoError(t, err)
	require.Len(t, dgs, 1)
	dump := dgs[0]
	assert.Len(t, dump.Topology, 8)
	assert.Len(t, dump.VirtualDrives, 2)
	assert.Len(t, dump.Drives, 3)
	assert.Len(t, dump.Unconfigured, 5)
	require.Len(t, dump.FreeSpace, 1)
	assert.Equal(t, "458.406 GB", dump.FreeSpace[0].Size)
}

func TestBadCommandStatus(t *testing.T) {
	c, r := newClient(t)
	r.On("/c99/dall show all J", fixture(t, "command_failed.json"))

	_, err := c.DiskGroups(context.Background(), "99", All)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "Controller 99 not found", cmdErr.Description)
	require.Len(t, cmdErr.Details, 2)
	assert.Equal(t, "Things???", cmdErr.Details[0])
	assert.Contains(t, cmdErr.Details[1], `"ErrMsg":"Invalid controller"`)

	err = CheckCommandStatus("/c0 show", CommandStatus{Status: "Nope", Description: "Problems"})
	require.ErrorAs(t, err, &cmdErr)
	assert.Contains(t, err.Error(), "Problems")

	assert.NoError(t, CheckCommandStatus("/c0 show", CommandStatus{}))
}

func TestDelete(t *testing.T) {
	c, r := newClient(t)
	r.Fallback = &shell.Result{}

	res, err := c.Delete(context.Background(), "0", All)
	require.NoError(t, err)
	assert.Equal(t, "", res.String())
	assert.Equal(t, "/c0 /vall del force", r.Last())

	_, err = c.Delete(context.Background(), "0", "3")
	require.NoError(t, err)
	assert.Equal(t, "/c0 /v3 del force", r.Last())
}

func TestAddHotspare(t *testing.T) {
	c, r := newClient(t)
	r.Fallback = &shell.Result{}

	_, err := c.AddHotspare(context.Background(), "0", "32", "10", nil)
	require.NoError(t, err)
	assert.Equal(t, "/c0/e32/s10 add hotsparedrive", r.Last())

	_, err = c.AddHotspare(context.Background(), "0", "32", "10", []int{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, "/c0/e32/s10 add hotsparedrive DGs=0,1,2", r.Last())

	_, err = c.AddHotspare(context.Background(), "1", "", "4", nil)
	require.NoError(t, err)
	assert.Equal(t, "/c1/s4 add hotsparedrive", r.Last())
}
