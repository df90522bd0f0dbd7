package procedures

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/raidgod/internal/config"
	"github.com/sigreer/raidgod/internal/inventory"
	"github.com/sigreer/raidgod/internal/megaraid"
	"github.com/sigreer/raidgod/internal/raid"
	"github.com/sigreer/raidgod/internal/shell"
	"github.com/sigreer/raidgod/internal/shell/shelltest"
	"github.com/sigreer/raidgod/internal/storcli"
)

type recordingSink struct {
	reports []inventory.Report
	err     error
}

func (r *recordingSink) Update(_ context.Context, report inventory.Report) error {
	r.reports = append(r.reports, report)
	return r.err
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func setup(t *testing.T, defaults config.CreateDefaults) (*Procedures, *shelltest.Runner, *recordingSink) {
	t.Helper()
	r := shelltest.New("storcli")
	r.On("/call show all J", fixture(t, "controllers.json"))
	r.On("/c0/dall show all J", fixture(t, "diskgroups.json"))
	r.Fallback = &shell.Result{}

	cli, err := storcli.New("storcli", r)
	require.NoError(t, err)

	sink := &recordingSink{}
	p := New(megaraid.NewEngine(cli), sink, Options{HostID: "host1", CreateDefaults: defaults})
	return p, r, sink
}

func mutations(r *shelltest.Runner) []string {
	var out []string
	for _, c := range r.Calls() {
		if !strings.HasSuffix(c, " J") {
			out = append(out, c)
		}
	}
	return out
}

func TestCreate(t *testing.T) {
	p, r, sink := setup(t, config.CreateDefaults{IOMode: "cached", WritePolicy: "wt", ReadPolicy: "nora"})

	_, err := p.Create(context.Background(), CreateRequest{
		ControllerID: 0,
		Level:        1,
		Drives:       raid.DriveSelector{Addresses: []string{"32:3"}},
		Size:         1 << 30,
		Policy:       storcli.AddRequest{WritePolicy: "wb"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/c0 add vd type=r1 size=1024 drives=32:3 wb nora cached"}, mutations(r))

	require.Len(t, sink.reports, 1)
	assert.Equal(t, "create", sink.reports[0].Reason)
	assert.Equal(t, "host1", sink.reports[0].HostID)
	assert.Len(t, sink.reports[0].Adapters, 1)
	assert.False(t, sink.reports[0].Time.IsZero())
}

func TestCreateRejectsIneligibleDrive(t *testing.T) {
	p, r, sink := setup(t, config.CreateDefaults{})

	_, err := p.Create(context.Background(), CreateRequest{
		Level:  0,
		Drives: raid.DriveSelector{Addresses: []string{"32:5"}},
	})
	var notEligible *raid.DriveNotEligibleError
	require.True(t, errors.As(err, &notEligible))
	assert.Equal(t, "UBad", notEligible.State)
	assert.Empty(t, mutations(r))
	assert.Empty(t, sink.reports)
}

func TestCreateErrors(t *testing.T) {
	p, _, sink := setup(t, config.CreateDefaults{})
	ctx := context.Background()

	_, err := p.Create(ctx, CreateRequest{Level: 0})
	var cfgErr *storcli.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = p.Create(ctx, CreateRequest{ControllerID: 7, Drives: raid.DriveSelector{Unassigned: true}})
	var notFound *raid.ControllerNotFoundError
	assert.True(t, errors.As(err, &notFound))

	_, err = p.Create(ctx, CreateRequest{Drives: raid.DriveSelector{Addresses: []string{"9:9"}}})
	var missing *raid.NotFoundError
	assert.True(t, errors.As(err, &missing))

	assert.Empty(t, sink.reports)
}

func TestDelete(t *testing.T) {
	p, r, sink := setup(t, config.CreateDefaults{})
	ctx := context.Background()

	_, err := p.Delete(ctx, 0, "abc")
	var cfgErr *storcli.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Empty(t, sink.reports)

	_, err = p.Delete(ctx, 0, "1")
	require.NoError(t, err)
	_, err = p.Delete(ctx, 0, "all")
	require.NoError(t, err)

	assert.Equal(t, []string{"/c0 /v1 del force", "/c0 /vall del force"}, mutations(r))
	require.Len(t, sink.reports, 2)
	assert.Equal(t, "delete", sink.reports[1].Reason)
}

func TestClearAndSpares(t *testing.T) {
	p, r, sink := setup(t, config.CreateDefaults{})
	ctx := context.Background()

	_, err := p.Clear(ctx, 0)
	require.NoError(t, err)

	results, err := p.AddSpares(ctx, 0, raid.DriveSelector{Addresses: []string{"32:3"}}, []int{1})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = p.AddSpares(ctx, 0, raid.DriveSelector{}, nil)
	var cfgErr *storcli.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))

	assert.Equal(t, []string{
		"/c0 /vall del force",
		"/c0/e32/s3 add hotsparedrive DGs=1",
	}, mutations(r))
	require.Len(t, sink.reports, 2)
	assert.Equal(t, "clear", sink.reports[0].Reason)
	assert.Equal(t, "add_spares", sink.reports[1].Reason)
}

func TestSinkFailureIsReported(t *testing.T) {
	p, _, sink := setup(t, config.CreateDefaults{})
	sink.err = errors.New("disk full")

	res, err := p.Delete(context.Background(), 0, "1")
	assert.NotNil(t, res)

	var sinkErr *SinkError
	require.True(t, errors.As(err, &sinkErr))
	assert.Equal(t, "delete", sinkErr.Reason)
	assert.EqualError(t, err, "delete succeeded but the inventory update failed: disk full")
}

func TestInspect(t *testing.T) {
	p, _, sink := setup(t, config.CreateDefaults{})

	adapters, err := p.Inspect(context.Background())
	require.NoError(t, err)
	require.Len(t, adapters, 1)
	assert.Equal(t, megaraid.Provider, adapters[0].Provider)
	require.Len(t, sink.reports, 1)
	assert.Equal(t, "inspect", sink.reports[0].Reason)
}

func TestNilSink(t *testing.T) {
	r := shelltest.New("storcli")
	r.On("/call show all J", fixture(t, "controllers.json"))
	r.On("/c0/dall show all J", fixture(t, "diskgroups.json"))
	r.Fallback = &shell.Result{}
	cli, err := storcli.New("", r)
	require.NoError(t, err)

	p := New(megaraid.NewEngine(cli), nil, Options{})
	assert.Equal(t, DefaultTimeout, p.timeout)
	_, err = p.Delete(context.Background(), 0, "0")
	assert.NoError(t, err)
}
