package storcli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sigreer/raidgod/internal/shell"
)

// Policy defaults applied by Add when a field is left empty
const (
	DefaultIOMode      = "direct"
	DefaultWritePolicy = "wb"
	DefaultReadPolicy  = "ra"
)

// spanLevels need an explicit drives-per-array count
var spanLevels = []int{10, 50, 60}

// helpMarker starts the usage banner storcli prints, with exit status 0, when
// it rejects a command line
const helpMarker = "help -"

// AddRequest describes a virtual drive to create
type AddRequest struct {
	Level int
	// Drives are enclosure:slot addresses (ranges such as 32:0-3 are allowed)
	Drives []string
	// SizeMB is the size of the volume, 0 uses all available space
	SizeMB int64
	// PDPerArray is required for RAID 10, 50 and 60
	PDPerArray int
	// PDCache is on, off or default
	PDCache      string
	DimmerSwitch string
	IOMode       string
	WritePolicy  string
	ReadPolicy   string
	CacheVD      bool
	StripSize    int
	Spares       string
	CacheBadBBU  bool
	AfterVD      string
}

// IsSpanLevel reports whether level spans several arrays
func IsSpanLevel(level int) bool {
	return slices.Contains(spanLevels, level)
}

// Validate checks the request without running anything
func (r AddRequest) Validate() error {
	if len(r.Drives) == 0 {
		return &ConfigurationError{Msg: "at least one drive is required"}
	}
	if IsSpanLevel(r.Level) && r.PDPerArray <= 0 {
		return &ConfigurationError{Msg: fmt.Sprintf("span depth (pdperarray) must be specified for RAID%d", r.Level)}
	}
	return nil
}

// Command renders the storcli command line for controller
func (r AddRequest) Command(controller string) string {
	parts := []string{
		fmt.Sprintf("/c%s", controller),
		"add", "vd",
		fmt.Sprintf("type=r%d", r.Level),
	}
	if r.SizeMB > 0 {
		parts = append(parts, fmt.Sprintf("size=%d", r.SizeMB))
	}
	parts = append(parts,
		"drives="+strings.Join(r.Drives, ","),
		orDefault(r.WritePolicy, DefaultWritePolicy),
		orDefault(r.ReadPolicy, DefaultReadPolicy),
		orDefault(r.IOMode, DefaultIOMode),
	)
	if r.StripSize > 0 {
		parts = append(parts, fmt.Sprintf("strip=%d", r.StripSize))
	}
	if r.Spares != "" {
		parts = append(parts, "spares="+r.Spares)
	}
	if r.PDCache != "" {
		parts = append(parts, "pdcache="+r.PDCache)
	}
	if r.DimmerSwitch != "" {
		parts = append(parts, "ds="+r.DimmerSwitch)
	}
	if r.CacheVD {
		parts = append(parts, "cachevd")
	}
	if r.CacheBadBBU {
		parts = append(parts, "cachebadbbu")
	}
	if r.AfterVD != "" {
		parts = append(parts, "aftervd="+r.AfterVD)
	}
	if r.PDPerArray > 0 {
		parts = append(parts, fmt.Sprintf("pdperarray=%d", r.PDPerArray))
	}
	return strings.Join(parts, " ")
}

// Add creates a virtual drive. storcli exits 0 when it rejects the command
// line, so the output is also scanned for its usage banner.
func (c *Client) Add(ctx context.Context, controller string, req AddRequest) (*shell.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cmd := req.Command(controller)
	res, err := c.RunCommand(ctx, cmd, false)
	if err != nil {
		return res, err
	}
	if err := CheckUsageBanner(cmd, res); err != nil {
		return res, err
	}
	return res, nil
}

// CheckUsageBanner returns a *CommandError when stdout contains the storcli
// usage banner. The error carries the lines printed before the banner.
func CheckUsageBanner(command string, res *shell.Result) error {
	var lines []string
	for _, l := range strings.Split(res.String(), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	for i, l := range lines {
		if strings.HasPrefix(l, helpMarker) {
			return &CommandError{
				Command:     command,
				Stdout:      res.Stdout,
				Stderr:      res.Stderr,
				Description: "error creating virtual drive, response:",
				Details:     lines[:i],
			}
		}
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
