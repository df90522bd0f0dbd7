// Package storcli drives the MegaRAID storcli/perccli utility and decodes its
// JSON output into typed records.
package storcli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sigreer/raidgod/internal/shell"
)

// All selects every controller, disk group or virtual drive
const All = "all"

// jsonFlag asks storcli for JSON output
const jsonFlag = " J"

// Client runs storcli commands through a shell.Runner. The binary path is
// resolved once in New and is the only state the client holds.
type Client struct {
	path   string
	runner shell.Runner
}

// New locates binary (a name on PATH or an absolute path) and returns a
// client bound to it
func New(binary string, runner shell.Runner) (*Client, error) {
	if binary == "" {
		binary = "storcli"
	}
	path, err := runner.LookPath(binary)
	if err != nil || path == "" {
		return nil, &BinaryNotFoundError{Binary: binary, Err: err}
	}
	return &Client{path: path, runner: runner}, nil
}

// Path returns the resolved binary path
func (c *Client) Path() string {
	return c.path
}

// RunCommand executes a storcli command such as "/c0 show". A nonzero exit
// status is returned as a *CommandError unless ignoreError is set, in which
// case the caller gets the result and decides.
func (c *Client) RunCommand(ctx context.Context, command string, ignoreError bool) (*shell.Result, error) {
	args := strings.Fields(command)

	log.WithFields(log.Fields{"binary": c.path, "command": command}).Debug("running storcli")

	res, err := c.runner.Run(ctx, c.path, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run storcli %q: %w", command, err)
	}
	if res.ExitCode != 0 && !ignoreError {
		return res, &CommandError{
			Command:  command,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	return res, nil
}

// RunQuery executes command with JSON output requested and decodes stdout
// into v
func (c *Client) RunQuery(ctx context.Context, command string, v any) error {
	full := command + jsonFlag
	res, err := c.RunCommand(ctx, full, false)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(res.Stdout), v); err != nil {
		return &OutputError{Command: full, Output: res.Stdout, Reason: "invalid JSON", Err: err}
	}
	return nil
}

// query runs a controller scoped query and validates the envelope
func query[T any](ctx context.Context, c *Client, command string) ([]ControllerResponse[T], error) {
	var resp Response[T]
	if err := c.RunQuery(ctx, command, &resp); err != nil {
		return nil, err
	}
	if resp.Controllers == nil {
		return nil, &OutputError{Command: command + jsonFlag, Reason: "output is missing Controllers segment"}
	}
	for _, ctrl := range *resp.Controllers {
		if err := CheckCommandStatus(command, ctrl.CommandStatus); err != nil {
			return nil, err
		}
	}
	return *resp.Controllers, nil
}

// CheckCommandStatus turns a failed Command Status block into a *CommandError
// carrying the vendor description and detail text verbatim
func CheckCommandStatus(command string, status CommandStatus) error {
	if status.Success() {
		return nil
	}
	return &CommandError{
		Command:     command,
		Description: status.Description,
		Details:     status.Details(),
	}
}

// Controllers returns the full dump of every controller (/call show all)
func (c *Client) Controllers(ctx context.Context) ([]ControllerDump, error) {
	ctrls, err := query[ControllerDump](ctx, c, "/call show all")
	if err != nil {
		return nil, err
	}
	out := make([]ControllerDump, 0, len(ctrls))
	for _, ctrl := range ctrls {
		out = append(out, ctrl.ResponseData)
	}
	return out, nil
}

// DiskGroups returns the disk group dump for controller and diskGroup, each
// a number or All. It includes the unconfigured drive list, which the
// controller dump lacks.
func (c *Client) DiskGroups(ctx context.Context, controller, diskGroup string) ([]DiskGroupDump, error) {
	cmd := fmt.Sprintf("/c%s/d%s show all", selector(controller), selector(diskGroup))
	ctrls, err := query[diskGroupEnvelope](ctx, c, cmd)
	if err != nil {
		return nil, err
	}
	out := make([]DiskGroupDump, 0, len(ctrls))
	for _, ctrl := range ctrls {
		out = append(out, ctrl.ResponseData.ResponseData)
	}
	return out, nil
}

// Enclosures returns the enclosure dump of controller (a number or All)
func (c *Client) Enclosures(ctx context.Context, controller string) ([]EnclosureDump, error) {
	cmd := fmt.Sprintf("/c%s/eall show all", selector(controller))
	ctrls, err := query[EnclosureDump](ctx, c, cmd)
	if err != nil {
		return nil, err
	}
	out := make([]EnclosureDump, 0, len(ctrls))
	for _, ctrl := range ctrls {
		out = append(out, ctrl.ResponseData)
	}
	return out, nil
}

// Delete removes one virtual drive, or every one when vd is All
func (c *Client) Delete(ctx context.Context, controller, virtualDrive string) (*shell.Result, error) {
	return c.RunCommand(ctx, fmt.Sprintf("/c%s /v%s del force", controller, selector(virtualDrive)), false)
}

// AddHotspare makes the drive at enclosure:slot a hotspare. With no disk
// groups it becomes a global spare, otherwise it is dedicated to them. An
// empty enclosure addresses a drive attached directly to the controller.
func (c *Client) AddHotspare(ctx context.Context, controller, enclosure, slot string, diskGroups []int) (*shell.Result, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "/c%s", controller)
	if enclosure != "" {
		fmt.Fprintf(&b, "/e%s", enclosure)
	}
	fmt.Fprintf(&b, "/s%s add hotsparedrive", slot)
	if len(diskGroups) > 0 {
		dgs := make([]string, len(diskGroups))
		for i, dg := range diskGroups {
			dgs[i] = fmt.Sprint(dg)
		}
		b.WriteString(" DGs=")
		b.WriteString(strings.Join(dgs, ","))
	}
	return c.RunCommand(ctx, b.String(), false)
}

func selector(s string) string {
	if s == "" {
		return All
	}
	return s
}
