// Package megaraid normalizes LSI/Broadcom MegaRAID (and Dell PERC)
// controllers driven through storcli into the raid model, and translates
// raid operations back into storcli commands.
package megaraid

import (
	"context"
	"strconv"

	"github.com/sigreer/raidgod/internal/raid"
	"github.com/sigreer/raidgod/internal/shell"
	"github.com/sigreer/raidgod/internal/storcli"
)

// Provider names the engine in inventory records
const Provider = "megaraid"

// CLI is the part of storcli.Client the engine uses
type CLI interface {
	Controllers(ctx context.Context) ([]storcli.ControllerDump, error)
	DiskGroups(ctx context.Context, controller, diskGroup string) ([]storcli.DiskGroupDump, error)
	Delete(ctx context.Context, controller, virtualDrive string) (*shell.Result, error)
	Add(ctx context.Context, controller string, req storcli.AddRequest) (*shell.Result, error)
	AddHotspare(ctx context.Context, controller, enclosure, slot string, diskGroups []int) (*shell.Result, error)
}

// Engine implements the raid read and write paths for MegaRAID controllers.
// It keeps no state between calls; every read queries storcli again.
type Engine struct {
	cli CLI
}

// NewEngine creates an engine on top of cli
func NewEngine(cli CLI) *Engine {
	return &Engine{cli: cli}
}

// GetAdapterInfo inspects the controller at position index of the
// controller dump
func (e *Engine) GetAdapterInfo(ctx context.Context, index int) (*raid.Adapter, error) {
	ctrls, err := e.cli.Controllers(ctx)
	if err != nil {
		return nil, err
	}
	return e.adapterAt(ctx, ctrls, index)
}

// Adapters inspects every controller
func (e *Engine) Adapters(ctx context.Context) ([]*raid.Adapter, error) {
	ctrls, err := e.cli.Controllers(ctx)
	if err != nil {
		return nil, err
	}
	adapters := make([]*raid.Adapter, 0, len(ctrls))
	for i := range ctrls {
		a, err := e.adapterAt(ctx, ctrls, i)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

// FindAdapter inspects the controller with vendor id controllerID
func (e *Engine) FindAdapter(ctx context.Context, controllerID int) (*raid.Adapter, error) {
	ctrls, err := e.cli.Controllers(ctx)
	if err != nil {
		return nil, err
	}
	for i, c := range ctrls {
		if c.Basics.Controller == controllerID {
			return e.adapterAt(ctx, ctrls, i)
		}
	}
	return nil, &raid.ControllerNotFoundError{Index: controllerID}
}

func (e *Engine) adapterAt(ctx context.Context, ctrls []storcli.ControllerDump, index int) (*raid.Adapter, error) {
	if index < 0 || index >= len(ctrls) {
		return nil, &raid.ControllerNotFoundError{Index: index}
	}
	ctrl := ctrls[index]
	id := ctrl.Basics.Controller

	// The controller dump lacks the unconfigured drive list
	dgs, err := e.cli.DiskGroups(ctx, strconv.Itoa(id), storcli.All)
	if err != nil {
		return nil, err
	}
	if len(dgs) == 0 {
		return nil, &storcli.OutputError{
			Command: "/c" + strconv.Itoa(id) + "/dall show all",
			Reason:  "no controller in disk group output",
		}
	}

	cfg, err := TransformConfiguration(dgs[0])
	if err != nil {
		return nil, err
	}

	return &raid.Adapter{
		Index:         index,
		Name:          ctrl.Basics.Model,
		Provider:      Provider,
		ControllerID:  id,
		Controller:    ControllerInfo(ctrl),
		Configuration: cfg,
	}, nil
}
