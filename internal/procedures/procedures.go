// Package procedures runs the mutating RAID capabilities. Each one is a two
// step pipeline: the core operation against the controller, then, only when
// it succeeded, a fresh inventory handed to the sink.
package procedures

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sigreer/raidgod/internal/config"
	"github.com/sigreer/raidgod/internal/inventory"
	"github.com/sigreer/raidgod/internal/raid"
	"github.com/sigreer/raidgod/internal/shell"
	"github.com/sigreer/raidgod/internal/storcli"
)

// DefaultTimeout bounds a capability when none is configured
const DefaultTimeout = 60 * time.Second

// Engine is the raid engine the capabilities drive
type Engine interface {
	Adapters(ctx context.Context) ([]*raid.Adapter, error)
	FindAdapter(ctx context.Context, controllerID int) (*raid.Adapter, error)
	CreateArray(ctx context.Context, adapter *raid.Adapter, level int, drives []raid.PhysicalDrive, size int64, opts storcli.AddRequest) (*shell.Result, error)
	DeleteVirtualDrive(ctx context.Context, controllerID int, vd string) (*shell.Result, error)
	ClearConfiguration(ctx context.Context, adapterIndex int) (*shell.Result, error)
	AddSpares(ctx context.Context, adapterIndex int, selector raid.DriveSelector, arrayIndices []int) ([]*shell.Result, error)
}

// SinkError is returned when the mutation succeeded but recording the new
// inventory did not
type SinkError struct {
	Reason string
	Err    error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s succeeded but the inventory update failed: %v", e.Reason, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// Options configures Procedures
type Options struct {
	HostID         string
	Timeout        time.Duration
	CreateDefaults config.CreateDefaults
}

// Procedures serializes capabilities host wide
type Procedures struct {
	engine   Engine
	sink     inventory.Sink
	hostID   string
	timeout  time.Duration
	defaults config.CreateDefaults

	mu  sync.Mutex
	now func() time.Time
}

// New creates Procedures. A nil sink discards reports.
func New(engine Engine, sink inventory.Sink, opts Options) *Procedures {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Procedures{
		engine:   engine,
		sink:     sink,
		hostID:   opts.HostID,
		timeout:  opts.Timeout,
		defaults: opts.CreateDefaults,
		now:      time.Now,
	}
}

// CreateRequest describes an array to create
type CreateRequest struct {
	ControllerID int
	Level        int
	Drives       raid.DriveSelector
	// Size in bytes, 0 uses all available space
	Size   int64
	Policy storcli.AddRequest
}

// Create creates a virtual drive on the controller with vendor id
// req.ControllerID
func (p *Procedures) Create(ctx context.Context, req CreateRequest) (*shell.Result, error) {
	fields := log.Fields{"controller": req.ControllerID, "level": req.Level, "size": req.Size}
	return run(p, ctx, "create", fields, func(ctx context.Context) (*shell.Result, error) {
		if req.Drives.Empty() {
			return nil, &storcli.ConfigurationError{Msg: "no drives selected"}
		}
		adapter, err := p.engine.FindAdapter(ctx, req.ControllerID)
		if err != nil {
			return nil, err
		}
		drives, err := adapter.Configuration.Select(req.Drives)
		if err != nil {
			return nil, err
		}
		return p.engine.CreateArray(ctx, adapter, req.Level, drives, req.Size, p.policy(req.Policy))
	})
}

// policy fills the io, write and read policies left empty
func (p *Procedures) policy(req storcli.AddRequest) storcli.AddRequest {
	if req.IOMode == "" {
		req.IOMode = p.defaults.IOMode
	}
	if req.WritePolicy == "" {
		req.WritePolicy = p.defaults.WritePolicy
	}
	if req.ReadPolicy == "" {
		req.ReadPolicy = p.defaults.ReadPolicy
	}
	return req
}

// Delete deletes virtual drive vd, a number or "all", on the controller
// with vendor id controllerID
func (p *Procedures) Delete(ctx context.Context, controllerID int, vd string) (*shell.Result, error) {
	fields := log.Fields{"controller": controllerID, "virtual_drive": vd}
	return run(p, ctx, "delete", fields, func(ctx context.Context) (*shell.Result, error) {
		return p.engine.DeleteVirtualDrive(ctx, controllerID, vd)
	})
}

// Clear deletes every virtual drive of the adapter at adapterIndex
func (p *Procedures) Clear(ctx context.Context, adapterIndex int) (*shell.Result, error) {
	return run(p, ctx, "clear", log.Fields{"adapter": adapterIndex}, func(ctx context.Context) (*shell.Result, error) {
		return p.engine.ClearConfiguration(ctx, adapterIndex)
	})
}

// AddSpares turns the selected drives into hotspares, dedicated to
// arrayIndices when given
func (p *Procedures) AddSpares(ctx context.Context, adapterIndex int, selector raid.DriveSelector, arrayIndices []int) ([]*shell.Result, error) {
	fields := log.Fields{"adapter": adapterIndex, "arrays": arrayIndices}
	return run(p, ctx, "add_spares", fields, func(ctx context.Context) ([]*shell.Result, error) {
		if selector.Empty() {
			return nil, &storcli.ConfigurationError{Msg: "no drives selected"}
		}
		return p.engine.AddSpares(ctx, adapterIndex, selector, arrayIndices)
	})
}

// Inspect reads every adapter and records it
func (p *Procedures) Inspect(ctx context.Context) ([]*raid.Adapter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	adapters, err := p.engine.Adapters(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.report(ctx, "inspect", adapters); err != nil {
		return adapters, &SinkError{Reason: "inspect", Err: err}
	}
	return adapters, nil
}

func run[T any](p *Procedures, ctx context.Context, reason string, fields log.Fields, op func(context.Context) (T, error)) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	entry := log.WithFields(fields).WithField("capability", reason)
	start := p.now()

	res, err := op(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%s timed out after %s: %w", reason, p.timeout, err)
		}
		entry.WithError(err).Warn("capability failed")
		return res, err
	}
	entry.WithField("elapsed", p.now().Sub(start)).Info("capability succeeded")

	adapters, err := p.engine.Adapters(ctx)
	if err != nil {
		return res, &SinkError{Reason: reason, Err: fmt.Errorf("failed to read adapters: %w", err)}
	}
	if err := p.report(ctx, reason, adapters); err != nil {
		return res, &SinkError{Reason: reason, Err: err}
	}
	return res, nil
}

func (p *Procedures) report(ctx context.Context, reason string, adapters []*raid.Adapter) error {
	if p.sink == nil {
		return nil
	}
	return p.sink.Update(ctx, inventory.Report{
		HostID:   p.hostID,
		Reason:   reason,
		Time:     p.now(),
		Adapters: adapters,
	})
}
