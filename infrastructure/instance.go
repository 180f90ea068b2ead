package infrastructure

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/preslavrachev/cloudkit/core"
)

// Descriptor holds the raw attributes of an instance as reported by a
// backend.
type Descriptor map[string]any

// Well-known descriptor attributes
const (
	AttrID          = "id"
	AttrName        = "name"
	AttrStatus      = "status"
	AttrImageID     = "imageId"
	AttrZone        = "zone"
	AttrLaunchTime  = "launchTime"
	AttrCPU         = "cpu"
	AttrRAM         = "ram"
	AttrStorageSize = "storageSize"
)

// Instance statuses
const (
	StatusRunning      = "running"
	StatusStopped      = "stopped"
	StatusPending      = "pending"
	StatusRebooting    = "rebooting"
	StatusShuttingDown = "shutting-down"
	StatusTerminated   = "terminated"
)

// Instance is a backend descriptor paired with the controller that can
// act on it. The controller is borrowed, not owned.
type Instance struct {
	ctrl       InstanceController
	attributes Descriptor
}

// NewInstance wraps desc. The descriptor is copied.
func NewInstance(ctrl InstanceController, desc Descriptor) (*Instance, error) {
	if isNilController(ctrl) {
		return nil, fmt.Errorf("%w: an instance controller is required", core.ErrInvalidArgument)
	}
	if len(desc) == 0 {
		return nil, fmt.Errorf("%w: instance descriptor must not be empty", core.ErrInvalidArgument)
	}
	return newInstance(ctrl, desc), nil
}

func newInstance(ctrl InstanceController, desc Descriptor) *Instance {
	attrs := maps.Clone(desc)
	if attrs == nil {
		attrs = Descriptor{}
	}
	return &Instance{
		ctrl:       ctrl,
		attributes: attrs,
	}
}

// ID returns the instance identifier
func (i *Instance) ID() string { return i.stringAttr(AttrID) }

// Name returns the instance name
func (i *Instance) Name() string { return i.stringAttr(AttrName) }

// Status returns the last known status. Call Refresh to re-read it.
func (i *Instance) Status() string { return i.stringAttr(AttrStatus) }

// ImageID returns the image the instance was launched from
func (i *Instance) ImageID() string { return i.stringAttr(AttrImageID) }

// Zone returns the availability zone
func (i *Instance) Zone() string { return i.stringAttr(AttrZone) }

// Attribute returns a raw descriptor attribute
func (i *Instance) Attribute(key string) (any, bool) {
	v, ok := i.attributes[key]
	return v, ok
}

// Descriptor returns a copy of the raw attributes
func (i *Instance) Descriptor() Descriptor {
	return maps.Clone(i.attributes)
}

// Refresh re-reads the status from the backend
func (i *Instance) Refresh(ctx context.Context) error {
	status, err := i.ctrl.InstanceStatus(ctx, i.ID())
	if err != nil {
		return fmt.Errorf("failed to refresh instance %s: %w", i.ID(), err)
	}
	i.attributes[AttrStatus] = status
	return nil
}

// Start starts the instance
func (i *Instance) Start(ctx context.Context) error {
	if err := i.ctrl.StartInstance(ctx, i.ID()); err != nil {
		return fmt.Errorf("failed to start instance %s: %w", i.ID(), err)
	}
	return nil
}

// Stop stops the instance
func (i *Instance) Stop(ctx context.Context) error {
	if err := i.ctrl.StopInstance(ctx, i.ID()); err != nil {
		return fmt.Errorf("failed to stop instance %s: %w", i.ID(), err)
	}
	return nil
}

// Reboot reboots the instance
func (i *Instance) Reboot(ctx context.Context) error {
	if err := i.ctrl.RebootInstance(ctx, i.ID()); err != nil {
		return fmt.Errorf("failed to reboot instance %s: %w", i.ID(), err)
	}
	return nil
}

// Destroy destroys the instance
func (i *Instance) Destroy(ctx context.Context) error {
	if err := i.ctrl.DestroyInstance(ctx, i.ID()); err != nil {
		return fmt.Errorf("failed to destroy instance %s: %w", i.ID(), err)
	}
	return nil
}

// Wait polls the backend every interval until the instance reports
// status or ctx is done.
func (i *Instance) Wait(ctx context.Context, status string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", core.ErrInvalidArgument)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := i.Refresh(ctx); err != nil {
			return err
		}
		if i.Status() == status {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for instance %s to be %s: %w", i.ID(), status, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (i *Instance) stringAttr(key string) string {
	switch v := i.attributes[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
