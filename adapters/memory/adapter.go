// Package memory implements an in-process infrastructure backend. It is
// suitable for development, demos and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/preslavrachev/cloudkit/core"
	"github.com/preslavrachev/cloudkit/infrastructure"
)

// ErrInvalidTransition is returned when an action is not allowed in the
// instance's current status
var ErrInvalidTransition = errors.New("invalid status transition")

// DefaultZone is assigned to instances created without a zone
const DefaultZone = "local-1"

// settled maps transitional statuses to the status they reach on the
// next status read
var settled = map[string]string{
	infrastructure.StatusPending:      infrastructure.StatusRunning,
	infrastructure.StatusRebooting:    infrastructure.StatusRunning,
	infrastructure.StatusShuttingDown: infrastructure.StatusTerminated,
}

// Adapter keeps instances in memory. Transitional statuses settle the
// next time the status is read.
type Adapter struct {
	instances map[string]infrastructure.Descriptor
	order     []string
	mutex     sync.RWMutex

	now func() time.Time
}

var _ infrastructure.Adapter = (*Adapter)(nil)

// New creates an empty memory backend
func New() *Adapter {
	return &Adapter{
		instances: make(map[string]infrastructure.Descriptor),
		now:       time.Now,
	}
}

// CreateInstance launches a new instance in pending status. Attributes
// in options are copied onto the descriptor; id, name, status and
// launchTime are always set by the backend.
func (a *Adapter) CreateInstance(ctx context.Context, name string, options infrastructure.Descriptor) (*infrastructure.Instance, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: instance name cannot be empty", core.ErrInvalidArgument)
	}

	desc := maps.Clone(options)
	if desc == nil {
		desc = infrastructure.Descriptor{}
	}
	if _, ok := desc[infrastructure.AttrZone]; !ok {
		desc[infrastructure.AttrZone] = DefaultZone
	}
	desc[infrastructure.AttrID] = uuid.NewString()
	desc[infrastructure.AttrName] = name
	desc[infrastructure.AttrStatus] = infrastructure.StatusPending
	desc[infrastructure.AttrLaunchTime] = a.now().UTC()

	a.mutex.Lock()
	id := desc[infrastructure.AttrID].(string)
	a.instances[id] = desc
	a.order = append(a.order, id)
	a.mutex.Unlock()

	return infrastructure.NewInstance(a, desc)
}

// ListInstances returns every instance that is not terminated, in
// launch order
func (a *Adapter) ListInstances(ctx context.Context) (*infrastructure.InstanceList, error) {
	a.mutex.RLock()
	descriptors := make([]infrastructure.Descriptor, 0, len(a.order))
	for _, id := range a.order {
		desc := a.instances[id]
		if desc[infrastructure.AttrStatus] == infrastructure.StatusTerminated {
			continue
		}
		descriptors = append(descriptors, maps.Clone(desc))
	}
	a.mutex.RUnlock()

	if len(descriptors) == 0 {
		return nil, infrastructure.ErrNoInstances
	}
	return infrastructure.NewInstanceList(a, descriptors)
}

// InstanceStatus returns the current status, settling transitional ones
func (a *Adapter) InstanceStatus(ctx context.Context, id string) (string, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	desc, err := a.lookup(id)
	if err != nil {
		return "", err
	}

	status, _ := desc[infrastructure.AttrStatus].(string)
	if next, ok := settled[status]; ok {
		status = next
		desc[infrastructure.AttrStatus] = status
	}
	return status, nil
}

// StartInstance starts a stopped instance
func (a *Adapter) StartInstance(ctx context.Context, id string) error {
	return a.transition(id, infrastructure.StatusPending, infrastructure.StatusStopped)
}

// StopInstance stops a running instance
func (a *Adapter) StopInstance(ctx context.Context, id string) error {
	return a.transition(id, infrastructure.StatusStopped, infrastructure.StatusRunning)
}

// RebootInstance reboots a running instance
func (a *Adapter) RebootInstance(ctx context.Context, id string) error {
	return a.transition(id, infrastructure.StatusRebooting, infrastructure.StatusRunning)
}

// DestroyInstance terminates an instance in any status short of
// terminated
func (a *Adapter) DestroyInstance(ctx context.Context, id string) error {
	return a.transition(id, infrastructure.StatusShuttingDown,
		infrastructure.StatusPending,
		infrastructure.StatusRunning,
		infrastructure.StatusStopped,
		infrastructure.StatusRebooting,
	)
}

// PurgeTerminated forgets terminated instances and returns how many
// were removed
func (a *Adapter) PurgeTerminated(ctx context.Context) int {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	kept := a.order[:0]
	removed := 0
	for _, id := range a.order {
		if a.instances[id][infrastructure.AttrStatus] == infrastructure.StatusTerminated {
			delete(a.instances, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	a.order = kept
	return removed
}

func (a *Adapter) transition(id, to string, from ...string) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	desc, err := a.lookup(id)
	if err != nil {
		return err
	}

	status, _ := desc[infrastructure.AttrStatus].(string)
	for _, allowed := range from {
		if status == allowed {
			desc[infrastructure.AttrStatus] = to
			return nil
		}
	}
	return fmt.Errorf("%w: instance %s is %s, cannot become %s", ErrInvalidTransition, id, status, to)
}

// lookup must be called with the mutex held
func (a *Adapter) lookup(id string) (infrastructure.Descriptor, error) {
	desc, ok := a.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", infrastructure.ErrInstanceNotFound, id)
	}
	return desc, nil
}
