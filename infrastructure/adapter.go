// Package infrastructure exposes compute instances fetched from a
// pluggable cloud backend as managed, read-only collections.
package infrastructure

import (
	"context"
	"errors"
	"reflect"
)

var (
	// ErrInstanceNotFound is returned by backends for unknown instance ids
	ErrInstanceNotFound = errors.New("instance not found")
	// ErrNoInstances is returned by ListInstances when there is nothing to
	// list, since an InstanceList is never empty.
	ErrNoInstances = errors.New("no instances")
)

// InstanceController is what a managed Instance needs from its backend
// to act on itself after it has been listed.
type InstanceController interface {
	InstanceStatus(ctx context.Context, id string) (string, error)
	StartInstance(ctx context.Context, id string) error
	StopInstance(ctx context.Context, id string) error
	RebootInstance(ctx context.Context, id string) error
	DestroyInstance(ctx context.Context, id string) error
}

// Adapter defines the interface for infrastructure backends
type Adapter interface {
	InstanceController

	ListInstances(ctx context.Context) (*InstanceList, error)
	CreateInstance(ctx context.Context, name string, options Descriptor) (*Instance, error)
}

// isNilController catches both a nil interface and an interface holding
// a nil pointer.
func isNilController(c InstanceController) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}
