package infrastructure

import (
	"fmt"
	"iter"

	"github.com/preslavrachev/cloudkit/core"
)

// Counter reports the size of a collection
type Counter interface {
	Len() int
}

// Indexer gives positional access to a collection
type Indexer interface {
	At(offset int) (*Instance, error)
}

// Sequencer produces the elements of a collection in order
type Sequencer interface {
	All() iter.Seq2[int, *Instance]
}

// InstanceList is a fixed, read-only list of managed instances. Its size
// and elements are set at construction and cannot change.
//
// The list carries a single traversal cursor (Rewind/Valid/Current/Next)
// that All also uses; interleaved traversals share it. An InstanceList
// is not safe for concurrent use.
type InstanceList struct {
	instances []*Instance
	cursor    int
}

var (
	_ Counter   = (*InstanceList)(nil)
	_ Indexer   = (*InstanceList)(nil)
	_ Sequencer = (*InstanceList)(nil)
)

// NewInstanceList wraps each descriptor, in order, into an Instance bound
// to ctrl.
func NewInstanceList(ctrl InstanceController, descriptors []Descriptor) (*InstanceList, error) {
	if isNilController(ctrl) {
		return nil, fmt.Errorf("%w: an instance controller is required", core.ErrInvalidArgument)
	}
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("%w: a non-empty list of instance descriptors is required", core.ErrInvalidArgument)
	}

	instances := make([]*Instance, 0, len(descriptors))
	for _, desc := range descriptors {
		instances = append(instances, newInstance(ctrl, desc))
	}
	return &InstanceList{instances: instances}, nil
}

// Len returns the number of instances
func (l *InstanceList) Len() int {
	return len(l.instances)
}

// Has reports whether offset addresses an instance
func (l *InstanceList) Has(offset int) bool {
	return offset >= 0 && offset < len(l.instances)
}

// At returns the instance at offset
func (l *InstanceList) At(offset int) (*Instance, error) {
	if !l.Has(offset) {
		return nil, fmt.Errorf("%w: illegal index %d for list of %d instances", core.ErrOutOfBounds, offset, len(l.instances))
	}
	return l.instances[offset], nil
}

// Rewind moves the cursor back to the first instance
func (l *InstanceList) Rewind() {
	l.cursor = 0
}

// Valid reports whether the cursor is on an instance
func (l *InstanceList) Valid() bool {
	return l.Has(l.cursor)
}

// Current returns the instance under the cursor, or nil past the end
func (l *InstanceList) Current() *Instance {
	if !l.Valid() {
		return nil
	}
	return l.instances[l.cursor]
}

// Key returns the cursor position
func (l *InstanceList) Key() int {
	return l.cursor
}

// Next advances the cursor
func (l *InstanceList) Next() {
	l.cursor++
}

// All rewinds the cursor and yields every instance in order
func (l *InstanceList) All() iter.Seq2[int, *Instance] {
	return func(yield func(int, *Instance) bool) {
		for l.Rewind(); l.Valid(); l.Next() {
			if !yield(l.Key(), l.Current()) {
				return
			}
		}
	}
}

// IDs returns the instance identifiers in order
func (l *InstanceList) IDs() []string {
	ids := make([]string, len(l.instances))
	for i, inst := range l.instances {
		ids[i] = inst.ID()
	}
	return ids
}
