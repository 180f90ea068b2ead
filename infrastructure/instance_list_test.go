package infrastructure

import (
	"reflect"
	"testing"

	"github.com/preslavrachev/cloudkit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptors() []Descriptor {
	return []Descriptor{
		{AttrID: "i-1", AttrName: "web", AttrStatus: StatusRunning},
		{AttrID: "i-2", AttrName: "db", AttrStatus: StatusStopped},
		{AttrID: "i-3", AttrName: "cache", AttrStatus: StatusPending},
	}
}

func TestNewInstanceListValidation(t *testing.T) {
	var typedNil *stubController

	tests := []struct {
		name        string
		ctrl        InstanceController
		descriptors []Descriptor
	}{
		{"nil controller", nil, testDescriptors()},
		{"typed nil controller", typedNil, testDescriptors()},
		{"nil descriptors", &stubController{}, nil},
		{"empty descriptors", &stubController{}, []Descriptor{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := NewInstanceList(tt.ctrl, tt.descriptors)
			require.ErrorIs(t, err, core.ErrInvalidArgument)
			assert.Nil(t, list)
		})
	}
}

func TestInstanceListIndexedAccess(t *testing.T) {
	ctrl := &stubController{}
	list, err := NewInstanceList(ctrl, testDescriptors())
	require.NoError(t, err)

	n := list.Len()
	require.Equal(t, 3, n)

	for i, want := range []string{"i-1", "i-2", "i-3"} {
		inst, err := list.At(i)
		require.NoError(t, err)
		assert.Equal(t, want, inst.ID())
	}

	for _, offset := range []int{n, -1, 100} {
		inst, err := list.At(offset)
		require.ErrorIs(t, err, core.ErrOutOfBounds)
		assert.Nil(t, inst)
	}

	assert.True(t, list.Has(0))
	assert.True(t, list.Has(n-1))
	assert.False(t, list.Has(n))
	assert.False(t, list.Has(-1))

	assert.Equal(t, []string{"i-1", "i-2", "i-3"}, list.IDs())
}

func TestInstanceListSharesController(t *testing.T) {
	ctrl := &stubController{}
	list, err := NewInstanceList(ctrl, testDescriptors())
	require.NoError(t, err)

	for _, inst := range list.All() {
		assert.Same(t, ctrl, inst.ctrl)
	}
}

func TestInstanceListCursor(t *testing.T) {
	list, err := NewInstanceList(&stubController{}, testDescriptors())
	require.NoError(t, err)

	traverse := func() []string {
		var names []string
		for list.Rewind(); list.Valid(); list.Next() {
			names = append(names, list.Current().Name())
		}
		return names
	}

	assert.Equal(t, []string{"web", "db", "cache"}, traverse())
	assert.False(t, list.Valid())
	assert.Nil(t, list.Current())
	assert.Equal(t, 3, list.Key())

	// advancing past the end neither wraps nor panics
	list.Next()
	assert.False(t, list.Valid())
	assert.Nil(t, list.Current())

	assert.Equal(t, []string{"web", "db", "cache"}, traverse())
}

func TestInstanceListAll(t *testing.T) {
	list, err := NewInstanceList(&stubController{}, testDescriptors())
	require.NoError(t, err)

	collect := func() ([]int, []string) {
		var keys []int
		var ids []string
		for i, inst := range list.All() {
			keys = append(keys, i)
			ids = append(ids, inst.ID())
		}
		return keys, ids
	}

	keys, ids := collect()
	assert.Equal(t, []int{0, 1, 2}, keys)
	assert.Equal(t, []string{"i-1", "i-2", "i-3"}, ids)

	keys, ids = collect()
	assert.Equal(t, []int{0, 1, 2}, keys)
	assert.Equal(t, []string{"i-1", "i-2", "i-3"}, ids)

	// early exit leaves the shared cursor where it stopped
	for i := range list.All() {
		if i == 1 {
			break
		}
	}
	assert.Equal(t, 1, list.Key())
}

func TestInstanceListEnforcesCapabilities(t *testing.T) {
	list, err := NewInstanceList(&stubController{}, testDescriptors())
	require.NoError(t, err)

	var counter Counter = list
	var indexer Indexer = list
	var sequencer Sequencer = list

	assert.Equal(t, 3, counter.Len())
	first, err := indexer.At(0)
	require.NoError(t, err)

	for _, inst := range sequencer.All() {
		assert.Same(t, first, inst)
		break
	}

	typ := reflect.TypeOf(list)
	for _, name := range []string{"Set", "Unset", "Append", "Delete", "Remove", "Push", "Clear"} {
		_, ok := typ.MethodByName(name)
		assert.False(t, ok, "%s should not be exposed", name)
	}
}

func TestInstanceListCopiesDescriptors(t *testing.T) {
	descs := testDescriptors()
	list, err := NewInstanceList(&stubController{}, descs)
	require.NoError(t, err)

	descs[0][AttrName] = "changed"
	descs[1] = Descriptor{AttrID: "other"}

	first, err := list.At(0)
	require.NoError(t, err)
	second, err := list.At(1)
	require.NoError(t, err)
	assert.Equal(t, "web", first.Name())
	assert.Equal(t, "i-2", second.ID())
	assert.Equal(t, 3, list.Len())
}
