package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/preslavrachev/cloudkit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubController records calls and serves statuses from a queue
type stubController struct {
	calls    []string
	statuses []string
	err      error
}

func (s *stubController) InstanceStatus(_ context.Context, id string) (string, error) {
	s.calls = append(s.calls, "status:"+id)
	if s.err != nil {
		return "", s.err
	}
	if len(s.statuses) == 0 {
		return StatusRunning, nil
	}
	status := s.statuses[0]
	if len(s.statuses) > 1 {
		s.statuses = s.statuses[1:]
	}
	return status, nil
}

func (s *stubController) StartInstance(_ context.Context, id string) error {
	s.calls = append(s.calls, "start:"+id)
	return s.err
}

func (s *stubController) StopInstance(_ context.Context, id string) error {
	s.calls = append(s.calls, "stop:"+id)
	return s.err
}

func (s *stubController) RebootInstance(_ context.Context, id string) error {
	s.calls = append(s.calls, "reboot:"+id)
	return s.err
}

func (s *stubController) DestroyInstance(_ context.Context, id string) error {
	s.calls = append(s.calls, "destroy:"+id)
	return s.err
}

func TestNewInstanceValidation(t *testing.T) {
	_, err := NewInstance(nil, Descriptor{AttrID: "i-1"})
	require.ErrorIs(t, err, core.ErrInvalidArgument)

	var typedNil *stubController
	_, err = NewInstance(typedNil, Descriptor{AttrID: "i-1"})
	require.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = NewInstance(&stubController{}, Descriptor{})
	require.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestInstanceAccessors(t *testing.T) {
	desc := Descriptor{
		AttrID:      "i-1",
		AttrName:    "web",
		AttrStatus:  StatusStopped,
		AttrImageID: "ami-42",
		AttrZone:    "eu-west-1a",
		AttrCPU:     2,
	}
	inst, err := NewInstance(&stubController{}, desc)
	require.NoError(t, err)

	assert.Equal(t, "i-1", inst.ID())
	assert.Equal(t, "web", inst.Name())
	assert.Equal(t, StatusStopped, inst.Status())
	assert.Equal(t, "ami-42", inst.ImageID())
	assert.Equal(t, "eu-west-1a", inst.Zone())

	cpu, ok := inst.Attribute(AttrCPU)
	require.True(t, ok)
	assert.Equal(t, 2, cpu)

	// descriptor is copied in and out
	desc[AttrName] = "changed"
	inst.Descriptor()[AttrName] = "changed"
	assert.Equal(t, "web", inst.Name())
}

func TestInstanceActionsDelegate(t *testing.T) {
	ctrl := &stubController{statuses: []string{StatusRebooting}}
	inst, err := NewInstance(ctrl, Descriptor{AttrID: "i-9", AttrStatus: StatusRunning})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, inst.Start(ctx))
	require.NoError(t, inst.Stop(ctx))
	require.NoError(t, inst.Reboot(ctx))
	require.NoError(t, inst.Refresh(ctx))
	require.NoError(t, inst.Destroy(ctx))

	assert.Equal(t, []string{"start:i-9", "stop:i-9", "reboot:i-9", "status:i-9", "destroy:i-9"}, ctrl.calls)
	assert.Equal(t, StatusRebooting, inst.Status())
}

func TestInstanceActionErrorsAreWrapped(t *testing.T) {
	boom := errors.New("boom")
	inst, err := NewInstance(&stubController{err: boom}, Descriptor{AttrID: "i-1"})
	require.NoError(t, err)

	err = inst.Start(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "i-1")

	err = inst.Refresh(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestInstanceWait(t *testing.T) {
	ctrl := &stubController{statuses: []string{StatusPending, StatusPending, StatusRunning}}
	inst, err := NewInstance(ctrl, Descriptor{AttrID: "i-1", AttrStatus: StatusPending})
	require.NoError(t, err)

	require.NoError(t, inst.Wait(context.Background(), StatusRunning, time.Millisecond))
	assert.Equal(t, StatusRunning, inst.Status())
	assert.Len(t, ctrl.calls, 3)
}

func TestInstanceWaitHonoursContext(t *testing.T) {
	ctrl := &stubController{statuses: []string{StatusPending}}
	inst, err := NewInstance(ctrl, Descriptor{AttrID: "i-1"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = inst.Wait(ctx, StatusRunning, 5*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	err = inst.Wait(context.Background(), StatusRunning, 0)
	require.ErrorIs(t, err, core.ErrInvalidArgument)
}
