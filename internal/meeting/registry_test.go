package meeting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conclave-live/backend/internal/models"
)

func newRunning(id, bridge string) *RunningMeeting {
	return &RunningMeeting{
		Meeting: models.Meeting{ID: id, VoiceBridge: bridge},
		handler: &stubHandler{},
	}
}

func TestRegistry_InsertIfAbsent(t *testing.T) {
	r := NewRegistry()

	require.True(t, r.InsertIfAbsent(newRunning("m1", "70001")))
	assert.False(t, r.InsertIfAbsent(newRunning("m1", "70002")), "duplicate id must be rejected")
	assert.Equal(t, 1, r.Len())

	got := r.Get("m1")
	require.NotNil(t, got)
	assert.Equal(t, "70001", got.VoiceBridge, "first insert wins")
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	r.InsertIfAbsent(newRunning("m1", "70001"))

	rm := r.Remove("m1")
	require.NotNil(t, rm)
	assert.Equal(t, "m1", rm.ID)
	assert.Nil(t, r.Get("m1"))
	assert.Nil(t, r.Remove("m1"), "second remove returns nil")
}

func TestRegistry_FindByVoiceBridge(t *testing.T) {
	r := NewRegistry()
	r.InsertIfAbsent(newRunning("m1", "70001"))
	r.InsertIfAbsent(newRunning("m2", "70002"))

	rm := r.FindByVoiceBridge("70002")
	require.NotNil(t, rm)
	assert.Equal(t, "m2", rm.ID)

	assert.Nil(t, r.FindByVoiceBridge("99999"))
}

func TestRegistry_ListAll(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.ListAll())

	r.InsertIfAbsent(newRunning("m1", "70001"))
	r.InsertIfAbsent(newRunning("m2", "70002"))

	all := r.ListAll()
	assert.Len(t, all, 2)

	ids := map[string]bool{}
	for _, rm := range all {
		ids[rm.ID] = true
	}
	assert.True(t, ids["m1"])
	assert.True(t, ids["m2"])
}
