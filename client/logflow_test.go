package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pacelog/pacelog/internal/activities"
)

func TestLogFlow_SaveNote(t *testing.T) {
	remote := newFakeRemote()
	store := NewStore(remote)
	flow := NewLogFlow(store)

	assert.Equal(t, FlowStateIdle, flow.State())

	logged, err := flow.Log(context.Background(), activities.Activity{
		Type:       activities.TypeRun,
		Date:       time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
		DistanceKm: 5,
	})
	require.NoError(t, err)
	require.Equal(t, FlowStateNotePrompt, flow.State())

	require.NoError(t, flow.SaveNote(context.Background(), "felt great"))
	assert.Equal(t, FlowStateNoteSaved, flow.State())

	stored, ok := store.Get(logged.ID)
	require.True(t, ok)
	assert.Equal(t, "felt great", stored.Notes)
	require.NotNil(t, stored.NoteUpdatedAt)

	// prompt is spent
	assert.ErrorIs(t, flow.SaveNote(context.Background(), "again"), ErrNoActivityLogged)
}

func TestLogFlow_SkipNote(t *testing.T) {
	store := NewStore(newFakeRemote())
	flow := NewLogFlow(store)

	assert.ErrorIs(t, flow.SkipNote(), ErrNoActivityLogged)

	_, err := flow.Log(context.Background(), activities.Activity{
		Type:       activities.TypeRide,
		Date:       time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
		DistanceKm: 20,
	})
	require.NoError(t, err)

	require.NoError(t, flow.SkipNote())
	assert.Equal(t, FlowStateNoteSkipped, flow.State())
}

func TestLogFlow_ActivityGoneBeforeNote(t *testing.T) {
	store := NewStore(newFakeRemote())
	flow := NewLogFlow(store)

	logged, err := flow.Log(context.Background(), activities.Activity{
		Type:       activities.TypeRun,
		Date:       time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
		DistanceKm: 5,
	})
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), logged.ID))

	assert.ErrorIs(t, flow.SaveNote(context.Background(), "too late"), ErrNoActivityLogged)
	assert.Equal(t, FlowStateNoteSkipped, flow.State())
}
