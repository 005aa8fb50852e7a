package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pacelog/pacelog/internal/activities"
)

// FlowState is where the post-logging sequence currently stands.
type FlowState string

const (
	FlowStateIdle        FlowState = "idle"
	FlowStateNotePrompt  FlowState = "notePrompt"
	FlowStateNoteSaved   FlowState = "noteSaved"
	FlowStateNoteSkipped FlowState = "noteSkipped"
)

var ErrNoActivityLogged = errors.New("no activity logged")

// LogFlow drives what happens right after an activity is logged: the
// user gets prompted for a note and either saves one or skips. One
// explicit state per step, no timer chains. Logging a new activity
// resets the flow regardless of where the previous one ended.
type LogFlow struct {
	store *Store

	state    FlowState
	loggedID int
}

func NewLogFlow(store *Store) *LogFlow {
	return &LogFlow{
		store: store,
		state: FlowStateIdle,
	}
}

func (f *LogFlow) State() FlowState {
	return f.state
}

// Log creates the activity through the store and moves the flow to the
// note prompt. A failed create leaves the flow where it was.
func (f *LogFlow) Log(ctx context.Context, draft activities.Activity) (*activities.Activity, error) {
	logged, err := f.store.Create(ctx, draft)
	if err != nil {
		return nil, err
	}

	f.state = FlowStateNotePrompt
	f.loggedID = logged.ID
	return logged, nil
}

// SaveNote attaches the note to the just-logged activity and finishes
// the flow. Only valid while the prompt is open.
func (f *LogFlow) SaveNote(ctx context.Context, note string) error {
	if f.state != FlowStateNotePrompt {
		return fmt.Errorf("%w: flow is %s", ErrNoActivityLogged, f.state)
	}

	logged, ok := f.store.Get(f.loggedID)
	if !ok {
		// deleted from another device before the note was written
		f.state = FlowStateNoteSkipped
		return ErrNoActivityLogged
	}

	now := time.Now()
	logged.Notes = note
	logged.NoteUpdatedAt = &now
	if err := f.store.Update(ctx, logged); err != nil {
		return err
	}

	f.state = FlowStateNoteSaved
	return nil
}

// SkipNote closes the prompt without writing anything.
func (f *LogFlow) SkipNote() error {
	if f.state != FlowStateNotePrompt {
		return fmt.Errorf("%w: flow is %s", ErrNoActivityLogged, f.state)
	}
	f.state = FlowStateNoteSkipped
	return nil
}
