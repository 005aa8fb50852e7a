package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pacelog/pacelog/internal/activities"
	"github.com/pacelog/pacelog/internal/feed"
	"github.com/pacelog/pacelog/internal/goals"
	"github.com/pacelog/pacelog/internal/stats"
)

// ErrNothingToUndo is returned by Undo when the undo slot is empty.
var ErrNothingToUndo = errors.New("nothing to undo")

type remoteStore interface {
	ListActivities(ctx context.Context) ([]activities.Activity, error)
	AddActivity(ctx context.Context, activity activities.Activity) (*activities.Activity, error)
	UpdateActivity(ctx context.Context, activity activities.Activity) error
	DeleteActivity(ctx context.Context, id int) error
}

// Store is a local mirror of one user's activities. Writes apply to
// the mirror first and go to the backend right after; the UI reads the
// mirror only and never waits on the network.
//
// Reconciliation rules:
//   - an explicit backend rejection rolls the local write back
//   - a transport failure keeps the local write, the next Load or feed
//     event settles the difference
//   - feed events merge idempotently, replaying one is harmless
type Store struct {
	mu     sync.RWMutex
	remote remoteStore

	byID map[int]activities.Activity
	// pending optimistic creates get negative ids until the backend
	// assigns real ones
	nextPendingID int

	// single undo slot: holds the last deleted activity, a newer
	// delete overwrites it
	lastDeleted *activities.Activity
}

func NewStore(remote remoteStore) *Store {
	return &Store{
		remote:        remote,
		byID:          make(map[int]activities.Activity),
		nextPendingID: -1,
	}
}

// Load replaces the mirror with the backend state. Pending optimistic
// records are dropped, the backend is the source of truth here.
func (s *Store) Load(ctx context.Context) error {
	remoteActs, err := s.remote.ListActivities(ctx)
	if err != nil {
		return fmt.Errorf("load activities: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[int]activities.Activity, len(remoteActs))
	for _, a := range remoteActs {
		s.byID[a.ID] = a
	}
	return nil
}

// Create applies the activity locally under a temporary id, then sends
// it to the backend and re-keys it under the server assigned id.
func (s *Store) Create(ctx context.Context, activity activities.Activity) (*activities.Activity, error) {
	activity.Normalize()
	if !activity.Valid() {
		return nil, errors.New("invalid activity")
	}

	s.mu.Lock()
	pendingID := s.nextPendingID
	s.nextPendingID--
	activity.ID = pendingID
	s.byID[pendingID] = activity
	s.mu.Unlock()

	added, err := s.remote.AddActivity(ctx, activity)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			delete(s.byID, pendingID)
			return nil, err
		}
		// offline: the optimistic record stays, under its pending id
		log.Warnf("store: create not confirmed, keeping local copy: %s", err)
		a := s.byID[pendingID]
		return &a, nil
	}

	delete(s.byID, pendingID)
	s.byID[added.ID] = *added
	return added, nil
}

// Update overwrites the local record, then pushes the change. The
// previous state comes back on explicit rejection.
func (s *Store) Update(ctx context.Context, activity activities.Activity) error {
	activity.Normalize()
	if !activity.Valid() {
		return errors.New("invalid activity")
	}

	s.mu.Lock()
	old, exists := s.byID[activity.ID]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("activity %d not found", activity.ID)
	}
	s.byID[activity.ID] = activity
	s.mu.Unlock()

	err := s.remote.UpdateActivity(ctx, activity)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		s.mu.Lock()
		s.byID[activity.ID] = old
		s.mu.Unlock()
		return err
	}

	log.Warnf("store: update of %d not confirmed, keeping local copy: %s", activity.ID, err)
	return nil
}

// Delete removes the activity locally and remotely, keeping a copy in
// the undo slot. Deleting an id the mirror does not know is a no-op.
func (s *Store) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	deleted, exists := s.byID[id]
	if !exists {
		s.mu.Unlock()
		return nil
	}
	delete(s.byID, id)
	s.lastDeleted = &deleted
	s.mu.Unlock()

	err := s.remote.DeleteActivity(ctx, id)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		s.mu.Lock()
		s.byID[id] = deleted
		if s.lastDeleted != nil && s.lastDeleted.ID == id {
			s.lastDeleted = nil
		}
		s.mu.Unlock()
		return err
	}

	log.Warnf("store: delete of %d not confirmed: %s", id, err)
	return nil
}

// Undo re-creates the last deleted activity. The record gets a new id,
// the backend does not resurrect rows. The slot holds one delete only.
func (s *Store) Undo(ctx context.Context) (*activities.Activity, error) {
	s.mu.Lock()
	if s.lastDeleted == nil {
		s.mu.Unlock()
		return nil, ErrNothingToUndo
	}
	restored := *s.lastDeleted
	s.lastDeleted = nil
	s.mu.Unlock()

	restored.ID = 0
	return s.Create(ctx, restored)
}

// Get returns a copy of the activity, when the mirror has it.
func (s *Store) Get(id int) (activities.Activity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	return a, ok
}

// Snapshot returns all mirrored activities, newest first.
func (s *Store) Snapshot() []activities.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]activities.Activity, 0, len(s.byID))
	for _, a := range s.byID {
		snapshot = append(snapshot, a)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		if !snapshot[i].Date.Equal(snapshot[j].Date) {
			return snapshot[i].Date.After(snapshot[j].Date)
		}
		return snapshot[i].ID > snapshot[j].ID
	})
	return snapshot
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Overview aggregates the mirrored activities locally, no backend
// round trip. Useful when the dashboard should work offline.
func (s *Store) Overview(userGoals []goals.Goal, now time.Time) *stats.Overview {
	return stats.BuildOverview(stats.Sanitize(s.Snapshot()), userGoals, now)
}

// ApplyRemoteChange merges one change feed event into the mirror.
// Events can arrive late or twice, so the merge has to be idempotent:
//   - insert and update both mean "this is the record's state now"
//   - a stale note update loses against a newer local NoteUpdatedAt
//   - delete of an unknown id does nothing
func (s *Store) ApplyRemoteChange(ev feed.ChangeEvent) error {
	switch ev.Type {
	case feed.EventTypeInsert, feed.EventTypeUpdate:
		var incoming activities.Activity
		if err := json.Unmarshal(ev.New, &incoming); err != nil {
			return fmt.Errorf("unmarshal %s event: %w", ev.Type, err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		current, exists := s.byID[incoming.ID]
		if exists && noteIsStale(current, incoming) {
			// keep the locally newer note, take the rest
			incoming.Notes = current.Notes
			incoming.NoteUpdatedAt = current.NoteUpdatedAt
		}
		s.byID[incoming.ID] = incoming
		return nil

	case feed.EventTypeDelete:
		var removed activities.Activity
		if err := json.Unmarshal(ev.Old, &removed); err != nil {
			return fmt.Errorf("unmarshal delete event: %w", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.byID, removed.ID)
		return nil

	default:
		return fmt.Errorf("unknown event type: %s", ev.Type)
	}
}

// noteIsStale reports whether the incoming record carries an older
// note revision than the one already mirrored.
func noteIsStale(current, incoming activities.Activity) bool {
	if current.NoteUpdatedAt == nil {
		return false
	}
	if incoming.NoteUpdatedAt == nil {
		return true
	}
	return incoming.NoteUpdatedAt.Before(*current.NoteUpdatedAt)
}
