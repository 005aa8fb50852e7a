package feed

import "encoding/json"

// EventType can be one of:
//   - insert
//   - update
//   - delete
type EventType string

const (
	EventTypeInsert EventType = "insert"
	EventTypeUpdate EventType = "update"
	EventTypeDelete EventType = "delete"
)

func (et EventType) String() string {
	return string(et)
}

func (et EventType) IsValid() bool {
	switch et {
	case EventTypeInsert, EventTypeUpdate, EventTypeDelete:
		return true
	default:
		return false
	}
}

// ChangeEvent is one committed change to a user's activity collection.
// New carries the record after insert/update, Old the record before
// update/delete. Records stay raw JSON here so the hub does not depend
// on the table packages.
type ChangeEvent struct {
	Type EventType       `json:"eventType"`
	New  json.RawMessage `json:"new,omitempty"`
	Old  json.RawMessage `json:"old,omitempty"`
}

// NewChangeEvent marshals the given records into a ChangeEvent.
// Marshal failures are programming errors (the record types are plain
// structs), so they only get logged at the publish site.
func NewChangeEvent(eventType EventType, newRecord, oldRecord any) (ChangeEvent, error) {
	ev := ChangeEvent{Type: eventType}

	if newRecord != nil {
		newJson, err := json.Marshal(newRecord)
		if err != nil {
			return ChangeEvent{}, err
		}
		ev.New = newJson
	}

	if oldRecord != nil {
		oldJson, err := json.Marshal(oldRecord)
		if err != nil {
			return ChangeEvent{}, err
		}
		ev.Old = oldJson
	}

	return ev, nil
}
