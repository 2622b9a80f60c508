package stream

import "github.com/goccy/go-json"

// EventType tells what an Event carries.
type EventType string

const (
	// EventData carries one decoded record.
	EventData EventType = "data"
	// EventError reports a transport failure. It is the last event.
	EventError EventType = "error"
	// EventEnd reports that the server closed the stream. It is the last event.
	EventEnd EventType = "end"
)

// Event is one item delivered to a Listener.
type Event struct {
	Type EventType
	// Raw is the JSON text of the record (EventData).
	Raw []byte
	// Value is the record decoded into generic Go values (EventData).
	Value any
	// Err is the failure (EventError).
	Err error
}

// Decode unmarshals the record into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Raw, v)
}
