package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event types handled by the webhook. Anything else is acknowledged as a no-op.
const (
	EventCallCompleted   = "call.completed"
	EventMessageReceived = "message.received"
)

// ErrNoEventObject indicates an inbound event carried no decodable payload
// object under either supported shape.
var ErrNoEventObject = errors.New("event has no payload object")

// InboundEvent is the envelope OpenPhone posts to the webhook endpoint.
// Data is kept raw because the payload object may sit at either of two
// nesting levels depending on the event kind.
type InboundEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EventObject is the provider payload carried by an inbound event. Call
// events populate Status/AnsweredAt/Voicemail; message events populate Body.
type EventObject struct {
	From       string     `json:"from"`
	To         string     `json:"to"`
	Status     string     `json:"status"`
	AnsweredAt string     `json:"answeredAt"`
	Voicemail  *Voicemail `json:"voicemail"`
	Body       string     `json:"body"`
}

// Voicemail holds the recording metadata attached to an unanswered call.
type Voicemail struct {
	Duration int `json:"duration"` // seconds
}

// Object extracts the payload object from the event data. OpenPhone nests the
// object under data.object for most events, but some deliveries place the
// fields directly on data; both shapes are checked in that order. Returns
// ErrNoEventObject when neither shape decodes.
func (e InboundEvent) Object() (EventObject, error) {
	if len(e.Data) == 0 {
		return EventObject{}, ErrNoEventObject
	}

	var wrapper struct {
		Object json.RawMessage `json:"object"`
	}
	if err := json.Unmarshal(e.Data, &wrapper); err == nil && len(wrapper.Object) > 0 && string(wrapper.Object) != "null" {
		var obj EventObject
		if err := json.Unmarshal(wrapper.Object, &obj); err == nil {
			return obj, nil
		}
	}

	var obj EventObject
	if err := json.Unmarshal(e.Data, &obj); err != nil {
		return EventObject{}, fmt.Errorf("%w: %s", ErrNoEventObject, err)
	}
	return obj, nil
}

// CallOutcome describes a completed call for activity logging.
type CallOutcome struct {
	From             string
	Missed           bool
	VoicemailSeconds int
}

// Missed reports whether a completed call went unanswered. A call counts as
// missed when its status is a no-answer state or when no answered timestamp
// was recorded.
func (o EventObject) Missed() bool {
	switch o.Status {
	case "no-answer", "busy", "failed", "missed", "voicemail":
		return true
	}
	return o.AnsweredAt == ""
}

// VoicemailSeconds returns the voicemail duration, defaulting to zero when no
// voicemail was left.
func (o EventObject) VoicemailSeconds() int {
	if o.Voicemail == nil {
		return 0
	}
	return o.Voicemail.Duration
}
