// Package notify delivers best-effort office alerts (new leads, missed
// calls) over SMS and email. Alerts are published to a Kafka outbox topic and
// delivered by a background worker with bounded retries and a DLQ, so a slow
// provider never blocks a webhook or lead-intake request.
package notify

import "time"

// Channel selects the delivery mechanism for a notification.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Message is one office notification on the outbox topic.
type Message struct {
	ID        string    `json:"id"`
	Channel   Channel   `json:"channel"`
	To        string    `json:"to"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	Attempt   int       `json:"attempt"`
	CreatedAt time.Time `json:"created_at"`
}
