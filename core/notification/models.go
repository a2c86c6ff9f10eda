package notification

import "time"

// Notification is a fan-out record for a single recipient. It is never
// mutated after creation except for the Seen flag, by its recipient.
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Text        string    `json:"text"`
	Link        string    `json:"link"`
	Seen        bool      `json:"seen"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}
