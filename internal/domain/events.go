package domain

import "time"

// Notification is a message addressed to an account holder.
type Notification struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
