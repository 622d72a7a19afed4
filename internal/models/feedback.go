package models

import "time"

// Feedback is a contact-form submission.
type Feedback struct {
	ID        string
	Name      string
	Email     string
	Message   string
	Status    string
	CreatedAt time.Time
}
