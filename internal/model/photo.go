package model

import "time"

// WorkPhoto is an image of past work uploaded by a professional.
type WorkPhoto struct {
	ID             uint64    `json:"id"`
	ProfessionalID uint64    `json:"professional_id"`
	Filename       string    `json:"filename"`
	URL            string    `json:"url"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
