package types

import "github.com/google/uuid"

// Candidate is the slice of a user profile the orchestrator reads when
// assessing no-show risk.
type Candidate struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone,omitempty"`
}
