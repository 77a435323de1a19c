package patient

import (
	"time"

	"github.com/google/uuid"
)

// Insurer is a health insurance provider ("obra social"). Patients without
// one are private.
type Insurer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Patient is a person that books appointments. Email and Phone decide which
// notification channels can reach them; Phone is stored in E.164.
type Patient struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     *string    `json:"email,omitempty"`
	Phone     *string    `json:"phone,omitempty"`
	InsurerID *uuid.UUID `json:"insurer_id,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type ListFilter struct {
	// Query matches name, email or phone as a case-insensitive substring.
	Query           string
	IncludeInactive bool
	Limit           int
	Offset          int
}

type Page struct {
	Items  []Patient `json:"items"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}
