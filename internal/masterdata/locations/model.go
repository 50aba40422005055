package locations

import "time"

// Location is a storage place (bin, shelf, cabinet) identified by Code.
type Location struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateInput is the payload accepted by the create endpoint.
type CreateInput struct {
	Code        string `json:"code" validate:"required,max=50"`
	Description string `json:"description" validate:"max=2000"`
}
