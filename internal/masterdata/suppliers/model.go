package suppliers

import (
	"time"
)

// Supplier represents a supplier entity. Name is the natural key used by
// CSV imports and is compared case-sensitively.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput is the payload accepted by the create endpoint.
type CreateInput struct {
	Name string `json:"name" validate:"required,max=255"`
}
