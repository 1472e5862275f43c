package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Dashboard is the composite view of one user's data across backends.
type Dashboard struct {
	Status          string          `json:"status"`
	UserID          uuid.UUID       `json:"user_id"`
	Connections     json.RawMessage `json:"connections"`
	Messages        json.RawMessage `json:"messages"`
	Classifications json.RawMessage `json:"classifications"`
}
