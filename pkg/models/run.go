package models

import (
	"encoding/json"
	"time"
)

// RunRecord is the journaled snapshot of one contribution run.
type RunRecord struct {
	ID        string          `json:"id"         validate:"required"`
	Owner     string          `json:"owner"      validate:"required"`
	Account   string          `json:"account"`
	Amount    string          `json:"amount"`
	Status    string          `json:"status"     validate:"required"`
	Step      int             `json:"step"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
