package entities

import "time"

// Snapshot is the durable record of the last approved content digest for a URL.
type Snapshot struct {
	URL       string    `json:"url"`
	Hash      string    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`
}
