package journal

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is a profile write waiting for the primary store to come back.
type Entry struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Profile   json.RawMessage `json:"profile"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (e *Entry) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}
