package models

import (
	"time"

	"github.com/google/uuid"
)

// Recording is one recording row for a meeting (created when the voice
// conference reports that recording started, archived by the worker).
type Recording struct {
	ID         uuid.UUID  `json:"id"`
	MeetingID  string     `json:"meeting_id"`
	Filename   string     `json:"filename"`
	StartedAt  time.Time  `json:"started_at"`
	Status     string     `json:"status"` // started, archived
	ArchiveURL string     `json:"archive_url,omitempty"`
	ArchiveKey string     `json:"archive_key,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
