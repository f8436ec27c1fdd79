package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Report statuses.
const (
	ReportStatusNew       = "new"
	ReportStatusEscalated = "escalated"
	ReportStatusResolved  = "resolved"
)

// Report is an abuse report filed from the community page against another
// player, persisted in PostgreSQL (unlike room state, which is ephemeral).
type Report struct {
	ID         string `gorm:"primaryKey" json:"id"`
	ReporterID string `json:"reporterId"` // anon ID of the reporter
	TargetName string `json:"targetName"` // display name of the reported player
	RoomCode   string `json:"roomCode"`
	Category   string `json:"category"`
	Message    string `json:"message"`
	// Samples holds offending chat/profile snippets attached as evidence.
	Samples   pq.StringArray `gorm:"type:text[]" json:"samples,omitempty"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
}

// BeforeCreate generates a report ID if one is not set.
func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}
