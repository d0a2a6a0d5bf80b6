package entities

import (
	"github.com/google/uuid"
	"time"
)

type RecordingSession struct {
	ID                 uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SessionID          string     `json:"session_id" gorm:"type:varchar(64);not null;uniqueIndex:unique_session_id"`
	MimeType           string     `json:"mime_type" gorm:"type:varchar(100)"`
	Status             string     `json:"status" gorm:"type:varchar(20);not null;default:'RECORDING'"`
	StartedAt          *time.Time `json:"started_at" gorm:"type:timestamptz"`
	EndedAt            *time.Time `json:"ended_at" gorm:"type:timestamptz"`
	TotalChunks        int        `json:"total_chunks" gorm:"type:integer;default:0"`
	ManifestObjectName *string    `json:"manifest_object_name" gorm:"type:varchar(500)"`
	CreatedAt          time.Time  `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time  `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (RecordingSession) TableName() string {
	return "recording_sessions"
}
