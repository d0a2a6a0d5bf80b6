package dto

import "github.com/google/uuid"

// Manifest is the terminal record written to {sessionId}/manifest.json.
// Timestamps are milliseconds since epoch. A later write for the same
// session overwrites the earlier one, last writer wins.
type Manifest struct {
	SessionID   string `json:"sessionId"`
	TotalChunks int    `json:"totalChunks"`
	MimeType    string `json:"mimeType"`
	StartedAt   int64  `json:"startedAt"`
	EndedAt     int64  `json:"endedAt"`
	UploadedAt  int64  `json:"uploadedAt"`
	Bucket      string `json:"bucket"`
	Version     int    `json:"version"`
}

const ManifestVersion = 1

// MergeRequestMessage is published to the recording exchange once a
// manifest has been written, for the downstream merge worker.
type MergeRequestMessage struct {
	JobId       uuid.UUID `json:"jobId"`
	SessionId   string    `json:"sessionId"`
	TotalChunks int       `json:"totalChunks"`
	ManifestKey string    `json:"manifestKey"`
}

type ManifestRequest struct {
	TotalChunks int    `json:"totalChunks" binding:"gte=0"`
	MimeType    string `json:"mimeType" binding:"required"`
	StartedAt   int64  `json:"startedAt" binding:"required"`
	EndedAt     int64  `json:"endedAt" binding:"required"`
}

type UploadResponse struct {
	Key string `json:"key"`
	Url string `json:"url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type AssistantHealthResponse struct {
	Healthy            bool `json:"healthy"`
	Assistants         int  `json:"assistants"`
	AssistantReachable bool `json:"assistantReachable"`
}
