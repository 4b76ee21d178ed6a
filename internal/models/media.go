package models

import "time"

// MediaType distinguishes photos from videos
type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
)

// MediaItem is a reference to an uploaded media asset attached to an athlete.
// Entries are append-only except for explicit per-item deletion.
type MediaItem struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Type       MediaType `json:"type"`
	Caption    string    `json:"caption,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	MimeType   string    `json:"mime_type,omitempty"`
}
