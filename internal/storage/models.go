package storage

import "time"

// SessionRecord is one conversation session.
type SessionRecord struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Turns     int
}

// IngestRecord tracks what was last indexed for a source record.
type IngestRecord struct {
	RecordID    string // id field of the source record
	Collection  string
	PointID     string // vector store point id (UUIDv5 of RecordID)
	ContentHash string // SHA256 hex of the embedded text and payload
	UpdatedAt   time.Time
}
