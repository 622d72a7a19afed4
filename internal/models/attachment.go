package models

import "time"

// Attachment represents an uploaded object.
type Attachment struct {
	ID        int
	Bucket    string
	Path      string
	Filename  string
	MimeType  string
	Size      int64
	CreatedAt time.Time
}
