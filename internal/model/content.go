package model

import "time"

type ContentType string

const (
	ContentImage        ContentType = "IMAGE"
	ContentVideo        ContentType = "VIDEO"
	ContentHTML         ContentType = "HTML"
	ContentAnnouncement ContentType = "ANNOUNCEMENT"
)

// DefaultDurationSec is used for uploads without an explicit duration and by
// the player when an item carries a non-positive one.
const DefaultDurationSec = 10

func (t ContentType) Valid() bool {
	switch t {
	case ContentImage, ContentVideo, ContentHTML, ContentAnnouncement:
		return true
	}
	return false
}

type MediaContent struct {
	ID          string      `db:"id"           json:"id"`
	Title       string      `db:"title"        json:"title"`
	Type        ContentType `db:"type"         json:"type"`
	URL         string      `db:"url"          json:"url"`
	DurationSec int         `db:"duration_sec" json:"duration_sec"`
	MimeType    string      `db:"mime_type"    json:"mime_type,omitempty"`
	SizeBytes   int64       `db:"size_bytes"   json:"size_bytes"`
	CreatedAt   time.Time   `db:"created_at"   json:"created_at"`
	CreatedBy   string      `db:"created_by"   json:"created_by"`
}
