package model

import "time"

// ScheduleAssignment binds a playlist to a unit for [StartTime, EndTime].
// Priority 1 is normal, 10 is an emergency override.
type ScheduleAssignment struct {
	ID         string    `db:"id"          json:"id"`
	SignageID  string    `db:"signage_id"  json:"signage_id"`
	PlaylistID string    `db:"playlist_id" json:"playlist_id"`
	StartTime  time.Time `db:"start_time"  json:"start_time"`
	EndTime    time.Time `db:"end_time"    json:"end_time"`
	Priority   int       `db:"priority"    json:"priority"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}

const (
	PriorityNormal    = 1
	PriorityEmergency = 10
)

// Active reports whether at falls inside the assignment window, both ends
// inclusive.
func (s ScheduleAssignment) Active(at time.Time) bool {
	return !at.Before(s.StartTime) && !at.After(s.EndTime)
}
