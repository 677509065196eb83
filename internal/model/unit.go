package model

import "time"

type UnitStatus string

const (
	StatusOnline      UnitStatus = "ONLINE"
	StatusOffline     UnitStatus = "OFFLINE"
	StatusMaintenance UnitStatus = "MAINTENANCE"
	StatusError       UnitStatus = "ERROR"
)

// Valid reports whether s is one of the known unit states.
func (s UnitStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusMaintenance, StatusError:
		return true
	}
	return false
}

// SignageUnit represents a display device in the system. Lookups accept
// either ID or Hostname.
type SignageUnit struct {
	ID                string     `db:"id"                  json:"id"`
	Hostname          string     `db:"hostname"            json:"hostname"`
	MACAddress        string     `db:"mac_address"         json:"mac_address"`
	Location          string     `db:"location"            json:"location"`
	Resolution        string     `db:"resolution"          json:"resolution"`
	Status            UnitStatus `db:"status"              json:"status"`
	LastHeartbeat     *time.Time `db:"last_heartbeat"      json:"last_heartbeat,omitempty"`
	CurrentPlaylistID *string    `db:"current_playlist_id" json:"current_playlist_id,omitempty"`
	CreatedAt         time.Time  `db:"created_at"          json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"          json:"updated_at"`
}
