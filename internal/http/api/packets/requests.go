package packets

import "time"

type CreateUnitRequest struct {
	Hostname   string `json:"hostname" binding:"required"`
	MACAddress string `json:"mac_address"`
	Location   string `json:"location"`
	Resolution string `json:"resolution"`
	Status     string `json:"status" binding:"omitempty,oneof=ONLINE OFFLINE MAINTENANCE ERROR"`
}

// UpdateUnitRequest leaves nil fields unchanged.
type UpdateUnitRequest struct {
	Hostname   *string `json:"hostname" binding:"omitempty,min=1"`
	MACAddress *string `json:"mac_address"`
	Location   *string `json:"location"`
	Resolution *string `json:"resolution"`
	Status     *string `json:"status" binding:"omitempty,oneof=ONLINE OFFLINE MAINTENANCE ERROR"`
}

type HeartbeatRequest struct {
	CurrentPlaylistID *string `json:"current_playlist_id"`
}

type PlaylistItemRequest struct {
	ContentID string `json:"content_id" binding:"required"`
	Order     int    `json:"order"`
}

type CreatePlaylistRequest struct {
	Name  string                `json:"name" binding:"required"`
	Items []PlaylistItemRequest `json:"items" binding:"dive"`
}

type AddPlaylistItemRequest struct {
	ContentID string `json:"content_id" binding:"required"`
	Order     int    `json:"order"`
}

type CreateScheduleRequest struct {
	SignageID  string    `json:"signage_id" binding:"required"`
	PlaylistID string    `json:"playlist_id" binding:"required"`
	StartTime  time.Time `json:"start_time" binding:"required"` // RFC3339
	EndTime    time.Time `json:"end_time" binding:"required"`
	Priority   int       `json:"priority" binding:"omitempty,min=1,max=10"`
}

// body for logging in
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
