package model

import "time"

type Playlist struct {
	ID        string         `db:"id"         json:"id"`
	Name      string         `db:"name"       json:"name"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	Items     []PlaylistItem `db:"-"          json:"items"`
}

// PlaylistItem references content by id. Seq records insertion order and
// breaks ties between equal Order values.
type PlaylistItem struct {
	PlaylistID string `db:"playlist_id" json:"-"`
	ContentID  string `db:"content_id"  json:"content_id"`
	Order      int    `db:"position"    json:"order"`
	Seq        int64  `db:"seq"         json:"-"`
}
