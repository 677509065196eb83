package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/signage/internal/model"
)

// DefaultPlaylistID is the well-known fallback loop.
const DefaultPlaylistID = "pl-1"

var seedLocations = []string{
	"Lobi Barat",
	"Lobi Timur",
	"Lantai 1",
	"Lantai 2",
	"Lantai 3",
	"Lantai 4",
	"Lab Selatan",
}

// Seed loads the demo fleet: seven portrait 4K units, four content items,
// the default daily loop and a week-long schedule for the first unit.
// Rows that already exist are skipped.
func Seed(ctx context.Context, store Store, now time.Time) error {
	for i, loc := range seedLocations {
		status := model.StatusOnline
		if i == 4 {
			status = model.StatusOffline
		}
		hb := now.UTC()
		pl := DefaultPlaylistID
		_, err := store.CreateUnit(ctx, model.SignageUnit{
			ID:                fmt.Sprintf("sig-%d", i+1),
			Hostname:          fmt.Sprintf("FTI-SIGNAGE-0%d", i+1),
			MACAddress:        fmt.Sprintf("00:1A:2B:3C:4D:0%d", i+1),
			Location:          loc,
			Resolution:        "2160x3840",
			Status:            status,
			LastHeartbeat:     &hb,
			CurrentPlaylistID: &pl,
		})
		if err != nil && !errors.Is(err, ErrConflict) {
			return fmt.Errorf("seed unit %d: %w", i+1, err)
		}
	}

	content := []model.MediaContent{
		{ID: "c-1", Title: "Faculty Welcome 2024", Type: model.ContentImage, URL: "https://picsum.photos/1080/1920?random=1", DurationSec: 10, CreatedBy: "admin", CreatedAt: time.Date(2023, 10, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "c-2", Title: "Lab Safety Guidelines", Type: model.ContentImage, URL: "https://picsum.photos/1080/1920?random=2", DurationSec: 15, CreatedBy: "safety_officer", CreatedAt: time.Date(2023, 10, 2, 9, 30, 0, 0, time.UTC)},
		{ID: "c-3", Title: "Guest Lecture Teaser", Type: model.ContentVideo, URL: "https://www.w3schools.com/html/mov_bbb.mp4", DurationSec: 30, CreatedBy: "editor", CreatedAt: time.Date(2023, 10, 5, 14, 20, 0, 0, time.UTC)},
		{ID: "c-4", Title: "Exam Schedule Feed", Type: model.ContentHTML, URL: "https://example.com/schedule-widget", DurationSec: 20, CreatedBy: "system", CreatedAt: time.Date(2023, 10, 10, 8, 0, 0, 0, time.UTC)},
	}
	for _, c := range content {
		if _, err := store.GetContent(ctx, c.ID); err == nil {
			continue
		}
		if _, err := store.CreateContent(ctx, c); err != nil {
			return fmt.Errorf("seed content %s: %w", c.ID, err)
		}
	}

	if _, err := store.GetPlaylist(ctx, DefaultPlaylistID); errors.Is(err, ErrNotFound) {
		_, err := store.CreatePlaylist(ctx, model.Playlist{
			ID:   DefaultPlaylistID,
			Name: "Default Daily Loop",
			Items: []model.PlaylistItem{
				{ContentID: "c-1", Order: 1},
				{ContentID: "c-2", Order: 2},
				{ContentID: "c-3", Order: 3},
			},
		})
		if err != nil {
			return fmt.Errorf("seed playlist: %w", err)
		}
	}

	if _, err := store.GetSchedule(ctx, "sch-1"); errors.Is(err, ErrNotFound) {
		_, err := store.CreateSchedule(ctx, model.ScheduleAssignment{
			ID:         "sch-1",
			SignageID:  "sig-1",
			PlaylistID: DefaultPlaylistID,
			StartTime:  now,
			EndTime:    now.Add(7 * 24 * time.Hour),
			Priority:   model.PriorityNormal,
		})
		if err != nil {
			return fmt.Errorf("seed schedule: %w", err)
		}
	}

	log.Info().Int("units", len(seedLocations)).Int("content", len(content)).Msg("seed data loaded")
	return nil
}
