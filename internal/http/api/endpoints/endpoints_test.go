package endpoints_test

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/signage/internal/cache"
	"github.com/Nixie-Tech-LLC/signage/internal/db"
	"github.com/Nixie-Tech-LLC/signage/internal/heartbeat"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api"
	"github.com/Nixie-Tech-LLC/signage/internal/http/api/endpoints"
	"github.com/Nixie-Tech-LLC/signage/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/signage/internal/model"
	"github.com/Nixie-Tech-LLC/signage/internal/schedule"
	"github.com/Nixie-Tech-LLC/signage/internal/storage"
)

const testSecret = "test-secret"

// 1x1 transparent PNG
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type testServer struct {
	router    *gin.Engine
	store     db.Store
	uploadDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	store := db.NewTestStore(t)
	require.NoError(t, db.Seed(ctx, store, time.Now().UTC().Add(-time.Hour)))

	c, err := cache.NewLocal(64)
	require.NoError(t, err)
	resolver := schedule.NewResolver(store, c, db.DefaultPlaylistID)
	hb := heartbeat.NewService(store, heartbeat.DefaultTimeout)

	uploadDir := t.TempDir()
	files := storage.NewLocalStorage(uploadDir)

	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("player.html").Parse(`unit={{.Unit}} host={{.Hostname}}`)))

	api.MountGroup(r, api.GroupConfig{Prefix: "/api"},
		endpoints.SignageModule(store),
		endpoints.DeviceModule(store, resolver, hb),
		endpoints.ContentModule(store, files, resolver),
		endpoints.PlaylistModule(store, resolver),
		endpoints.ScheduleModule(store),
		endpoints.StatsModule(store),
		endpoints.AuthPublicModule(testSecret, store),
	)
	api.MountGroup(r, api.GroupConfig{Prefix: "/api", Auth: true, SecretKey: testSecret, Users: store},
		endpoints.AuthSessionModule(testSecret, store),
	)
	api.MountGroup(r, api.GroupConfig{},
		endpoints.HealthModule(store),
		endpoints.PlayerModule(store, "/api", 30, 60),
	)

	return &testServer{router: r, store: store, uploadDir: uploadDir}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, filename, contentType string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/content", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSignageEndpoints(t *testing.T) {
	srv := newTestServer(t)

	t.Run("list seeded units", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/signage", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]model.SignageUnit](t, w), 7)
	})

	t.Run("lookup by id or hostname", func(t *testing.T) {
		byID := decode[model.SignageUnit](t, srv.do(t, http.MethodGet, "/api/signage/sig-2", nil))
		byHost := decode[model.SignageUnit](t, srv.do(t, http.MethodGet, "/api/signage/FTI-SIGNAGE-02", nil))
		assert.Equal(t, byID.ID, byHost.ID)
		assert.Equal(t, "FTI-SIGNAGE-02", byID.Hostname)
	})

	t.Run("unknown unit is 404", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/signage/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("create, update and delete", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/signage", map[string]any{"hostname": "LAB-9", "location": "Lab"})
		require.Equal(t, http.StatusCreated, w.Code)
		created := decode[model.SignageUnit](t, w)
		assert.Equal(t, model.StatusOffline, created.Status)

		w = srv.do(t, http.MethodPost, "/api/signage", map[string]any{"hostname": "LAB-9"})
		assert.Equal(t, http.StatusConflict, w.Code)

		w = srv.do(t, http.MethodPut, "/api/signage/LAB-9", map[string]any{"status": "MAINTENANCE"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, model.StatusMaintenance, decode[model.SignageUnit](t, w).Status)

		w = srv.do(t, http.MethodPut, "/api/signage/LAB-9", map[string]any{"status": "BROKEN"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = srv.do(t, http.MethodDelete, "/api/signage/"+created.ID, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		w = srv.do(t, http.MethodGet, "/api/signage/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("heartbeat marks unit online", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/signage/FTI-SIGNAGE-05/heartbeat", map[string]any{"current_playlist_id": "pl-1"})
		require.Equal(t, http.StatusOK, w.Code)
		unit := decode[model.SignageUnit](t, w)
		assert.Equal(t, model.StatusOnline, unit.Status)
		require.NotNil(t, unit.LastHeartbeat)

		w = srv.do(t, http.MethodPost, "/api/signage/ghost/heartbeat", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestResolvedPlaylist(t *testing.T) {
	srv := newTestServer(t)

	t.Run("id and hostname resolve identically", func(t *testing.T) {
		a := decode[schedule.Resolution](t, srv.do(t, http.MethodGet, "/api/signage/sig-1/playlist", nil))
		b := decode[schedule.Resolution](t, srv.do(t, http.MethodGet, "/api/signage/FTI-SIGNAGE-01/playlist", nil))
		assert.Equal(t, a.Version, b.Version)
		assert.Equal(t, schedule.SourceSchedule, a.Source)
		assert.Len(t, a.Items, 3)
	})

	t.Run("etag round trip", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/signage/sig-3/playlist", nil)
		require.Equal(t, http.StatusOK, w.Code)
		etag := w.Header().Get("ETag")
		require.NotEmpty(t, etag)
		assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

		w = srv.do(t, http.MethodGet, "/api/signage/sig-3/playlist", nil, "If-None-Match", etag)
		assert.Equal(t, http.StatusNotModified, w.Code)
		assert.Empty(t, w.Body.String())

		w = srv.do(t, http.MethodGet, "/api/signage/sig-3/playlist", nil, "X-If-None-Match", etag)
		assert.Equal(t, http.StatusNotModified, w.Code)

		w = srv.do(t, http.MethodGet, "/api/signage/sig-3/playlist", nil, "If-None-Match", `"stale"`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown unit gets an empty resolution", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/signage/NEW-UNIT/playlist", nil)
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[schedule.Resolution](t, w)
		assert.Equal(t, schedule.SourceNone, res.Source)
		assert.Empty(t, res.Items)
	})

	t.Run("at must be RFC3339", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/signage/sig-1/playlist?at=yesterday", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = srv.do(t, http.MethodGet, "/api/signage/sig-1/playlist?at=2000-01-01T00:00:00Z", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, schedule.SourceDefault, decode[schedule.Resolution](t, w).Source)
	})
}

func TestScheduleRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/playlists", map[string]any{
		"name":  "Emergency",
		"items": []map[string]any{{"content_id": "c-4", "order": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	emergency := decode[model.Playlist](t, w)

	before := decode[schedule.Resolution](t, srv.do(t, http.MethodGet, "/api/signage/sig-2/playlist", nil))
	assert.Equal(t, schedule.SourceDefault, before.Source)

	now := time.Now().UTC()
	w = srv.do(t, http.MethodPost, "/api/schedule", map[string]any{
		"signage_id":  "FTI-SIGNAGE-02",
		"playlist_id": emergency.ID,
		"start_time":  now.Add(-time.Minute).Format(time.RFC3339),
		"end_time":    now.Add(time.Hour).Format(time.RFC3339),
		"priority":    model.PriorityEmergency,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	sc := decode[model.ScheduleAssignment](t, w)
	assert.Equal(t, "sig-2", sc.SignageID)

	during := decode[schedule.Resolution](t, srv.do(t, http.MethodGet, "/api/signage/sig-2/playlist", nil))
	assert.Equal(t, schedule.SourceSchedule, during.Source)
	assert.Equal(t, emergency.ID, during.PlaylistID)
	require.Len(t, during.Items, 1)
	assert.Equal(t, "c-4", during.Items[0].ID)

	listed := decode[[]model.ScheduleAssignment](t, srv.do(t, http.MethodGet, "/api/schedule?signage_id=sig-2", nil))
	assert.Len(t, listed, 1)

	w = srv.do(t, http.MethodDelete, "/api/schedule/"+sc.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	after := decode[schedule.Resolution](t, srv.do(t, http.MethodGet, "/api/signage/sig-2/playlist", nil))
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.PlaylistID, after.PlaylistID)

	t.Run("validation", func(t *testing.T) {
		base := map[string]any{
			"signage_id":  "sig-2",
			"playlist_id": emergency.ID,
			"start_time":  now.Format(time.RFC3339),
			"end_time":    now.Add(-time.Hour).Format(time.RFC3339),
		}
		assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodPost, "/api/schedule", base).Code)

		base["end_time"] = now.Add(time.Hour).Format(time.RFC3339)
		base["priority"] = 11
		assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodPost, "/api/schedule", base).Code)

		delete(base, "priority")
		base["playlist_id"] = "pl-missing"
		assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodPost, "/api/schedule", base).Code)

		base["playlist_id"] = emergency.ID
		base["signage_id"] = "ghost"
		assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodPost, "/api/schedule", base).Code)
	})
}

func TestPlaylistEditsInvalidate(t *testing.T) {
	srv := newTestServer(t)

	before := decode[schedule.Resolution](t, srv.do(t, http.MethodGet, "/api/signage/sig-3/playlist", nil))
	require.Len(t, before.Items, 3)

	w := srv.do(t, http.MethodPost, "/api/playlists/pl-1/items", map[string]any{"content_id": "c-4", "order": 0})
	require.Equal(t, http.StatusCreated, w.Code)

	after := decode[schedule.Resolution](t, srv.do(t, http.MethodGet, "/api/signage/sig-3/playlist", nil))
	require.Len(t, after.Items, 4)
	assert.Equal(t, "c-4", after.Items[0].ID)
	assert.NotEqual(t, before.Version, after.Version)

	w = srv.do(t, http.MethodDelete, "/api/playlists/pl-1/items/c-4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	restored := decode[schedule.Resolution](t, srv.do(t, http.MethodGet, "/api/signage/sig-3/playlist", nil))
	assert.Equal(t, before.Version, restored.Version)

	w = srv.do(t, http.MethodPost, "/api/playlists/pl-1/items", map[string]any{"content_id": "c-404"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = srv.do(t, http.MethodPost, "/api/playlists", map[string]any{
		"name":  "Broken",
		"items": []map[string]any{{"content_id": "c-404"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodDelete, "/api/content/c-2", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	pruned := decode[schedule.Resolution](t, srv.do(t, http.MethodGet, "/api/signage/sig-3/playlist", nil))
	assert.Len(t, pruned.Items, 2)
}

func TestContentUpload(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	countContent := func() int {
		all, err := srv.store.ListContent(ctx)
		require.NoError(t, err)
		return len(all)
	}
	countFiles := func() int {
		entries, err := os.ReadDir(srv.uploadDir)
		require.NoError(t, err)
		return len(entries)
	}

	t.Run("rejected type leaves no trace", func(t *testing.T) {
		contentBefore, filesBefore := countContent(), countFiles()

		w := srv.upload(t, "notes.txt", "image/png", []byte("just some plain text"), nil)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

		assert.Equal(t, contentBefore, countContent())
		assert.Equal(t, filesBefore, countFiles())
	})

	t.Run("missing file", func(t *testing.T) {
		w := srv.upload(t, "", "", nil, map[string]string{"title": "x"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad duration", func(t *testing.T) {
		w := srv.upload(t, "pixel.png", "image/png", pngPixel, map[string]string{"duration_sec": "soon"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("image accepted with defaults", func(t *testing.T) {
		before := countContent()
		w := srv.upload(t, "pixel.png", "application/octet-stream", pngPixel, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		c := decode[model.MediaContent](t, w)
		assert.Equal(t, model.ContentImage, c.Type)
		assert.Equal(t, "image/png", c.MimeType)
		assert.Equal(t, "pixel.png", c.Title)
		assert.Equal(t, model.DefaultDurationSec, c.DurationSec)
		assert.Equal(t, "admin", c.CreatedBy)
		assert.Equal(t, int64(len(pngPixel)), c.SizeBytes)
		assert.Equal(t, before+1, countContent())

		_, err := os.Stat(filepath.Join(srv.uploadDir, filepath.Base(c.URL)))
		require.NoError(t, err)

		w = srv.do(t, http.MethodDelete, "/api/content/"+c.ID, nil)
		require.Equal(t, http.StatusNoContent, w.Code)
		_, err = os.Stat(filepath.Join(srv.uploadDir, filepath.Base(c.URL)))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestStats(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[model.SystemStats](t, w)
	assert.Equal(t, 7, stats.TotalUnits)
	assert.Equal(t, 6, stats.OnlineUnits)
	assert.InDelta(t, 85.7, stats.UptimePercentage, 0.01)
	assert.Equal(t, "0 B", stats.StorageUsed)
}

func TestAuth(t *testing.T) {
	srv := newTestServer(t)
	hash, err := middleware.HashPassword("s3cret")
	require.NoError(t, err)
	_, err = srv.store.CreateUser(context.Background(), "operator", hash)
	require.NoError(t, err)

	w := srv.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "operator", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = srv.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "nobody", "password": "s3cret"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(t, http.MethodPost, "/api/auth/login", map[string]any{"username": "operator", "password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	w = srv.do(t, http.MethodGet, "/api/auth/current_profile", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(t, http.MethodGet, "/api/auth/current_profile", nil, "Authorization", "Bearer "+login.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var profile struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "operator", profile.Username)
}

func TestHealthAndPlayerPage(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = srv.do(t, http.MethodGet, "/player/sig-4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "unit=sig-4 host=FTI-SIGNAGE-04", w.Body.String())

	w = srv.do(t, http.MethodGet, "/player/NEW-UNIT", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "unit=NEW-UNIT host=NEW-UNIT", w.Body.String())
}
