package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/freesound-sampler-go/api/handlers"
	"github.com/yourusername/freesound-sampler-go/internal/app"
	"github.com/yourusername/freesound-sampler-go/internal/domain"
	"github.com/yourusername/freesound-sampler-go/internal/events"
	"github.com/yourusername/freesound-sampler-go/internal/infrastructure"
	"github.com/yourusername/freesound-sampler-go/pkg/logger"
)

var previewBody = bytes.Repeat([]byte("OggS"), 256)

// newFreesoundServer fakes the search API and the preview CDN. Any query
// returns 20 sounds except "silence", which returns none.
func newFreesoundServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search/text"):
			results := []map[string]interface{}{}
			if r.URL.Query().Get("query") != "silence" {
				for i := 1; i <= 20; i++ {
					results = append(results, map[string]interface{}{
						"id":       i,
						"name":     fmt.Sprintf("hit %d", i),
						"username": "drummer",
						"license":  "http://creativecommons.org/licenses/by/4.0/",
						"previews": map[string]string{
							"preview-hq-ogg": fmt.Sprintf("%s/sounds/%d.ogg", srv.URL, i),
						},
					})
				}
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"count": len(results), "results": results})
		case strings.HasPrefix(r.URL.Path, "/sounds/"):
			w.Header().Set("Content-Length", strconv.Itoa(len(previewBody)))
			w.Write(previewBody)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type testServer struct {
	router  *gin.Engine
	manager *app.DownloadManager
	fabric  *events.Fabric
	repo    *infrastructure.SQLiteRepository
	dir     string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	base := t.TempDir()
	config := domain.DefaultConfig()
	config.Download.BaseDir = base
	config.Download.CleanupOnExit = false
	config.Freesound.BaseURL = newFreesoundServer(t).URL

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "info", LogsDir: config.Download.LogsPath()})
	require.NoError(t, err)
	t.Cleanup(func() { multiLog.Close() })
	logAdapter := logger.NewLoggerAdapter(multiLog, zap.NewNop())

	repo, err := infrastructure.NewSQLiteRepository(filepath.Join(base, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	fabric := events.NewFabric(nil)
	t.Cleanup(fabric.Close)

	manager := app.NewDownloadManager(
		infrastructure.NewHTTPFetcher(5*time.Second),
		fabric,
		app.NewMetadataWriter(nil),
		repo,
		&config.Download,
		nil,
	)
	manager.SetLoggerAdapter(logAdapter)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		manager.Shutdown(ctx)
	})

	search := app.NewSearchService(
		infrastructure.NewFreesoundClient(&config.Freesound, 5*time.Second, nil),
		manager,
		repo,
		&config.Freesound,
		config.Download.SoundsPath(),
		nil,
	)
	sampler := app.NewSamplerBuilder(&config.Sampler, config.Download.FilePrefix, manager, nil)
	fabric.Subscribe(sampler)

	router := SetupRouterWithMultiLogger(Services{
		Searcher:  search,
		Batches:   manager,
		Bookmarks: search,
		Pads:      sampler,
		History:   repo,
		DB:        repo,
		Fabric:    fabric,
		LogsDir:   config.Download.LogsPath(),
	}, logAdapter)

	return &testServer{
		router:  router,
		manager: manager,
		fabric:  fabric,
		repo:    repo,
		dir:     config.Download.SoundsPath(),
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) wait(t *testing.T) domain.BatchSnapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap, err := s.manager.Wait(ctx)
	require.NoError(t, err)
	return snap
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestAPI_Health(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	decode(t, w, &health)
	assert.Equal(t, "ok", health["status"])
	assert.Nil(t, health["batch"])

	w = s.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_Search(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/search?q=kick", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result struct {
		Query  string                   `json:"query"`
		Count  int                      `json:"count"`
		Sounds []domain.SoundDescriptor `json:"sounds"`
	}
	decode(t, w, &result)
	assert.Equal(t, "kick", result.Query)
	assert.Equal(t, 16, result.Count)
	assert.Len(t, result.Sounds, 16)

	w = s.do(t, http.MethodGet, "/api/v1/search?q=", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/search?q=silence", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_BatchLifecycle(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/batches/current", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/batches", handlers.StartBatchRequest{Query: "snare"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var started domain.BatchSnapshot
	decode(t, w, &started)
	assert.Len(t, started.Tasks, 16)
	assert.Equal(t, s.dir, started.Directory)

	final := s.wait(t)
	assert.Equal(t, started.ID, final.ID)
	assert.Equal(t, domain.BatchStateCompleted, final.State)
	assert.Equal(t, 16, final.Progress.CompletedCount)

	w = s.do(t, http.MethodGet, "/api/v1/batches/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var current domain.BatchSnapshot
	decode(t, w, &current)
	assert.Equal(t, domain.BatchStateCompleted, current.State)

	// pads are built by a fabric listener, asynchronously
	assert.Eventually(t, func() bool {
		w := s.do(t, http.MethodGet, "/api/v1/pads", nil)
		var layout domain.PadLayout
		return json.Unmarshal(w.Body.Bytes(), &layout) == nil &&
			layout.BatchID == started.ID && len(layout.Pads) == 16
	}, 5*time.Second, 20*time.Millisecond)

	w = s.do(t, http.MethodGet, "/api/v1/pads/note/36", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pad domain.Pad
	decode(t, w, &pad)
	assert.Equal(t, 0, pad.Index)
	assert.Equal(t, "by", pad.LicenseShort)

	w = s.do(t, http.MethodGet, "/api/v1/pads/note/20", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/pads/note/200", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/batches", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []domain.BatchRecord
	decode(t, w, &history)
	require.Len(t, history, 1)
	assert.Equal(t, started.ID, history[0].ID)
	assert.Equal(t, domain.BatchStateCompleted, history[0].State)
	assert.True(t, history[0].SidecarWritten)

	w = s.do(t, http.MethodGet, "/api/v1/batches/"+started.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/batches/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/batches/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats domain.BatchStats
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(16), stats.SoundsDownloaded)

	w = s.do(t, http.MethodGet, "/api/v1/batches/"+started.ID+"/log", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var batchLog struct {
		Entries []logger.LogEntry `json:"entries"`
	}
	decode(t, w, &batchLog)
	var messages []string
	for _, e := range batchLog.Entries {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "batch_started")
	assert.Contains(t, messages, "batch_completed")

	// cancelling a finished batch is a no-op
	w = s.do(t, http.MethodPost, "/api/v1/batches/current/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &current)
	assert.Equal(t, domain.BatchStateCompleted, current.State)
}

func TestAPI_StartValidation(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/batches", handlers.StartBatchRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/batches", handlers.StartBatchRequest{
		Sounds: []domain.SoundDescriptor{{ID: "1"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/batches", handlers.StartBatchRequest{Query: "silence"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/batches/current/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_Bookmarks(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/search?q=hat", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		Sounds []domain.SoundDescriptor `json:"sounds"`
	}
	decode(t, w, &result)

	var ids []string
	for _, sound := range result.Sounds[:3] {
		w = s.do(t, http.MethodPost, "/api/v1/bookmarks", map[string]string{
			"id":          sound.ID,
			"name":        sound.Name,
			"author":      sound.Author,
			"license":     sound.License,
			"preview_url": sound.PreviewURL,
			"query":       "hat",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var bookmark domain.Bookmark
		decode(t, w, &bookmark)
		assert.Equal(t, sound.ID, bookmark.FreesoundID)
		ids = append(ids, bookmark.ID)
	}

	w = s.do(t, http.MethodPost, "/api/v1/bookmarks", map[string]string{"id": "99"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/bookmarks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []domain.Bookmark
	decode(t, w, &listed)
	assert.Len(t, listed, 3)

	w = s.do(t, http.MethodPost, "/api/v1/bookmarks/load", map[string][]string{"ids": {ids[1]}})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var snap domain.BatchSnapshot
	decode(t, w, &snap)
	assert.Equal(t, "bookmarks", snap.Query)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, result.Sounds[1].ID, snap.Tasks[0].Descriptor.ID)
	s.wait(t)

	// empty body loads everything
	w = s.do(t, http.MethodPost, "/api/v1/bookmarks/load", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	decode(t, w, &snap)
	assert.Len(t, snap.Tasks, 3)
	s.wait(t)

	w = s.do(t, http.MethodDelete, "/api/v1/bookmarks/"+ids[0], nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, "/api/v1/bookmarks/"+ids[0], nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/bookmarks/load", map[string][]string{"ids": {ids[0]}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_Logs(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/logs/categories", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/logs/queue", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/logs/batch?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/logs/batch", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs struct {
		Count int `json:"count"`
	}
	decode(t, w, &logs)
	assert.Equal(t, 0, logs.Count)

	w = s.do(t, http.MethodGet, "/api/v1/logs/error/export?date=2001-01-01", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type streamMessage struct {
	Kind    string          `json:"kind"`
	BatchID string          `json:"batch_id"`
	Payload json.RawMessage `json:"payload"`
}

func TestAPI_EventStream(t *testing.T) {
	s := setupTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	listeners := s.fabric.Len()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// the handler subscribes after the upgrade completes
	require.Eventually(t, func() bool { return s.fabric.Len() == listeners+1 }, 2*time.Second, 10*time.Millisecond)

	body, _ := json.Marshal(handlers.StartBatchRequest{Query: "clap"})
	resp, err := http.Post(srv.URL+"/api/v1/batches", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var kinds []string
	lastFraction := -1.0
	for {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var msg streamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		kinds = append(kinds, msg.Kind)

		if msg.Kind == string(domain.EventProgressChanged) {
			var p domain.Progress
			require.NoError(t, json.Unmarshal(msg.Payload, &p))
			assert.GreaterOrEqual(t, p.OverallFraction, lastFraction)
			lastFraction = p.OverallFraction
		}
		if msg.Kind == string(domain.EventBatchCompleted) {
			var completed domain.BatchCompleted
			require.NoError(t, json.Unmarshal(msg.Payload, &completed))
			assert.True(t, completed.Success)
			assert.Len(t, completed.SucceededPaths, 16)
			break
		}
	}

	require.NotEmpty(t, kinds)
	assert.Equal(t, string(domain.EventBatchStarted), kinds[0])
	assert.Equal(t, 1.0, lastFraction)

	// a late client gets the current batch first
	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer late.Close()
	late.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello map[string]interface{}
	require.NoError(t, late.ReadJSON(&hello))
	assert.Equal(t, "snapshot", hello["kind"])
}
