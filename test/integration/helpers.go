//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/rerun-tv/rerun/internal/api"
	"github.com/rerun-tv/rerun/internal/catalog"
	"github.com/rerun-tv/rerun/internal/config"
	"github.com/rerun-tv/rerun/internal/db"
	"github.com/rerun-tv/rerun/internal/logger"
	"github.com/rerun-tv/rerun/internal/models"
	"github.com/rerun-tv/rerun/internal/station"
)

// stubProber reports a fixed duration for every file so integration tests
// never shell out to ffprobe
type stubProber struct {
	seconds int64
}

func (p stubProber) Probe(_ context.Context, _ string) (int64, error) {
	return p.seconds, nil
}

// migrationsPath resolves the migrations directory relative to this file so
// tests work regardless of working directory
func migrationsPath(t *testing.T) string {
	t.Helper()

	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")

	testDir := filepath.Dir(filename)              // test/integration
	rootDir := filepath.Dir(filepath.Dir(testDir)) // module root
	return "file://" + filepath.Join(rootDir, "migrations")
}

// setupTestDB creates a temp database with migrations applied
func setupTestDB(t *testing.T) (*db.DB, *db.Repositories, func()) {
	t.Helper()

	tmpFile := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(tmpFile, true)
	require.NoError(t, err, "Failed to create test database")

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err, "Failed to get SQL DB")
	require.NoError(t, db.RunMigrations(sqlDB, migrationsPath(t)), "Failed to run migrations")

	repos := db.NewRepositories(database)

	cleanup := func() {
		database.Close()
	}
	return database, repos, cleanup
}

// writeMediaFile creates a dummy media file under the library root
func writeMediaFile(t *testing.T, root string, parts ...string) {
	t.Helper()

	path := filepath.Join(append([]string{root}, parts...)...)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("dummy video content"), 0644))
}

// buildLibraryTree lays out a two-channel library
func buildLibraryTree(t *testing.T, root string) {
	t.Helper()

	writeMediaFile(t, root, "Retro TV", "Shows", "cartoons.mp4")
	writeMediaFile(t, root, "Retro TV", "Shows", "news.mp4")
	writeMediaFile(t, root, "Retro TV", "Commercials", "soap.mp4")
	writeMediaFile(t, root, "Movie Night", "Shows", "feature.mkv")
}

// stationRig bundles everything a full-flow test touches
type stationRig struct {
	router   *gin.Engine
	scanner  *catalog.Scanner
	station  *station.Station
	hub      *api.Hub
	repos    *db.Repositories
	db       *db.DB
	root     string
	guideXML string
}

func testBroadcastPolicy() models.BroadcastPolicy {
	return models.BroadcastPolicy{
		BreakIntervalSec: 240,
		BreakDurationSec: 60,
		UseBumpers:       false,
		ShuffleShows:     false,
	}
}

// newStationRig wires a scanner, station, and router over a temp library
// tree, mirroring the production server assembly
func newStationRig(t *testing.T) (*stationRig, func()) {
	t.Helper()

	logger.Init("error", false)
	gin.SetMode(gin.TestMode)

	database, repos, dbCleanup := setupTestDB(t)

	root := t.TempDir()
	buildLibraryTree(t, root)

	scanner := catalog.NewScanner(config.LibraryConfig{
		Root:            root,
		Extensions:      []string{".mp4", ".mkv"},
		DefaultDuration: 30 * time.Second,
		ProbeTimeout:    time.Second,
	}, repos, stubProber{seconds: 120})

	st := station.New(testBroadcastPolicy(), repos)
	st.SetRescanFunc(scanner.StartScan)
	scanner.OnUpdate(func(lib *catalog.Library) {
		st.ApplyLibrary(context.Background(), lib)
	})
	require.NoError(t, st.LoadPersisted(context.Background()))

	hub := api.NewHub(st)
	guideXML := filepath.Join(t.TempDir(), "guide.xml")

	router := gin.New()
	router.Use(gin.Recovery())
	apiGroup := router.Group("/api")
	api.SetupHealthRoutes(apiGroup, database, scanner)
	api.SetupStateRoutes(apiGroup, st)
	api.SetupGuideRoutes(apiGroup, st, config.GuideConfig{Span: 3 * time.Hour, ExportPath: guideXML})
	api.SetupLibraryRoutes(apiGroup, scanner, st)
	api.SetupWebsocketRoutes(router, hub, st)

	rig := &stationRig{
		router:   router,
		scanner:  scanner,
		station:  st,
		hub:      hub,
		repos:    repos,
		db:       database,
		root:     root,
		guideXML: guideXML,
	}
	cleanup := func() {
		hub.Shutdown()
		scanner.Stop()
		dbCleanup()
	}
	return rig, cleanup
}

// doRequest performs a request against the rig router, decoding the JSON
// response into out when non-nil
func (r *stationRig) doRequest(t *testing.T, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.router.ServeHTTP(w, req)

	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

// scanAndWait triggers a scan over the API and polls until it finishes
func (r *stationRig) scanAndWait(t *testing.T) {
	t.Helper()

	var scanResp api.ScanResponse
	w := r.doRequest(t, http.MethodPost, "/api/library/scan", nil, &scanResp)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotEmpty(t, scanResp.ScanID)

	type statusView struct {
		Status catalog.ScanStatus `json:"status"`
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var status statusView
		w := r.doRequest(t, http.MethodGet, "/api/library/scan/"+scanResp.ScanID+"/status", nil, &status)
		require.Equal(t, http.StatusOK, w.Code)
		if status.Status != catalog.ScanStatusRunning {
			require.Equal(t, catalog.ScanStatusCompleted, status.Status)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scan did not finish in time")
}
