//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/xml"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rerun-tv/rerun/internal/api"
	"github.com/rerun-tv/rerun/internal/catalog"
	"github.com/rerun-tv/rerun/internal/config"
	"github.com/rerun-tv/rerun/internal/guide"
	"github.com/rerun-tv/rerun/internal/logger"
	"github.com/rerun-tv/rerun/internal/models"
	"github.com/rerun-tv/rerun/internal/station"
)

// TestStationFullFlow drives the whole remote surface over HTTP: scan,
// state, channel surfing, transport commands, guide, and export.
func TestStationFullFlow(t *testing.T) {
	rig, cleanup := newStationRig(t)
	defer cleanup()

	rig.scanAndWait(t)

	// The station comes on air with the lowest-numbered channel
	var snap station.Snapshot
	w := rig.doRequest(t, http.MethodGet, "/api/state", nil, &snap)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, snap.OnAir())
	assert.Equal(t, "movie-night", snap.ChannelID)
	assert.Equal(t, 1, snap.ChannelNumber)
	assert.Equal(t, 2, snap.ChannelCount)
	assert.NotZero(t, snap.DurationSeconds)

	// Surf to the second channel by dial number
	w = rig.doRequest(t, http.MethodPost, "/api/state/channel",
		api.SwitchChannelRequest{Number: 2}, &snap)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "retro-tv", snap.ChannelID)

	// Pause affects the player flag but the broadcast clock keeps running
	w = rig.doRequest(t, http.MethodPost, "/api/state/pause", nil, &snap)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, snap.Paused)

	w = rig.doRequest(t, http.MethodPost, "/api/state/resume", nil, &snap)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, snap.Paused)

	// Skip jumps to the next segment boundary
	w = rig.doRequest(t, http.MethodPost, "/api/state/skip", nil, &snap)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), snap.OffsetSeconds)

	// Volume and mute round-trip
	volume := 70
	w = rig.doRequest(t, http.MethodPost, "/api/state/volume",
		api.VolumeRequest{Volume: &volume}, &snap)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 70, snap.Volume)

	w = rig.doRequest(t, http.MethodPost, "/api/state/mute", nil, &snap)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, snap.Muted)

	// The guide covers both channels for the requested span
	var guideResp api.GuideResponse
	w = rig.doRequest(t, http.MethodGet, "/api/guide?hours=1", nil, &guideResp)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, guideResp.Channels, 2)
	for _, window := range guideResp.Channels {
		assert.NotEmpty(t, window.Entries)
		assert.True(t, window.Entries[0].InProgress)
	}

	// Export writes a parseable XMLTV file
	w = rig.doRequest(t, http.MethodPost, "/api/guide/export", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	data, err := os.ReadFile(rig.guideXML)
	require.NoError(t, err)

	var tv guide.TV
	require.NoError(t, xml.Unmarshal(data, &tv))
	assert.Len(t, tv.Channels, 2)
	assert.NotEmpty(t, tv.Programmes)

	// Health reflects the scanned library
	var health api.HealthResponse
	w = rig.doRequest(t, http.MethodGet, "/api/health", nil, &health)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", health.Status)
}

// TestRestartResumesBroadcast proves a process restart lands on the same
// schedule positions and player settings instead of rebuilding the day.
func TestRestartResumesBroadcast(t *testing.T) {
	logger.Init("error", false)

	_, repos, cleanup := setupTestDB(t)
	defer cleanup()

	root := t.TempDir()
	buildLibraryTree(t, root)

	libCfg := config.LibraryConfig{
		Root:            root,
		Extensions:      []string{".mp4", ".mkv"},
		DefaultDuration: 30 * time.Second,
		ProbeTimeout:    time.Second,
	}
	policy := models.BroadcastPolicy{
		BreakIntervalSec: 240,
		BreakDurationSec: 60,
		UseBumpers:       false,
		ShuffleShows:     true,
	}

	runScan := func(scanner *catalog.Scanner) {
		t.Helper()
		scanID, err := scanner.StartScan()
		require.NoError(t, err)
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			progress, err := scanner.GetScanProgress(scanID)
			require.NoError(t, err)
			if progress.Status != catalog.ScanStatusRunning {
				require.Equal(t, catalog.ScanStatusCompleted, progress.Status)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Fatal("scan did not finish in time")
	}

	// First boot
	scanner1 := catalog.NewScanner(libCfg, repos, stubProber{seconds: 120})
	st1 := station.New(policy, repos)
	st1.SetRescanFunc(scanner1.StartScan)
	scanner1.OnUpdate(func(lib *catalog.Library) {
		st1.ApplyLibrary(context.Background(), lib)
	})
	require.NoError(t, st1.LoadPersisted(context.Background()))
	runScan(scanner1)

	_, err := st1.SwitchChannel(context.Background(), "retro-tv")
	require.NoError(t, err)
	st1.SetVolume(context.Background(), 70)

	rot1, epoch1, ok := st1.Broadcast("retro-tv")
	require.True(t, ok)
	scanner1.Stop()

	// Second boot over the same database and library
	scanner2 := catalog.NewScanner(libCfg, repos, stubProber{seconds: 120})
	defer scanner2.Stop()
	st2 := station.New(policy, repos)
	st2.SetRescanFunc(scanner2.StartScan)
	scanner2.OnUpdate(func(lib *catalog.Library) {
		st2.ApplyLibrary(context.Background(), lib)
	})
	require.NoError(t, st2.LoadPersisted(context.Background()))
	runScan(scanner2)

	rot2, epoch2, ok := st2.Broadcast("retro-tv")
	require.True(t, ok)

	// Same epoch and same shuffled order means no visible jump
	assert.Equal(t, epoch1, epoch2)
	assert.Equal(t, rot1.ShowOrder, rot2.ShowOrder)
	assert.Equal(t, rot1.Seed, rot2.Seed)

	snap := st2.CurrentState()
	assert.Equal(t, "retro-tv", snap.ChannelID)
	assert.Equal(t, 70, snap.Volume)
}

// TestRescanPicksUpNewContent adds a file between scans and verifies the
// library and broadcast schedule absorb it.
func TestRescanPicksUpNewContent(t *testing.T) {
	rig, cleanup := newStationRig(t)
	defer cleanup()

	rig.scanAndWait(t)

	var before api.LibraryResponse
	w := rig.doRequest(t, http.MethodGet, "/api/library", nil, &before)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 4, before.TotalItems)

	movieRot, movieEpoch, ok := rig.station.Broadcast("movie-night")
	require.True(t, ok)

	// New show lands on Retro TV only
	writeMediaFile(t, rig.root, "Retro TV", "Shows", "gameshow.mp4")
	rig.scanAndWait(t)

	var after api.LibraryResponse
	w = rig.doRequest(t, http.MethodGet, "/api/library", nil, &after)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, after.TotalItems)

	// The changed channel rebuilds from a fresh epoch
	retroRot, _, ok := rig.station.Broadcast("retro-tv")
	require.True(t, ok)
	assert.Equal(t, 3, retroRot.ShowCount())

	// The untouched channel keeps its broadcast day
	movieRot2, movieEpoch2, ok := rig.station.Broadcast("movie-night")
	require.True(t, ok)
	assert.Equal(t, movieEpoch, movieEpoch2)
	assert.Equal(t, movieRot.ShowOrder, movieRot2.ShowOrder)
}
