package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rerun-tv/rerun/internal/config"
	"github.com/rerun-tv/rerun/internal/db"
	"github.com/rerun-tv/rerun/internal/logger"
	"github.com/rerun-tv/rerun/internal/models"
)

// Channel folder layout inside the library root
const (
	showsDirName       = "Shows"
	commercialsDirName = "Commercials"
	bumpersDirName     = "Bumpers"
)

// Scan retention and cleanup settings
const (
	scanRetentionPeriod = 1 * time.Hour    // Keep completed scans for 1 hour
	cleanupInterval     = 15 * time.Minute // Run cleanup every 15 minutes
)

// ScanStatus represents the current state of a library scan
type ScanStatus string

// Library scan status constants
const (
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusCancelled ScanStatus = "cancelled"
	ScanStatusFailed    ScanStatus = "failed"
)

// Common scanner errors
var (
	ErrScanNotFound       = errors.New("scan not found")
	ErrScanAlreadyRunning = errors.New("a scan is already running")
	ErrScanNotRunning     = errors.New("scan is not running")
	ErrInvalidDirectory   = errors.New("invalid library root")
)

// ScanProgress tracks the progress of a library scan operation
type ScanProgress struct {
	ScanID         string     `json:"scan_id"`
	Status         ScanStatus `json:"status"`
	ChannelsFound  int        `json:"channels_found"`
	TotalFiles     int        `json:"total_files"`
	ProcessedFiles int        `json:"processed_files"`
	ProbedCount    int        `json:"probed_count"`
	CachedCount    int        `json:"cached_count"`
	EstimatedCount int        `json:"estimated_count"`
	CurrentFile    string     `json:"current_file"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Errors         []string   `json:"errors,omitempty"`
	mu             sync.RWMutex
	cancelFunc     context.CancelFunc
}

// Scanner walks the library root, resolves durations, and publishes library
// snapshots. Scans run asynchronously and at most one at a time; change
// notifications that arrive mid-scan are coalesced into one follow-up scan.
type Scanner struct {
	cfg    config.LibraryConfig
	repos  *db.Repositories
	prober Prober

	activeScans   map[string]*ScanProgress
	generation    uint64
	pendingRescan bool
	mu            sync.RWMutex

	library      *Library
	publishedGen uint64
	listeners    []func(*Library)
	libMu        sync.RWMutex

	stopCleanup chan struct{} // Signal to stop cleanup goroutine
	cleanupDone chan struct{} // Signal when cleanup goroutine has stopped
}

// NewScanner creates a new library scanner instance
func NewScanner(cfg config.LibraryConfig, repos *db.Repositories, prober Prober) *Scanner {
	s := &Scanner{
		cfg:         cfg,
		repos:       repos,
		prober:      prober,
		activeScans: make(map[string]*ScanProgress),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	// Start background cleanup goroutine
	go s.runCleanupLoop()

	return s
}

// Library returns the most recently published snapshot. Before the first
// scan completes this is an empty library, never nil.
func (s *Scanner) Library() *Library {
	s.libMu.RLock()
	defer s.libMu.RUnlock()
	if s.library == nil {
		return NewLibrary(s.cfg.Root, nil, time.Time{})
	}
	return s.library
}

// OnUpdate registers a callback invoked with each newly published snapshot.
// Callbacks run outside the scanner's locks on the scan goroutine.
func (s *Scanner) OnUpdate(fn func(*Library)) {
	s.libMu.Lock()
	defer s.libMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// StartScan initiates an asynchronous scan of the configured library root.
// Returns the scan ID that can be used to track progress.
func (s *Scanner) StartScan() (string, error) {
	// Validate the root exists and is a directory
	info, err := os.Stat(s.cfg.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: directory does not exist", ErrInvalidDirectory)
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: path is not a directory", ErrInvalidDirectory)
	}

	// Check for concurrent scans and insert atomically.
	// Use Lock (not RLock) to ensure check and insert are atomic.
	s.mu.Lock()
	for _, scan := range s.activeScans {
		scan.mu.RLock()
		if scan.Status == ScanStatusRunning {
			scan.mu.RUnlock()
			s.mu.Unlock()
			return "", ErrScanAlreadyRunning
		}
		scan.mu.RUnlock()
	}

	scanID := uuid.New().String()
	s.generation++
	generation := s.generation

	// The scan must outlive the HTTP request that triggered it, so its
	// context is detached from the caller's.
	scanCtx, cancel := context.WithCancel(context.Background())

	progress := &ScanProgress{
		ScanID:     scanID,
		Status:     ScanStatusRunning,
		StartTime:  time.Now().UTC(),
		Errors:     []string{},
		cancelFunc: cancel,
	}

	s.activeScans[scanID] = progress
	s.mu.Unlock()

	go s.performScan(scanCtx, scanID, generation)

	logger.Log.Info().
		Str("scan_id", scanID).
		Str("root", s.cfg.Root).
		Msg("Library scan started")

	return scanID, nil
}

// RequestRescan starts a scan, or marks one pending if a scan is already in
// flight. The file watcher calls this on every debounced change batch.
func (s *Scanner) RequestRescan() {
	_, err := s.StartScan()
	if err == nil {
		return
	}
	if errors.Is(err, ErrScanAlreadyRunning) {
		s.mu.Lock()
		s.pendingRescan = true
		s.mu.Unlock()
		logger.Log.Debug().Msg("Scan already running, rescan queued")
		return
	}
	logger.Log.Warn().Err(err).Msg("Failed to start rescan")
}

// GetScanProgress retrieves the current progress of a scan
func (s *Scanner) GetScanProgress(scanID string) (*ScanProgress, error) {
	s.mu.RLock()
	progress, exists := s.activeScans[scanID]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrScanNotFound
	}

	// Return a copy of the progress to avoid race conditions
	progress.mu.RLock()
	defer progress.mu.RUnlock()

	progressCopy := &ScanProgress{
		ScanID:         progress.ScanID,
		Status:         progress.Status,
		ChannelsFound:  progress.ChannelsFound,
		TotalFiles:     progress.TotalFiles,
		ProcessedFiles: progress.ProcessedFiles,
		ProbedCount:    progress.ProbedCount,
		CachedCount:    progress.CachedCount,
		EstimatedCount: progress.EstimatedCount,
		CurrentFile:    progress.CurrentFile,
		StartTime:      progress.StartTime,
		EndTime:        progress.EndTime,
		Errors:         append([]string{}, progress.Errors...),
	}

	return progressCopy, nil
}

// CancelScan cancels a running scan
func (s *Scanner) CancelScan(scanID string) error {
	s.mu.RLock()
	progress, exists := s.activeScans[scanID]
	s.mu.RUnlock()

	if !exists {
		return ErrScanNotFound
	}

	progress.mu.Lock()
	if progress.Status != ScanStatusRunning {
		progress.mu.Unlock()
		return fmt.Errorf("%w (status: %s)", ErrScanNotRunning, progress.Status)
	}
	if progress.cancelFunc != nil {
		progress.cancelFunc()
	}
	progress.mu.Unlock()

	logger.Log.Info().
		Str("scan_id", scanID).
		Msg("Library scan cancellation requested")

	return nil
}

// fileEntry is a media file found during the discovery walk
type fileEntry struct {
	path string
	size int64
}

// channelFiles holds a discovered channel and its raw file listing before
// durations are resolved
type channelFiles struct {
	channel     *models.Channel
	shows       []fileEntry
	commercials []fileEntry
	bumpers     []fileEntry
}

// performScan executes the actual scanning logic asynchronously
func (s *Scanner) performScan(ctx context.Context, scanID string, generation uint64) {
	s.mu.RLock()
	progress := s.activeScans[scanID]
	s.mu.RUnlock()

	candidates, err := s.discoverChannels(progress)
	if err != nil {
		s.recordScanError(progress, fmt.Errorf("channel discovery failed: %w", err))
		s.finalizeScan(progress, ScanStatusFailed)
		return
	}

	totalFiles := 0
	for _, cand := range candidates {
		totalFiles += len(cand.shows) + len(cand.commercials) + len(cand.bumpers)
	}

	progress.mu.Lock()
	progress.ChannelsFound = len(candidates)
	progress.TotalFiles = totalFiles
	progress.mu.Unlock()

	if ctx.Err() != nil {
		s.finalizeScan(progress, ScanStatusCancelled)
		return
	}

	logger.Log.Info().
		Str("scan_id", scanID).
		Int("channels", len(candidates)).
		Int("total_files", totalFiles).
		Msg("Found channels and media files to process")

	// Load the duration cache once up front
	cache, err := s.repos.Durations.GetAll(ctx)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to load duration cache, probing all files")
		cache = make(map[string]*models.DurationEntry)
	}

	seenPaths := make([]string, 0, totalFiles)
	channels := make([]*models.Channel, 0, len(candidates))

	for _, cand := range candidates {
		// Check for cancellation between channels
		if ctx.Err() != nil {
			s.finalizeScan(progress, ScanStatusCancelled)
			return
		}

		ch := cand.channel
		ch.Shows = s.processFiles(ctx, cand.shows, models.KindShow, cache, progress, &seenPaths)
		ch.Commercials = s.processFiles(ctx, cand.commercials, models.KindCommercial, cache, progress, &seenPaths)
		ch.Bumpers = s.processFiles(ctx, cand.bumpers, models.KindBumper, cache, progress, &seenPaths)
		channels = append(channels, ch)
	}

	if ctx.Err() != nil {
		s.finalizeScan(progress, ScanStatusCancelled)
		return
	}

	lib := NewLibrary(s.cfg.Root, channels, time.Now().UTC())
	s.publish(lib, generation)

	// Drop cache rows for files that no longer exist
	if err := s.repos.Durations.DeleteNotIn(ctx, seenPaths); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to prune duration cache")
	}

	s.finalizeScan(progress, ScanStatusCompleted)

	// Run the follow-up scan if changes arrived while this one was in flight
	s.mu.Lock()
	rerun := s.pendingRescan
	s.pendingRescan = false
	s.mu.Unlock()
	if rerun {
		logger.Log.Info().Msg("Running queued rescan")
		go s.RequestRescan()
	}
}

// discoverChannels lists channel folders under the library root. A channel
// is any direct subdirectory that contains a Shows folder; Commercials and
// Bumpers are optional. Channels are numbered in case-insensitive name
// order so dial positions are stable across scans.
func (s *Scanner) discoverChannels(progress *ScanProgress) ([]*channelFiles, error) {
	entries, err := os.ReadDir(s.cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read library root: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		showsPath := filepath.Join(s.cfg.Root, entry.Name(), showsDirName)
		info, err := os.Stat(showsPath)
		if err != nil || !info.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	candidates := make([]*channelFiles, 0, len(names))
	for i, name := range names {
		dir := filepath.Join(s.cfg.Root, name)
		cand := &channelFiles{
			channel: &models.Channel{
				ID:     Slugify(name),
				Name:   name,
				Number: i + 1,
			},
			shows:       s.findMediaFiles(filepath.Join(dir, showsDirName), progress),
			commercials: s.findMediaFiles(filepath.Join(dir, commercialsDirName), progress),
			bumpers:     s.findMediaFiles(filepath.Join(dir, bumpersDirName), progress),
		}
		candidates = append(candidates, cand)
	}

	return candidates, nil
}

// findMediaFiles walks a directory tree and returns all media files in
// deterministic order. A missing directory yields an empty list.
func (s *Scanner) findMediaFiles(dirPath string, progress *ScanProgress) []fileEntry {
	if _, err := os.Stat(dirPath); err != nil {
		return nil
	}

	var files []fileEntry
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			errMsg := fmt.Sprintf("error accessing path %s: %v", path, err)
			logger.Log.Warn().
				Str("path", path).
				Err(err).
				Msg("Error during directory walk")
			progress.mu.Lock()
			progress.Errors = append(progress.Errors, errMsg)
			progress.mu.Unlock()
			return nil // Continue walking
		}

		if info.IsDir() {
			return nil
		}

		if s.isMediaFile(path) {
			files = append(files, fileEntry{path: path, size: info.Size()})
		}

		return nil
	})
	if err != nil {
		errMsg := fmt.Sprintf("directory walk failed for %s: %v", dirPath, err)
		logger.Log.Error().Err(err).Str("dir", dirPath).Msg("Directory walk failed")
		progress.mu.Lock()
		progress.Errors = append(progress.Errors, errMsg)
		progress.mu.Unlock()
	}

	// Sort by lowercase base name, then full path, so rotation input order
	// does not depend on filesystem enumeration order
	sort.Slice(files, func(i, j int) bool {
		ni := strings.ToLower(filepath.Base(files[i].path))
		nj := strings.ToLower(filepath.Base(files[j].path))
		if ni != nj {
			return ni < nj
		}
		return files[i].path < files[j].path
	})

	return files
}

// processFiles turns raw file entries into media items with resolved
// durations. Unreadable files are recorded and skipped.
func (s *Scanner) processFiles(ctx context.Context, entries []fileEntry, kind models.ItemKind, cache map[string]*models.DurationEntry, progress *ScanProgress, seenPaths *[]string) []*models.MediaItem {
	items := make([]*models.MediaItem, 0, len(entries))

	for _, entry := range entries {
		if ctx.Err() != nil {
			return items
		}

		progress.mu.Lock()
		progress.CurrentFile = entry.path
		progress.mu.Unlock()

		validation := ValidateFile(entry.path)
		if !validation.Readable {
			s.recordFileError(progress, entry.path, fmt.Errorf("file not readable: %s", strings.Join(validation.Reasons, ", ")))
			continue
		}

		seconds, estimated := s.resolveDuration(ctx, entry, cache, progress)
		*seenPaths = append(*seenPaths, entry.path)

		items = append(items, &models.MediaItem{
			ID:                StableID(entry.path, entry.size),
			Path:              entry.path,
			Title:             CleanTitle(entry.path),
			Kind:              kind,
			Duration:          seconds,
			DurationEstimated: estimated,
			FileSize:          entry.size,
		})

		progress.mu.Lock()
		progress.ProcessedFiles++
		progress.mu.Unlock()
	}

	return items
}

// resolveDuration returns the duration for a file, preferring the cache. A
// cached value is reused only when the file size still matches and the
// entry came from a real probe; estimated entries are retried so durations
// self-heal once ffprobe works again.
func (s *Scanner) resolveDuration(ctx context.Context, entry fileEntry, cache map[string]*models.DurationEntry, progress *ScanProgress) (int64, bool) {
	if cached, ok := cache[entry.path]; ok && cached.FileSize == entry.size && !cached.Estimated {
		progress.mu.Lock()
		progress.CachedCount++
		progress.mu.Unlock()
		return cached.Seconds, false
	}

	seconds, err := s.prober.Probe(ctx, entry.path)
	estimated := false
	if err != nil {
		seconds = int64(s.cfg.DefaultDuration / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		estimated = true
		logger.Log.Warn().
			Err(err).
			Str("file_path", entry.path).
			Int64("fallback_seconds", seconds).
			Msg("Probe failed, using estimated duration")

		progress.mu.Lock()
		progress.EstimatedCount++
		progress.mu.Unlock()
	} else {
		progress.mu.Lock()
		progress.ProbedCount++
		progress.mu.Unlock()
	}

	if upsertErr := s.repos.Durations.Upsert(ctx, &models.DurationEntry{
		Path:      entry.path,
		FileSize:  entry.size,
		Seconds:   seconds,
		Estimated: estimated,
	}); upsertErr != nil {
		logger.Log.Warn().
			Err(upsertErr).
			Str("file_path", entry.path).
			Msg("Failed to update duration cache")
	}

	return seconds, estimated
}

// isMediaFile checks if a file has a configured media extension
func (s *Scanner) isMediaFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, supported := range s.cfg.Extensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// publish replaces the current snapshot and notifies listeners. A scan that
// finished after a newer one already published is discarded.
func (s *Scanner) publish(lib *Library, generation uint64) {
	s.libMu.Lock()
	if generation < s.publishedGen {
		s.libMu.Unlock()
		logger.Log.Debug().
			Uint64("generation", generation).
			Uint64("published", s.publishedGen).
			Msg("Discarding stale scan result")
		return
	}
	s.publishedGen = generation
	s.library = lib
	listeners := append([]func(*Library){}, s.listeners...)
	s.libMu.Unlock()

	logger.Log.Info().
		Int("channels", len(lib.Channels)).
		Int("items", lib.ItemCount()).
		Msg("Published library snapshot")

	for _, fn := range listeners {
		fn(lib)
	}
}

// recordFileError logs and records an error for a specific file
func (s *Scanner) recordFileError(progress *ScanProgress, filePath string, err error) {
	errMsg := fmt.Sprintf("%s: %v", filePath, err)
	logger.Log.Warn().
		Str("file", filePath).
		Err(err).
		Msg("Failed to process media file")

	progress.mu.Lock()
	progress.ProcessedFiles++
	progress.Errors = append(progress.Errors, errMsg)
	progress.mu.Unlock()
}

// recordScanError records a scan-level error
func (s *Scanner) recordScanError(progress *ScanProgress, err error) {
	logger.Log.Error().Err(err).Msg("Library scan failed")
	progress.mu.Lock()
	progress.Errors = append(progress.Errors, err.Error())
	progress.mu.Unlock()
}

// finalizeScan completes the scan and updates final status
func (s *Scanner) finalizeScan(progress *ScanProgress, status ScanStatus) {
	endTime := time.Now().UTC()

	progress.mu.Lock()
	progress.Status = status
	progress.EndTime = &endTime
	progress.CurrentFile = ""
	progress.mu.Unlock()

	logger.Log.Info().
		Str("scan_id", progress.ScanID).
		Str("status", string(status)).
		Int("channels", progress.ChannelsFound).
		Int("total_files", progress.TotalFiles).
		Int("probed", progress.ProbedCount).
		Int("cached", progress.CachedCount).
		Int("estimated", progress.EstimatedCount).
		Int("error_count", len(progress.Errors)).
		Dur("duration", endTime.Sub(progress.StartTime)).
		Msg("Library scan finished")
}

// Stop cancels any running scan and stops the scanner's background cleanup
// goroutine. This should be called when the scanner is no longer needed.
func (s *Scanner) Stop() {
	s.mu.RLock()
	for _, progress := range s.activeScans {
		progress.mu.RLock()
		if progress.Status == ScanStatusRunning && progress.cancelFunc != nil {
			progress.cancelFunc()
		}
		progress.mu.RUnlock()
	}
	s.mu.RUnlock()

	close(s.stopCleanup)
	<-s.cleanupDone
	logger.Log.Debug().Msg("Scanner cleanup goroutine stopped")
}

// runCleanupLoop runs periodic cleanup of old completed scans
func (s *Scanner) runCleanupLoop() {
	defer close(s.cleanupDone)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.CleanupOldScans(scanRetentionPeriod)
		}
	}
}

// CleanupOldScans removes completed, cancelled, or failed scans older than the specified duration
func (s *Scanner) CleanupOldScans(olderThan time.Duration) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0

	s.mu.Lock()
	defer s.mu.Unlock()

	for scanID, progress := range s.activeScans {
		progress.mu.RLock()
		status := progress.Status
		endTime := progress.EndTime
		progress.mu.RUnlock()

		if status == ScanStatusRunning {
			continue
		}
		if endTime == nil {
			continue
		}
		if endTime.Before(cutoff) {
			delete(s.activeScans, scanID)
			removed++
		}
	}

	if removed > 0 {
		logger.Log.Debug().
			Int("removed_count", removed).
			Int("remaining_count", len(s.activeScans)).
			Msg("Cleaned up old scans")
	}
}
