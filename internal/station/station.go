// Package station hosts the single playback authority. All observers read
// one state snapshot and all control commands are serialized here, so the
// desktop player and every remote client stay consistent with the one
// broadcast that is actually on air.
package station

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rerun-tv/rerun/internal/catalog"
	"github.com/rerun-tv/rerun/internal/config"
	"github.com/rerun-tv/rerun/internal/db"
	"github.com/rerun-tv/rerun/internal/guide"
	"github.com/rerun-tv/rerun/internal/logger"
	"github.com/rerun-tv/rerun/internal/models"
	"github.com/rerun-tv/rerun/internal/schedule"
	"github.com/rerun-tv/rerun/internal/timeline"
)

const (
	// upcomingSpan is how far ahead the snapshot's upcoming-shows list looks
	upcomingSpan = 6 * time.Hour

	// maxUpcoming caps the upcoming-shows list in the snapshot
	maxUpcoming = 5
)

// SkipDirection selects which way a skip command moves the live cursor
type SkipDirection string

// Skip directions
const (
	SkipForward  SkipDirection = "forward"
	SkipBackward SkipDirection = "backward"
)

// broadcast is the live schedule of one channel: the derived rotation plus
// the persisted anchor (epoch, seed) it was built from.
type broadcast struct {
	channel     *models.Channel
	rotation    *schedule.Rotation
	epoch       time.Time
	seed        int64
	fingerprint string

	// shiftSeconds offsets the live cursor after a skip command. The shift
	// expires when the unadjusted schedule crosses its next break boundary.
	shiftSeconds int64
	shiftExpiry  time.Time
}

// Station is the single-writer playback authority. Every mutation happens
// under one mutex and bumps a monotonic version exactly once, so observers
// can order snapshots and drop stale ones.
type Station struct {
	policy models.BroadcastPolicy
	repos  *db.Repositories

	mu         sync.Mutex
	library    *catalog.Library
	broadcasts map[string]*broadcast
	restored   map[string]*models.ChannelState
	activeID   string
	version    uint64
	paused     bool
	volume     int
	muted      bool
	rescan     func() (string, error)
	listeners  []func(Snapshot)

	now func() time.Time
}

// New creates a station applying the given break policy to every channel
func New(policy models.BroadcastPolicy, repos *db.Repositories) *Station {
	return &Station{
		policy:     policy,
		repos:      repos,
		broadcasts: make(map[string]*broadcast),
		restored:   make(map[string]*models.ChannelState),
		volume:     models.DefaultStationSettings().Volume,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PolicyFromConfig converts the configured break policy into the persisted
// whole-second form used for rotation builds and fingerprints.
func PolicyFromConfig(cfg config.BroadcastConfig) models.BroadcastPolicy {
	return models.BroadcastPolicy{
		BreakIntervalSec: int64(cfg.BreakInterval / time.Second),
		BreakDurationSec: int64(cfg.BreakDuration / time.Second),
		UseBumpers:       cfg.UseBumpers,
		ShuffleShows:     cfg.ShuffleShows,
	}
}

// SetRescanFunc wires the scanner trigger used by Rebuild
func (s *Station) SetRescanFunc(fn func() (string, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rescan = fn
}

// OnUpdate registers a listener invoked with a fresh snapshot after every
// effective state change. Listeners run outside the station lock.
func (s *Station) OnUpdate(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// LoadPersisted restores station settings and per-channel broadcast anchors
// from the database. Unreadable channel rows are logged and dropped so the
// affected channel simply starts a fresh broadcast day.
func (s *Station) LoadPersisted(ctx context.Context) error {
	settings, err := s.repos.Settings.Get(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to load station settings")
		return fmt.Errorf("failed to load station settings: %w", err)
	}

	states, err := s.repos.States.List(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to load channel states")
		return fmt.Errorf("failed to load channel states: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.volume = clampVolume(settings.Volume)
	s.muted = settings.Muted
	s.activeID = settings.ActiveChannelID

	restored := 0
	for _, state := range states {
		if err := validateChannelState(state); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("channel_id", state.ChannelID).
				Msg("Discarding corrupt channel state, channel will start a fresh broadcast")
			continue
		}
		s.restored[state.ChannelID] = state
		restored++
	}

	logger.Log.Info().
		Int("channel_states", restored).
		Int("discarded", len(states)-restored).
		Str("active_channel", s.activeID).
		Int("volume", s.volume).
		Bool("muted", s.muted).
		Msg("Restored persisted station state")

	return nil
}

// validateChannelState checks that a persisted row can actually anchor a
// broadcast: decodable JSON blobs and a usable epoch.
func validateChannelState(state *models.ChannelState) error {
	if state.Epoch.IsZero() {
		return fmt.Errorf("zero epoch")
	}
	if _, err := state.GetShowOrder(); err != nil {
		return fmt.Errorf("undecodable show order: %w", err)
	}
	if _, err := state.GetPolicy(); err != nil {
		return fmt.Errorf("undecodable policy snapshot: %w", err)
	}
	return nil
}

// ApplyLibrary swaps in a freshly scanned library. Channels whose content
// fingerprint is unchanged keep their epoch, seed and show order so the
// broadcast continues without a visible jump; changed or new channels get a
// fresh epoch anchored at the apply time. Removed channels are dropped and
// the active channel falls back to the lowest dial number if it vanished.
func (s *Station) ApplyLibrary(ctx context.Context, lib *catalog.Library) {
	if lib == nil {
		return
	}
	now := s.now()

	s.mu.Lock()

	changed := false
	next := make(map[string]*broadcast, len(lib.Channels))
	var dirty []*models.ChannelState

	for _, ch := range lib.Channels {
		fp := schedule.Fingerprint(ch, s.policy)

		if prev, ok := s.broadcasts[ch.ID]; ok && prev.fingerprint == fp {
			// Unchanged content: keep the anchor, rebuild the rotation
			// against the fresh catalog items
			next[ch.ID] = &broadcast{
				channel:      ch,
				rotation:     schedule.BuildWithOrder(ch, s.policy, prev.seed, prev.rotation.ShowOrder),
				epoch:        prev.epoch,
				seed:         prev.seed,
				fingerprint:  fp,
				shiftSeconds: prev.shiftSeconds,
				shiftExpiry:  prev.shiftExpiry,
			}
			continue
		}

		if restored, ok := s.restored[ch.ID]; ok && restored.Fingerprint == fp {
			// Same content as before the restart: resume the persisted
			// broadcast day exactly where the wall clock says it is
			delete(s.restored, ch.ID)
			order, _ := restored.GetShowOrder()
			next[ch.ID] = &broadcast{
				channel:     ch,
				rotation:    schedule.BuildWithOrder(ch, s.policy, restored.Seed, order),
				epoch:       restored.Epoch.UTC(),
				seed:        restored.Seed,
				fingerprint: fp,
			}
			changed = true
			logger.Log.Info().
				Str("channel_id", ch.ID).
				Time("epoch", restored.Epoch).
				Msg("Resumed persisted broadcast")
			continue
		}

		// New channel or changed content: fresh epoch and seed. The previous
		// show order, if any, is avoided on the reshuffle.
		var prevOrder []string
		if prev, ok := s.broadcasts[ch.ID]; ok {
			prevOrder = prev.rotation.ShowOrder
		} else if restored, ok := s.restored[ch.ID]; ok {
			delete(s.restored, ch.ID)
			prevOrder, _ = restored.GetShowOrder()
		}

		seed := now.UnixNano()
		rot := schedule.Build(ch, s.policy, seed, prevOrder)
		next[ch.ID] = &broadcast{
			channel:     ch,
			rotation:    rot,
			epoch:       now,
			seed:        seed,
			fingerprint: fp,
		}
		changed = true

		row := &models.ChannelState{
			ChannelID:   ch.ID,
			Epoch:       now,
			Seed:        seed,
			Fingerprint: fp,
		}
		if err := row.SetShowOrder(rot.ShowOrder); err != nil {
			logger.Log.Error().Err(err).Str("channel_id", ch.ID).Msg("Failed to encode show order")
		}
		if err := row.SetPolicy(s.policy); err != nil {
			logger.Log.Error().Err(err).Str("channel_id", ch.ID).Msg("Failed to encode policy snapshot")
		}
		dirty = append(dirty, row)

		logger.Log.Info().
			Str("channel_id", ch.ID).
			Time("epoch", now).
			Int("segments", len(rot.Segments)).
			Int64("cycle_seconds", rot.CycleDuration).
			Msg("Built fresh broadcast day")
	}

	for id := range s.broadcasts {
		if _, ok := next[id]; !ok {
			changed = true
			logger.Log.Info().Str("channel_id", id).Msg("Channel removed from library")
		}
	}
	for id := range s.restored {
		if _, ok := next[id]; !ok {
			delete(s.restored, id)
		}
	}

	s.broadcasts = next
	s.library = lib

	var settingsRow *models.StationSettings
	if _, ok := next[s.activeID]; !ok {
		fallback := ""
		if ids := lib.ChannelIDs(); len(ids) > 0 {
			fallback = ids[0]
		}
		if s.activeID != fallback {
			logger.Log.Info().
				Str("previous", s.activeID).
				Str("fallback", fallback).
				Msg("Active channel no longer exists, tuning to lowest dial number")
			s.activeID = fallback
			changed = true
			settingsRow = s.settingsRowLocked(now)
		}
	}

	var snap Snapshot
	if changed {
		s.version++
		snap = s.snapshotLocked(now)
	}
	listeners := s.copyListenersLocked()
	s.mu.Unlock()

	s.persistChannelStates(ctx, dirty, lib.ChannelIDs())
	if settingsRow != nil {
		s.persistSettings(ctx, settingsRow)
	}
	if changed {
		s.notify(snap, listeners)
	}
}

// persistChannelStates writes fresh broadcast anchors and prunes rows for
// channels that no longer exist. Failures are logged, not fatal: the station
// keeps broadcasting and the next rebuild heals the rows.
func (s *Station) persistChannelStates(ctx context.Context, dirty []*models.ChannelState, keepIDs []string) {
	if s.repos == nil {
		return
	}
	if len(dirty) > 0 {
		if err := s.repos.States.UpsertAll(ctx, dirty); err != nil {
			logger.Log.Error().Err(err).Int("count", len(dirty)).Msg("Failed to persist channel states")
		}
	}
	if err := s.repos.States.DeleteNotIn(ctx, keepIDs); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to prune channel states")
	}
}

func (s *Station) persistSettings(ctx context.Context, row *models.StationSettings) {
	if s.repos == nil {
		return
	}
	if err := s.repos.Settings.Update(ctx, row); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to persist station settings")
	}
}

// settingsRowLocked captures the current player settings for persistence
func (s *Station) settingsRowLocked(now time.Time) *models.StationSettings {
	return &models.StationSettings{
		ID:              1,
		ActiveChannelID: s.activeID,
		Volume:          s.volume,
		Muted:           s.muted,
		UpdatedAt:       now,
	}
}

// CurrentState returns the authoritative snapshot. Pure in-memory compute,
// never touches the database.
func (s *Station) CurrentState() Snapshot {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(now)
}

// SwitchChannel tunes the station to the given channel. Switching to the
// channel already on air is a no-op so duplicate remote deliveries do not
// inflate the version.
func (s *Station) SwitchChannel(ctx context.Context, channelID string) (Snapshot, error) {
	now := s.now()
	s.mu.Lock()

	if _, ok := s.broadcasts[channelID]; !ok {
		s.mu.Unlock()
		logger.Log.Warn().Str("channel_id", channelID).Msg("Switch rejected: channel not found")
		return Snapshot{}, ErrChannelNotFound
	}
	if s.activeID == channelID {
		snap := s.snapshotLocked(now)
		s.mu.Unlock()
		return snap, nil
	}

	s.activeID = channelID
	s.version++
	snap := s.snapshotLocked(now)
	row := s.settingsRowLocked(now)
	listeners := s.copyListenersLocked()
	s.mu.Unlock()

	logger.Log.Info().
		Str("channel_id", channelID).
		Uint64("version", snap.Version).
		Msg("Switched channel")

	s.persistSettings(ctx, row)
	s.notify(snap, listeners)
	return snap, nil
}

// SwitchByNumber tunes by dial number
func (s *Station) SwitchByNumber(ctx context.Context, number int) (Snapshot, error) {
	s.mu.Lock()
	var id string
	if s.library != nil {
		if ch, ok := s.library.ChannelByNumber(number); ok {
			id = ch.ID
		}
	}
	s.mu.Unlock()

	if id == "" {
		logger.Log.Warn().Int("number", number).Msg("Switch rejected: no channel on dial number")
		return Snapshot{}, ErrChannelNotFound
	}
	return s.SwitchChannel(ctx, id)
}

// NextChannel tunes one dial number up, wrapping at the end
func (s *Station) NextChannel(ctx context.Context) (Snapshot, error) {
	return s.step(ctx, 1)
}

// PrevChannel tunes one dial number down, wrapping at the start
func (s *Station) PrevChannel(ctx context.Context) (Snapshot, error) {
	return s.step(ctx, -1)
}

func (s *Station) step(ctx context.Context, delta int) (Snapshot, error) {
	s.mu.Lock()
	ids := []string{}
	if s.library != nil {
		ids = s.library.ChannelIDs()
	}
	if len(ids) == 0 {
		s.mu.Unlock()
		return Snapshot{}, ErrNoChannels
	}

	current := -1
	for i, id := range ids {
		if id == s.activeID {
			current = i
			break
		}
	}
	var target string
	if current < 0 {
		target = ids[0]
	} else {
		target = ids[(current+delta+len(ids))%len(ids)]
	}
	s.mu.Unlock()

	return s.SwitchChannel(ctx, target)
}

// Pause marks the player paused. Broadcast time keeps running: the channel
// airs on and Resume rejoins the live position. Pausing while already
// paused is a no-op.
func (s *Station) Pause() Snapshot {
	return s.setPaused(true)
}

// Resume clears the paused flag. Resuming while playing is a no-op.
func (s *Station) Resume() Snapshot {
	return s.setPaused(false)
}

func (s *Station) setPaused(paused bool) Snapshot {
	now := s.now()
	s.mu.Lock()

	if s.paused == paused {
		snap := s.snapshotLocked(now)
		s.mu.Unlock()
		return snap
	}

	s.paused = paused
	s.version++
	snap := s.snapshotLocked(now)
	listeners := s.copyListenersLocked()
	s.mu.Unlock()

	logger.Log.Info().Bool("paused", paused).Uint64("version", snap.Version).Msg("Playback pause state changed")

	s.notify(snap, listeners)
	return snap
}

// Skip nudges the live cursor: forward jumps to the next segment start,
// backward restarts the current segment. The adjustment expires when the
// unadjusted schedule crosses its next break boundary and the channel snaps
// back to broadcast truth.
func (s *Station) Skip(direction SkipDirection) (Snapshot, error) {
	now := s.now()
	s.mu.Lock()

	b := s.broadcasts[s.activeID]
	if b == nil {
		s.mu.Unlock()
		return Snapshot{}, ErrChannelNotFound
	}

	s.decayShiftLocked(b, now)

	if b.rotation.IsEmpty() {
		// Nothing on air, nothing to skip
		snap := s.snapshotLocked(now)
		s.mu.Unlock()
		return snap, nil
	}

	adjusted := now.Add(time.Duration(b.shiftSeconds) * time.Second)
	cursor, err := timeline.CursorAt(b.rotation, b.epoch, adjusted)
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, fmt.Errorf("failed to resolve cursor for skip: %w", err)
	}

	var delta int64
	switch direction {
	case SkipBackward:
		delta = -cursor.OffsetSeconds
	default:
		delta = cursor.Remaining()
	}
	if delta == 0 {
		snap := s.snapshotLocked(now)
		s.mu.Unlock()
		return snap, nil
	}

	b.shiftSeconds += delta
	if expiry, err := timeline.NextBreakStart(b.rotation, b.epoch, now); err == nil {
		b.shiftExpiry = expiry
	}
	expiry := b.shiftExpiry
	s.version++
	snap := s.snapshotLocked(now)
	listeners := s.copyListenersLocked()
	s.mu.Unlock()

	logger.Log.Info().
		Str("channel_id", snap.ChannelID).
		Str("direction", string(direction)).
		Int64("shift_seconds", snap.SkipSeconds).
		Time("expires", expiry).
		Msg("Applied skip")

	s.notify(snap, listeners)
	return snap, nil
}

// SetVolume sets the player volume, clamped to 0..100. Setting the current
// volume again is a no-op.
func (s *Station) SetVolume(ctx context.Context, level int) Snapshot {
	now := s.now()
	level = clampVolume(level)

	s.mu.Lock()
	if s.volume == level {
		snap := s.snapshotLocked(now)
		s.mu.Unlock()
		return snap
	}

	s.volume = level
	s.version++
	snap := s.snapshotLocked(now)
	row := s.settingsRowLocked(now)
	listeners := s.copyListenersLocked()
	s.mu.Unlock()

	s.persistSettings(ctx, row)
	s.notify(snap, listeners)
	return snap
}

// SetMuted sets the mute state. Idempotent against duplicate deliveries.
func (s *Station) SetMuted(ctx context.Context, muted bool) Snapshot {
	now := s.now()
	s.mu.Lock()

	if s.muted == muted {
		snap := s.snapshotLocked(now)
		s.mu.Unlock()
		return snap
	}

	s.muted = muted
	s.version++
	snap := s.snapshotLocked(now)
	row := s.settingsRowLocked(now)
	listeners := s.copyListenersLocked()
	s.mu.Unlock()

	s.persistSettings(ctx, row)
	s.notify(snap, listeners)
	return snap
}

// ToggleMute flips the mute state
func (s *Station) ToggleMute(ctx context.Context) Snapshot {
	now := s.now()
	s.mu.Lock()

	s.muted = !s.muted
	s.version++
	snap := s.snapshotLocked(now)
	row := s.settingsRowLocked(now)
	listeners := s.copyListenersLocked()
	s.mu.Unlock()

	s.persistSettings(ctx, row)
	s.notify(snap, listeners)
	return snap
}

// Rebuild asks the wired scanner for a fresh library scan. The rebuilt
// schedules arrive through ApplyLibrary when the scan completes.
func (s *Station) Rebuild() (string, error) {
	s.mu.Lock()
	fn := s.rescan
	s.mu.Unlock()

	if fn == nil {
		return "", ErrRescanUnavailable
	}
	return fn()
}

// Broadcast returns the live rotation and epoch for one channel
func (s *Station) Broadcast(channelID string) (*schedule.Rotation, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.broadcasts[channelID]
	if !ok {
		return nil, time.Time{}, false
	}
	return b.rotation, b.epoch, true
}

// Guide projects every channel's program guide in dial order
func (s *Station) Guide(from time.Time, span time.Duration) []guide.Window {
	windows := make([]guide.Window, 0)
	for _, b := range s.broadcastsInDialOrder() {
		window, err := guide.ProjectWindow(b.rotation, b.epoch, from, span)
		if err != nil {
			logger.Log.Error().Err(err).Str("channel_id", b.channel.ID).Msg("Failed to project guide window")
			continue
		}
		window.ChannelID = b.channel.ID
		windows = append(windows, *window)
	}
	return windows
}

// ChannelGuide projects the guide window for a single channel
func (s *Station) ChannelGuide(channelID string, from time.Time, span time.Duration) (*guide.Window, error) {
	s.mu.Lock()
	b, ok := s.broadcasts[channelID]
	s.mu.Unlock()

	if !ok {
		return nil, ErrChannelNotFound
	}

	window, err := guide.ProjectWindow(b.rotation, b.epoch, from, span)
	if err != nil {
		return nil, fmt.Errorf("failed to project guide window: %w", err)
	}
	window.ChannelID = channelID
	return window, nil
}

// ExportGuide writes the shows-only guide for every channel as an XMLTV
// document, replacing the file atomically.
func (s *Station) ExportGuide(path string, span time.Duration) error {
	from := s.now()
	ordered := s.broadcastsInDialOrder()

	listings := make([]guide.ChannelListing, 0, len(ordered))
	for _, b := range ordered {
		entries, err := guide.ProjectShows(b.rotation, b.epoch, from, span)
		if err != nil {
			logger.Log.Error().Err(err).Str("channel_id", b.channel.ID).Msg("Failed to project guide for export")
			continue
		}
		listings = append(listings, guide.ChannelListing{
			ID:      b.channel.ID,
			Name:    b.channel.Name,
			Number:  b.channel.Number,
			Entries: entries,
		})
	}

	if err := guide.WriteXMLTV(path, guide.BuildTV(listings)); err != nil {
		return fmt.Errorf("failed to export guide: %w", err)
	}

	logger.Log.Info().
		Str("path", path).
		Int("channels", len(listings)).
		Dur("span", span).
		Msg("Exported XMLTV guide")
	return nil
}

// broadcastsInDialOrder snapshots the live broadcasts sorted by dial number.
// Rotations are immutable once built, so projecting from the returned slice
// is safe without the lock.
func (s *Station) broadcastsInDialOrder() []*broadcast {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.library == nil {
		return nil
	}
	ordered := make([]*broadcast, 0, len(s.broadcasts))
	for _, id := range s.library.ChannelIDs() {
		if b, ok := s.broadcasts[id]; ok {
			ordered = append(ordered, b)
		}
	}
	return ordered
}

// snapshotLocked builds the state snapshot. Callers must hold s.mu.
func (s *Station) snapshotLocked(now time.Time) Snapshot {
	snap := Snapshot{
		Version:      s.version,
		Timestamp:    now,
		ChannelCount: len(s.broadcasts),
		State:        string(timeline.StateNoContent),
		Title:        guide.OffAirTitle,
		Paused:       s.paused,
		Volume:       s.volume,
		Muted:        s.muted,
	}

	b := s.broadcasts[s.activeID]
	if b == nil {
		return snap
	}
	snap.ChannelID = b.channel.ID
	snap.ChannelName = b.channel.Name
	snap.ChannelNumber = b.channel.Number

	s.decayShiftLocked(b, now)
	if b.rotation.IsEmpty() {
		return snap
	}

	adjusted := now.Add(time.Duration(b.shiftSeconds) * time.Second)
	cursor, err := timeline.CursorAt(b.rotation, b.epoch, adjusted)
	if err != nil {
		logger.Log.Warn().Err(err).Str("channel_id", b.channel.ID).Msg("Failed to resolve live cursor")
		return snap
	}

	snap.State = string(cursor.State)
	snap.OffsetSeconds = cursor.OffsetSeconds
	snap.DurationSeconds = cursor.Segment.Duration
	startedAt, endsAt := cursor.StartedAt, cursor.EndsAt
	snap.StartedAt = &startedAt
	snap.EndsAt = &endsAt
	snap.SkipSeconds = b.shiftSeconds

	if item := cursor.Segment.Item; item != nil {
		snap.ItemID = item.ID
		snap.Title = item.Title
		snap.DurationEstimated = item.DurationEstimated
	}
	if cursor.State == timeline.StateCommercial {
		snap.Title = guide.CommercialTitle
	}

	snap.Upcoming = s.upcomingLocked(b, now)
	return snap
}

// upcomingLocked lists the next shows on the channel from broadcast truth,
// skipping the one already airing.
func (s *Station) upcomingLocked(b *broadcast, now time.Time) []guide.Entry {
	entries, err := guide.ProjectShows(b.rotation, b.epoch, now, upcomingSpan)
	if err != nil {
		return nil
	}

	upcoming := make([]guide.Entry, 0, maxUpcoming)
	for _, entry := range entries {
		if entry.InProgress || entry.Kind == guide.KindOffAir {
			continue
		}
		upcoming = append(upcoming, entry)
		if len(upcoming) == maxUpcoming {
			break
		}
	}
	return upcoming
}

// decayShiftLocked zeroes an expired skip adjustment. Callers must hold s.mu.
func (s *Station) decayShiftLocked(b *broadcast, now time.Time) {
	if b.shiftSeconds == 0 {
		return
	}
	if !b.shiftExpiry.After(now) {
		logger.Log.Debug().
			Str("channel_id", b.channel.ID).
			Int64("shift_seconds", b.shiftSeconds).
			Msg("Skip adjustment expired, snapping back to broadcast schedule")
		b.shiftSeconds = 0
		b.shiftExpiry = time.Time{}
	}
}

func (s *Station) copyListenersLocked() []func(Snapshot) {
	listeners := make([]func(Snapshot), len(s.listeners))
	copy(listeners, s.listeners)
	return listeners
}

func (s *Station) notify(snap Snapshot, listeners []func(Snapshot)) {
	for _, fn := range listeners {
		fn(snap)
	}
}

func clampVolume(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}
