package schedule

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rerun-tv/rerun/internal/models"
)

// createTestItem builds a media item with a fixed path-derived ID
func createTestItem(id string, kind models.ItemKind, duration int64) *models.MediaItem {
	return &models.MediaItem{
		ID:       id,
		Path:     "/media/test/" + id + ".mp4",
		Title:    id,
		Kind:     kind,
		Duration: duration,
	}
}

func createTestShows(durations ...int64) []*models.MediaItem {
	shows := make([]*models.MediaItem, len(durations))
	for i, d := range durations {
		shows[i] = createTestItem(fmt.Sprintf("show-%d", i), models.KindShow, d)
	}
	return shows
}

func createTestAds(durations ...int64) []*models.MediaItem {
	ads := make([]*models.MediaItem, len(durations))
	for i, d := range durations {
		ads[i] = createTestItem(fmt.Sprintf("ad-%d", i), models.KindCommercial, d)
	}
	return ads
}

func createTestChannel(shows, commercials, bumpers []*models.MediaItem) *models.Channel {
	return &models.Channel{
		ID:          "test-channel",
		Name:        "Test Channel",
		Number:      1,
		Shows:       shows,
		Commercials: commercials,
		Bumpers:     bumpers,
	}
}

func testPolicy() models.BroadcastPolicy {
	return models.BroadcastPolicy{
		BreakIntervalSec: 600,
		BreakDurationSec: 60,
		UseBumpers:       false,
		ShuffleShows:     false,
	}
}

// kinds extracts the segment kind sequence for easy assertions
func kinds(rot *Rotation) []SegmentKind {
	out := make([]SegmentKind, len(rot.Segments))
	for i, seg := range rot.Segments {
		out[i] = seg.Kind
	}
	return out
}

func TestBuild_NoShowsYieldsEmptyRotation(t *testing.T) {
	ch := createTestChannel(nil, createTestAds(30), nil)
	rot := Build(ch, testPolicy(), 1, nil)

	assert.True(t, rot.IsEmpty())
	assert.Empty(t, rot.Segments)
	assert.Zero(t, rot.CycleDuration)
	assert.NotEmpty(t, rot.Fingerprint)
}

func TestBuild_NoCommercialsMeansNoBreaks(t *testing.T) {
	ch := createTestChannel(createTestShows(300, 300, 300), nil, createTestAds(10))
	policy := testPolicy()
	policy.UseBumpers = true

	rot := Build(ch, policy, 1, nil)

	assert.Equal(t, []SegmentKind{SegmentShow, SegmentShow, SegmentShow}, kinds(rot))
	assert.Equal(t, int64(900), rot.CycleDuration)
}

func TestBuild_BreakAfterAccumulatedRuntime(t *testing.T) {
	// Three 300s shows with a 600s interval: the first break lands after
	// the second show, and the cycle ends without a trailing break
	ch := createTestChannel(createTestShows(300, 300, 300), createTestAds(30, 30), nil)

	rot := Build(ch, testPolicy(), 1, nil)

	expected := []SegmentKind{
		SegmentShow, SegmentShow,
		SegmentCommercial, SegmentCommercial,
		SegmentShow,
	}
	assert.Equal(t, expected, kinds(rot))
	assert.Equal(t, int64(300*3+60), rot.CycleDuration)
}

func TestBuild_LongShowTriggersBreakEachTime(t *testing.T) {
	// Every show alone exceeds the interval, so each one is followed by a break
	ch := createTestChannel(createTestShows(700, 700), createTestAds(60), nil)

	rot := Build(ch, testPolicy(), 1, nil)

	expected := []SegmentKind{
		SegmentShow, SegmentCommercial,
		SegmentShow, SegmentCommercial,
	}
	assert.Equal(t, expected, kinds(rot))
}

func TestBuild_IntervalNeverReachedMeansNoBreaks(t *testing.T) {
	ch := createTestChannel(createTestShows(100, 100), createTestAds(30), nil)

	rot := Build(ch, testPolicy(), 1, nil)

	assert.Equal(t, []SegmentKind{SegmentShow, SegmentShow}, kinds(rot))
}

func TestBuild_PodFillsBreakDurationExactly(t *testing.T) {
	ch := createTestChannel(createTestShows(600), createTestAds(45, 45, 45), nil)
	policy := testPolicy()
	policy.BreakDurationSec = 100

	rot := Build(ch, policy, 1, nil)

	require.Len(t, rot.Segments, 4)
	var podTotal int64
	for _, seg := range rot.Segments[1:] {
		require.Equal(t, SegmentCommercial, seg.Kind)
		podTotal += seg.Duration
	}
	assert.Equal(t, int64(100), podTotal, "pod must fill the break duration exactly")

	// The final commercial is trimmed, not dropped
	last := rot.Segments[3]
	assert.Equal(t, int64(10), last.Duration)
	assert.Equal(t, int64(45), last.Item.Duration)
}

func TestBuild_CommercialsRoundRobinAcrossBreaks(t *testing.T) {
	// Two breaks, two 60s ads, 60s pods: the second break continues the
	// rotation instead of replaying the first ad
	ch := createTestChannel(createTestShows(600, 600), createTestAds(60, 60), nil)

	rot := Build(ch, testPolicy(), 1, nil)

	expected := []SegmentKind{
		SegmentShow, SegmentCommercial,
		SegmentShow, SegmentCommercial,
	}
	require.Equal(t, expected, kinds(rot))
	assert.Equal(t, "ad-0", rot.Segments[1].Item.ID)
	assert.Equal(t, "ad-1", rot.Segments[3].Item.ID)
}

func TestBuild_BumpersWrapPods(t *testing.T) {
	bumpers := []*models.MediaItem{
		createTestItem("bump-0", models.KindBumper, 5),
		createTestItem("bump-1", models.KindBumper, 5),
	}
	ch := createTestChannel(createTestShows(600), createTestAds(60), bumpers)
	policy := testPolicy()
	policy.UseBumpers = true

	rot := Build(ch, policy, 1, nil)

	expected := []SegmentKind{
		SegmentShow,
		SegmentBumper, SegmentCommercial, SegmentBumper,
	}
	require.Equal(t, expected, kinds(rot))
	assert.Equal(t, "bump-0", rot.Segments[1].Item.ID)
	assert.Equal(t, "bump-1", rot.Segments[3].Item.ID)
	assert.Equal(t, int64(600+5+60+5), rot.CycleDuration)
}

func TestBuild_BumpersSkippedWhenDisabled(t *testing.T) {
	bumpers := []*models.MediaItem{createTestItem("bump-0", models.KindBumper, 5)}
	ch := createTestChannel(createTestShows(600), createTestAds(60), bumpers)

	rot := Build(ch, testPolicy(), 1, nil)

	assert.Equal(t, []SegmentKind{SegmentShow, SegmentCommercial}, kinds(rot))
}

func TestBuild_ShuffleDisabledKeepsCatalogOrder(t *testing.T) {
	ch := createTestChannel(createTestShows(100, 100, 100), nil, nil)

	rot := Build(ch, testPolicy(), 99, nil)

	assert.Equal(t, []string{"show-0", "show-1", "show-2"}, rot.ShowOrder)
}

func TestBuild_DeterministicForSeed(t *testing.T) {
	ch := createTestChannel(createTestShows(100, 200, 300, 400, 500), nil, nil)
	policy := testPolicy()
	policy.ShuffleShows = true

	rot1 := Build(ch, policy, 42, nil)
	rot2 := Build(ch, policy, 42, nil)

	assert.Equal(t, rot1.ShowOrder, rot2.ShowOrder)
	assert.Equal(t, rot1.CycleDuration, rot2.CycleDuration)
	assert.Equal(t, kinds(rot1), kinds(rot2))
}

func TestBuild_SeedsProduceDistinctOrders(t *testing.T) {
	ch := createTestChannel(createTestShows(1, 2, 3, 4, 5, 6), nil, nil)
	policy := testPolicy()
	policy.ShuffleShows = true

	orders := make(map[string]bool)
	for seed := int64(0); seed < 10; seed++ {
		rot := Build(ch, policy, seed, nil)
		orders[fmt.Sprint(rot.ShowOrder)] = true
	}

	assert.Greater(t, len(orders), 1, "different seeds should not all collapse to one order")
}

func TestBuild_AvoidsRepeatingPreviousOrder(t *testing.T) {
	ch := createTestChannel(createTestShows(100, 100, 100, 100, 100), nil, nil)
	policy := testPolicy()
	policy.ShuffleShows = true

	first := Build(ch, policy, 42, nil)
	second := Build(ch, policy, 42, first.ShowOrder)

	assert.NotEqual(t, first.ShowOrder, second.ShowOrder,
		"a rebuild with the same seed must re-roll away from the previous order")
}

func TestBuild_SingleShowCannotAvoidRepeat(t *testing.T) {
	ch := createTestChannel(createTestShows(100), nil, nil)
	policy := testPolicy()
	policy.ShuffleShows = true

	rot := Build(ch, policy, 7, []string{"show-0"})

	assert.Equal(t, []string{"show-0"}, rot.ShowOrder)
}

func TestBuildWithOrder_ReproducesPersistedOrder(t *testing.T) {
	ch := createTestChannel(createTestShows(100, 200, 300), createTestAds(30), nil)

	persisted := []string{"show-2", "show-0", "show-1"}
	rot := BuildWithOrder(ch, testPolicy(), 42, persisted)

	assert.Equal(t, persisted, rot.ShowOrder)
	assert.Equal(t, int64(42), rot.Seed)
}

func TestBuildWithOrder_DropsMissingAndAppendsNew(t *testing.T) {
	ch := createTestChannel(createTestShows(100, 200, 300), nil, nil)

	// show-9 no longer exists; show-2 is new since the order was persisted
	rot := BuildWithOrder(ch, testPolicy(), 1, []string{"show-1", "show-9", "show-0"})

	assert.Equal(t, []string{"show-1", "show-0", "show-2"}, rot.ShowOrder)
}

func TestBuild_CycleDurationSumsSegments(t *testing.T) {
	ch := createTestChannel(createTestShows(610, 450), createTestAds(25, 40), nil)

	rot := Build(ch, testPolicy(), 1, nil)

	var sum int64
	for _, seg := range rot.Segments {
		sum += seg.Duration
	}
	assert.Equal(t, sum, rot.CycleDuration)
}

func TestFingerprint_StableForSameContent(t *testing.T) {
	ch1 := createTestChannel(createTestShows(100, 200), createTestAds(30), nil)
	ch2 := createTestChannel(createTestShows(100, 200), createTestAds(30), nil)

	assert.Equal(t, Fingerprint(ch1, testPolicy()), Fingerprint(ch2, testPolicy()))
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	base := createTestChannel(createTestShows(100, 200), createTestAds(30), nil)
	baseFP := Fingerprint(base, testPolicy())

	t.Run("duration change", func(t *testing.T) {
		ch := createTestChannel(createTestShows(100, 201), createTestAds(30), nil)
		assert.NotEqual(t, baseFP, Fingerprint(ch, testPolicy()))
	})

	t.Run("added item", func(t *testing.T) {
		ch := createTestChannel(createTestShows(100, 200, 300), createTestAds(30), nil)
		assert.NotEqual(t, baseFP, Fingerprint(ch, testPolicy()))
	})

	t.Run("item order", func(t *testing.T) {
		shows := createTestShows(100, 200)
		ch := createTestChannel([]*models.MediaItem{shows[1], shows[0]}, createTestAds(30), nil)
		assert.NotEqual(t, baseFP, Fingerprint(ch, testPolicy()))
	})

	t.Run("policy change", func(t *testing.T) {
		policy := testPolicy()
		policy.BreakIntervalSec = 900
		assert.NotEqual(t, baseFP, Fingerprint(base, policy))
	})
}

func TestRotation_IsEmpty(t *testing.T) {
	var nilRot *Rotation
	assert.True(t, nilRot.IsEmpty())
	assert.True(t, (&Rotation{}).IsEmpty())

	ch := createTestChannel(createTestShows(100), nil, nil)
	assert.False(t, Build(ch, testPolicy(), 1, nil).IsEmpty())
}

func TestRotation_ShowCount(t *testing.T) {
	ch := createTestChannel(createTestShows(700, 700), createTestAds(60), nil)
	rot := Build(ch, testPolicy(), 1, nil)

	assert.Equal(t, 2, rot.ShowCount())
	assert.Equal(t, 0, (&Rotation{}).ShowCount())
}
