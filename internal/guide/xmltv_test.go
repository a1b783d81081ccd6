package guide

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testListings() []ChannelListing {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return []ChannelListing{
		{
			ID:     "retro-tv",
			Name:   "Retro TV",
			Number: 1,
			Entries: []Entry{
				{Kind: KindShow, Title: "Morning Cartoons", Start: start, End: start.Add(300 * time.Second)},
				{Kind: KindCommercial, Title: CommercialTitle, Start: start.Add(300 * time.Second), End: start.Add(360 * time.Second)},
			},
		},
		{
			ID:     "midnight-movies",
			Name:   "Midnight Movies",
			Number: 2,
			Entries: []Entry{
				{Kind: KindOffAir, Title: OffAirTitle, Start: start, End: start.Add(time.Hour)},
			},
		},
	}
}

func TestBuildTV(t *testing.T) {
	tv := BuildTV(testListings())

	require.Len(t, tv.Channels, 2)
	assert.Equal(t, "retro-tv", tv.Channels[0].ID)
	assert.Equal(t, []string{"Retro TV", "1"}, tv.Channels[0].DisplayName)
	assert.Equal(t, []string{"Midnight Movies", "2"}, tv.Channels[1].DisplayName)

	require.Len(t, tv.Programmes, 3)
	assert.Equal(t, "retro-tv", tv.Programmes[0].Channel)
	assert.Equal(t, "Morning Cartoons", tv.Programmes[0].Title.Value)

	// Timestamps round-trip through the XMLTV layout
	parsed, err := time.Parse(xmltvTimeLayout, tv.Programmes[0].Start)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)))
}

func TestBuildTV_Empty(t *testing.T) {
	tv := BuildTV(nil)
	assert.Empty(t, tv.Channels)
	assert.NotNil(t, tv.Programmes)
}

func TestWriteXMLTV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guide.xml")
	require.NoError(t, WriteXMLTV(path, BuildTV(testListings())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<?xml version="1.0" encoding="UTF-8"?>`)

	var decoded TV
	require.NoError(t, xml.Unmarshal(data, &decoded))
	assert.Equal(t, "rerun", decoded.Generator)
	require.Len(t, decoded.Channels, 2)
	require.Len(t, decoded.Programmes, 3)
	assert.Equal(t, CommercialTitle, decoded.Programmes[1].Title.Value)
}

func TestWriteXMLTV_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guide.xml")
	require.NoError(t, os.WriteFile(path, []byte("stale guide"), 0o644))

	require.NoError(t, WriteXMLTV(path, BuildTV(testListings()[:1])))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale guide")

	var decoded TV
	require.NoError(t, xml.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Channels, 1)
}
