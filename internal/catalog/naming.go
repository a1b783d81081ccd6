package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Patterns for cleaning display titles and building channel slugs
var (
	// "Show Name S01E04" or "Show - S1E12 - Title"
	episodeTagPattern = regexp.MustCompile(`(?i)\s*-?\s*s\d{1,2}e\d{1,3}\s*-?\s*`)

	// "Show Episode 7" or "Episode 12 - Show"
	episodeWordPattern = regexp.MustCompile(`(?i)\s*-?\s*episode\s*\d+\s*-?\s*`)

	separatorPattern = regexp.MustCompile(`[._]+`)
	spacePattern     = regexp.MustCompile(`\s+`)
	slugPattern      = regexp.MustCompile(`[^a-z0-9]+`)
)

// CleanTitle derives a display title from a media file path. Episode tags
// and filename separators are stripped so "Cheers.S02E11.mkv" becomes
// "Cheers".
func CleanTitle(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	cleaned := separatorPattern.ReplaceAllString(name, " ")
	cleaned = episodeTagPattern.ReplaceAllString(cleaned, " ")
	cleaned = episodeWordPattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(spacePattern.ReplaceAllString(cleaned, " "))

	// If stripping removed everything, fall back to the raw name
	if cleaned == "" {
		return name
	}
	return cleaned
}

// Slugify converts a channel folder name into a stable URL-safe identifier
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "channel"
	}
	return slug
}

// StableID builds a deterministic identifier for a media file from its path
// and size. The same file always maps to the same ID across scans, which
// keeps persisted show orders valid between restarts.
func StableID(path string, size int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", path, size)))
	return hex.EncodeToString(sum[:])[:16]
}
