package models

import "time"

// EntityKind distinguishes the two crawl targets.
type EntityKind string

const (
	EntityUser EntityKind = "user"
	EntityTag  EntityKind = "tag"
)

// ListingMode selects which section of a tag's explore page is crawled.
type ListingMode string

const (
	ListingTop    ListingMode = "top"
	ListingRecent ListingMode = "recent"
)

// Valid reports whether m is a known listing mode.
func (m ListingMode) Valid() bool {
	return m == ListingTop || m == ListingRecent
}

// MediaKind is the type of a single media item.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaItem is one downloadable image or video of a post or story.
type MediaItem struct {
	URL      string
	Kind     MediaKind
	Index    int
	Filename string
}

// PostContent is what the extractor found on a post page.
type PostContent struct {
	Link        string
	Shortcode   string
	PublishedAt *time.Time
	HasMultiple bool
	Items       []MediaItem
	// Skipped counts carousel items with neither image nor video.
	Skipped int
}

// User is a stored account row.
type User struct {
	ID       string
	Username string
}

// EntityResult is the per-entity crawl summary.
type EntityResult struct {
	Kind       EntityKind
	Name       string
	Total      int
	Attempted  int
	Succeeded  int
	SkipReason string
}

// Complete reports whether every attempted post was saved.
func (r EntityResult) Complete() bool {
	return r.SkipReason == "" && r.Attempted == r.Succeeded
}
