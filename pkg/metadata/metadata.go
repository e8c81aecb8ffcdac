// Package metadata writes a JSON sidecar describing each saved post next to
// its media files.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"igcrawler/pkg/models"
)

// PostMetadata describes one saved post.
type PostMetadata struct {
	Link        string     `json:"link"`
	Shortcode   string     `json:"shortcode"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	HasMultiple bool       `json:"has_multiple"`

	// Source is the user or tag the post was crawled through.
	Source Source `json:"source"`

	Items        []Item    `json:"items"`
	Skipped      int       `json:"skipped,omitempty"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Source names the crawled entity.
type Source struct {
	Kind models.EntityKind `json:"kind"`
	Name string            `json:"name"`
}

// Item is one media file of the post.
type Item struct {
	Index    int              `json:"index"`
	Kind     models.MediaKind `json:"kind"`
	URL      string           `json:"url"`
	Filename string           `json:"filename"`
}

// FromPost builds the sidecar for content crawled through kind/name.
func FromPost(content *models.PostContent, kind models.EntityKind, name string) *PostMetadata {
	meta := &PostMetadata{
		Link:         content.Link,
		Shortcode:    content.Shortcode,
		PublishedAt:  content.PublishedAt,
		HasMultiple:  content.HasMultiple,
		Source:       Source{Kind: kind, Name: name},
		Skipped:      content.Skipped,
		DownloadedAt: time.Now().UTC(),
	}
	for _, item := range content.Items {
		meta.Items = append(meta.Items, Item{
			Index:    item.Index,
			Kind:     item.Kind,
			URL:      item.URL,
			Filename: item.Filename,
		})
	}
	return meta
}

// Path is the sidecar location for shortcode inside dir.
func Path(dir, shortcode string) string {
	return filepath.Join(dir, shortcode+".json")
}

// Save writes the sidecar into dir, replacing an older one.
func (m *PostMetadata) Save(dir string) error {
	if m.Shortcode == "" {
		return fmt.Errorf("metadata for %s has no shortcode", m.Link)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	path := Path(dir, m.Shortcode)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// Load reads the sidecar of shortcode from dir.
func Load(dir, shortcode string) (*PostMetadata, error) {
	data, err := os.ReadFile(Path(dir, shortcode))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta PostMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// Exists reports whether dir holds a sidecar for shortcode.
func Exists(dir, shortcode string) bool {
	_, err := os.Stat(Path(dir, shortcode))
	return err == nil
}
