package store

import (
	"context"

	"github.com/google/uuid"
	"igcrawler/pkg/models"
)

// RecordPost stores a post by its canonical link. Recording a known link
// only attaches an owner when none was stored; an owner is never cleared.
// An empty ownerID records the post without an owner.
func (s *Store) RecordPost(ctx context.Context, link string, hasMultiple bool, ownerID string) bool {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post (id, link, has_multiple_content, user_id)
		VALUES (?, ?, ?, NULLIF(?, ''))
		ON CONFLICT(link) DO UPDATE SET
			user_id = COALESCE(post.user_id, excluded.user_id)`,
		uuid.NewString(), link, boolInt(hasMultiple), ownerID,
	)
	if err != nil {
		return s.fail(err, "could not record post", map[string]interface{}{"link": link, "owner": ownerID})
	}
	return true
}

// RecordTagPost associates a recorded post with a tag through the listing
// it was found in. Flags from earlier listings are kept, so a post found in
// both listings ends up with both set.
func (s *Store) RecordTagPost(ctx context.Context, link, tagname string, via models.ListingMode) bool {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tag_post (tag_id, post_id, in_top, in_recent)
		SELECT t.id, p.id, ?, ?
		FROM tag t, post p
		WHERE t.tagname = ? AND p.link = ?
		ON CONFLICT(tag_id, post_id) DO UPDATE SET
			in_top    = MAX(tag_post.in_top, excluded.in_top),
			in_recent = MAX(tag_post.in_recent, excluded.in_recent)`,
		boolInt(via == models.ListingTop), boolInt(via == models.ListingRecent), tagname, link,
	)
	fields := map[string]interface{}{"link": link, "tag": tagname, "listing": string(via)}
	if err != nil {
		return s.fail(err, "could not record tag post", fields)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.logger.WarnWithFields("tag or post not stored, association skipped", fields)
		return false
	}
	return true
}

// PostRecordedForUser reports whether link is stored as owned by username.
// Lookup failures count as not recorded.
func (s *Store) PostRecordedForUser(ctx context.Context, username, link string) bool {
	return s.exists(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM post p JOIN "user" u ON p.user_id = u.id
			WHERE u.username = ? AND p.link = ?)`,
		username, link,
	)
}

// PostCount returns the number of stored posts.
func (s *Store) PostCount(ctx context.Context) int {
	return s.count(ctx, `SELECT COUNT(*) FROM post`)
}

// UserPostCount returns the number of posts owned by username.
func (s *Store) UserPostCount(ctx context.Context, username string) int {
	return s.count(ctx, `
		SELECT COUNT(*) FROM post p JOIN "user" u ON p.user_id = u.id
		WHERE u.username = ?`, username)
}

// TagPostCount returns the number of posts of tagname found through mode.
// An empty mode counts posts from either listing.
func (s *Store) TagPostCount(ctx context.Context, tagname string, mode models.ListingMode) int {
	query := `
		SELECT COUNT(*) FROM tag_post tp JOIN tag t ON tp.tag_id = t.id
		WHERE t.tagname = ?`
	switch mode {
	case models.ListingTop:
		query += ` AND tp.in_top = 1`
	case models.ListingRecent:
		query += ` AND tp.in_recent = 1`
	}
	return s.count(ctx, query, tagname)
}

func (s *Store) count(ctx context.Context, query string, args ...interface{}) int {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		s.fail(err, "count query failed", nil)
		return 0
	}
	return n
}
