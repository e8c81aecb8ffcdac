package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
)

const (
	linkA = "https://www.instagram.com/p/AAA/"
	linkB = "https://www.instagram.com/p/BBB/"
)

func newTestStore(t *testing.T) (*Store, *logger.TestLogger) {
	t.Helper()
	log := logger.NewTestLogger()
	s, err := Open(MemoryPath, log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, log
}

type postRow struct {
	id          string
	hasMultiple bool
	userID      sql.NullString
}

func getPost(t *testing.T, s *Store, link string) (postRow, bool) {
	t.Helper()
	var r postRow
	err := s.db.QueryRow(`SELECT id, has_multiple_content, user_id FROM post WHERE link = ?`, link).
		Scan(&r.id, &r.hasMultiple, &r.userID)
	if err == sql.ErrNoRows {
		return r, false
	}
	require.NoError(t, err)
	return r, true
}

func rowCount(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestOpenCreatesFileAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "crawl.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	var journal string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	var fk int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	for _, table := range []string{`"user"`, "tag", "post", "tag_post"} {
		assert.Equal(t, 0, rowCount(t, s, table), table)
	}
}

func TestPragmasHoldOnFreshConnections(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "crawl.db"), nil)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	// every statement below runs on a newly opened connection
	s.db.SetMaxIdleConns(0)

	for i := 0; i < 3; i++ {
		var fk, timeout int
		require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
		require.NoError(t, s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 1, fk)
		assert.Equal(t, 5000, timeout)
	}

	_, err = s.UpsertTag(ctx, "sunset")
	require.NoError(t, err)
	require.True(t, s.RecordPost(ctx, linkA, false, ""))
	require.True(t, s.RecordTagPost(ctx, linkA, "sunset", models.ListingRecent))
	require.True(t, s.RemoveTag(ctx, "sunset"))
	assert.Equal(t, 0, rowCount(t, s, "tag_post"))
	assert.Equal(t, 0, s.PostCount(ctx))
}

func TestEnsureSchemaIsNotDestructive(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.True(t, s.RecordPost(ctx, linkA, false, ""))
	require.NoError(t, s.EnsureSchema(ctx))
	assert.Equal(t, 1, s.PostCount(ctx))
}

func TestUpsertTagIsLookupOrCreate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	id1, err := s.UpsertTag(ctx, "sunset")
	require.NoError(t, err)
	id2, err := s.UpsertTag(ctx, "sunset")
	require.NoError(t, err)

	assert.NotEmpty(t, id1)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, rowCount(t, s, "tag"))
	assert.True(t, s.TagExists(ctx, "sunset"))
	assert.False(t, s.TagExists(ctx, "sunrise"))
}

func TestUpsertUserKeepsStoredName(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertUser(ctx, "787132", "natgeo")
	require.NoError(t, err)
	assert.Equal(t, "787132", id)

	_, err = s.UpsertUser(ctx, "787132", "natgeo_old")
	require.NoError(t, err)

	assert.Equal(t, 1, rowCount(t, s, `"user"`))
	assert.Equal(t, []string{"natgeo"}, s.Usernames(ctx))
}

func TestRecordPostIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.True(t, s.RecordPost(ctx, linkA, true, ""))
	require.True(t, s.RecordPost(ctx, linkA, true, ""))

	assert.Equal(t, 1, s.PostCount(ctx))
	row, ok := getPost(t, s, linkA)
	require.True(t, ok)
	assert.True(t, row.hasMultiple)
	assert.False(t, row.userID.Valid)
}

func TestRecordPostAttachesMissingOwner(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, "1", "alice")
	require.NoError(t, err)

	require.True(t, s.RecordPost(ctx, linkA, false, ""))
	require.True(t, s.RecordPost(ctx, linkA, false, "1"))

	row, _ := getPost(t, s, linkA)
	assert.Equal(t, "1", row.userID.String)
	assert.True(t, s.PostRecordedForUser(ctx, "alice", linkA))
}

func TestRecordPostNeverClearsOwner(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, "1", "alice")
	require.NoError(t, err)
	_, err = s.UpsertUser(ctx, "2", "bob")
	require.NoError(t, err)

	require.True(t, s.RecordPost(ctx, linkA, false, "1"))
	require.True(t, s.RecordPost(ctx, linkA, false, ""))
	require.True(t, s.RecordPost(ctx, linkA, false, "2"))

	row, _ := getPost(t, s, linkA)
	assert.Equal(t, "1", row.userID.String)
	assert.Equal(t, 1, s.PostCount(ctx))
}

func TestRecordPostUnknownOwnerFailsOpen(t *testing.T) {
	s, log := newTestStore(t)
	ctx := context.Background()

	assert.False(t, s.RecordPost(ctx, linkA, false, "does-not-exist"))
	assert.True(t, log.HasMessage("could not record post"))
	assert.Equal(t, 0, s.PostCount(ctx))
}

func TestRecordTagPostMergesListingFlags(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertTag(ctx, "foo")
	require.NoError(t, err)
	require.True(t, s.RecordPost(ctx, linkA, false, ""))

	require.True(t, s.RecordTagPost(ctx, linkA, "foo", models.ListingTop))
	require.True(t, s.RecordTagPost(ctx, linkA, "foo", models.ListingRecent))
	require.True(t, s.RecordTagPost(ctx, linkA, "foo", models.ListingTop))

	var inTop, inRecent bool
	require.NoError(t, s.db.QueryRow(`SELECT in_top, in_recent FROM tag_post`).Scan(&inTop, &inRecent))
	assert.True(t, inTop)
	assert.True(t, inRecent)
	assert.Equal(t, 1, rowCount(t, s, "tag_post"))

	assert.Equal(t, 1, s.TagPostCount(ctx, "foo", models.ListingTop))
	assert.Equal(t, 1, s.TagPostCount(ctx, "foo", models.ListingRecent))
	assert.Equal(t, 1, s.TagPostCount(ctx, "foo", ""))
}

func TestRecordTagPostRequiresTagAndPost(t *testing.T) {
	s, log := newTestStore(t)
	ctx := context.Background()

	assert.False(t, s.RecordTagPost(ctx, linkA, "foo", models.ListingTop))
	assert.True(t, log.HasMessageContaining("association skipped"))
	assert.Equal(t, 0, rowCount(t, s, "tag_post"))
}

func TestRemoveUserDeletesOrphanedPosts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, "1", "alice")
	require.NoError(t, err)
	require.True(t, s.RecordPost(ctx, linkA, false, "1"))

	require.True(t, s.RemoveUser(ctx, "alice"))

	_, ok := getPost(t, s, linkA)
	assert.False(t, ok)
	assert.False(t, s.UserExists(ctx, "alice"))
}

func TestRemoveUserKeepsTaggedPosts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, "1", "alice")
	require.NoError(t, err)
	_, err = s.UpsertTag(ctx, "sunset")
	require.NoError(t, err)
	require.True(t, s.RecordPost(ctx, linkA, false, "1"))
	require.True(t, s.RecordTagPost(ctx, linkA, "sunset", models.ListingRecent))

	require.True(t, s.RemoveUser(ctx, "alice"))

	row, ok := getPost(t, s, linkA)
	require.True(t, ok)
	assert.False(t, row.userID.Valid)
	assert.Equal(t, 1, rowCount(t, s, "tag_post"))
}

func TestRemoveTagCascades(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, "1", "alice")
	require.NoError(t, err)
	_, err = s.UpsertTag(ctx, "sunset")
	require.NoError(t, err)

	require.True(t, s.RecordPost(ctx, linkA, false, ""))
	require.True(t, s.RecordPost(ctx, linkB, false, "1"))
	require.True(t, s.RecordTagPost(ctx, linkA, "sunset", models.ListingTop))
	require.True(t, s.RecordTagPost(ctx, linkB, "sunset", models.ListingTop))

	require.True(t, s.RemoveTag(ctx, "sunset"))

	assert.Equal(t, 0, rowCount(t, s, "tag_post"))
	_, ok := getPost(t, s, linkA)
	assert.False(t, ok, "tag-only post is orphaned")
	_, ok = getPost(t, s, linkB)
	assert.True(t, ok, "owned post survives")
}

func TestRemoveUnknownReturnsFalse(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	assert.False(t, s.RemoveUser(ctx, "ghost"))
	assert.False(t, s.RemoveTag(ctx, "ghost"))
}

func TestRemoveAll(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, "1", "alice")
	require.NoError(t, err)
	_, err = s.UpsertUser(ctx, "2", "bob")
	require.NoError(t, err)
	_, err = s.UpsertTag(ctx, "sunset")
	require.NoError(t, err)
	require.True(t, s.RecordPost(ctx, linkA, false, "1"))
	require.True(t, s.RecordPost(ctx, linkB, false, "2"))
	require.True(t, s.RecordTagPost(ctx, linkB, "sunset", models.ListingTop))

	require.True(t, s.RemoveAllUsers(ctx))
	assert.Empty(t, s.Usernames(ctx))
	assert.Equal(t, 1, s.PostCount(ctx))

	require.True(t, s.RemoveAllTags(ctx))
	assert.Empty(t, s.Tagnames(ctx))
	assert.Equal(t, 0, s.PostCount(ctx))
}

func TestRenameUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertUser(ctx, "1", "alice")
	require.NoError(t, err)
	require.True(t, s.RecordPost(ctx, linkA, false, "1"))

	require.True(t, s.RenameUser(ctx, "1", "alice.new"))
	assert.False(t, s.RenameUser(ctx, "404", "nobody"))

	id, ok := s.UserIDByUsername(ctx, "alice.new")
	assert.True(t, ok)
	assert.Equal(t, "1", id)
	name, ok := s.UsernameByID(ctx, "1")
	assert.True(t, ok)
	assert.Equal(t, "alice.new", name)
	_, ok = s.UsernameByID(ctx, "404")
	assert.False(t, ok)

	assert.True(t, s.PostRecordedForUser(ctx, "alice.new", linkA))
	assert.False(t, s.PostRecordedForUser(ctx, "alice", linkA))
	assert.Equal(t, 1, s.UserPostCount(ctx, "alice.new"))
}

func TestUsersAreOrdered(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	for id, name := range map[string]string{"3": "carol", "1": "alice", "2": "bob"} {
		_, err := s.UpsertUser(ctx, id, name)
		require.NoError(t, err)
	}

	assert.Equal(t, []models.User{{ID: "1", Username: "alice"}, {ID: "2", Username: "bob"}, {ID: "3", Username: "carol"}}, s.Users(ctx))

	_, ok := s.UserIDByUsername(ctx, "dave")
	assert.False(t, ok)
}
