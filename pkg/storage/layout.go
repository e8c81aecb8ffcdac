package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"igcrawler/pkg/models"
)

const (
	usersDir        = "users"
	tagsDir         = "tags"
	postsDir        = "posts"
	storiesDir      = "stories"
	displayPhotoDir = "display_photo"
)

// ErrInvalidName is returned for entity or file names that would escape
// their directory.
var ErrInvalidName = errors.New("invalid name")

// Layout maps entities onto directories below Root.
type Layout struct {
	Root string
}

// New creates the output root if needed.
func New(root string) (*Layout, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Layout{Root: root}, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// UserDir is the directory of a user.
func (l *Layout) UserDir(username string) string {
	return filepath.Join(l.Root, usersDir, username)
}

// UserPostsDir holds the media of a user's posts.
func (l *Layout) UserPostsDir(username string) string {
	return filepath.Join(l.UserDir(username), postsDir)
}

// UserStoriesDir holds a user's stories.
func (l *Layout) UserStoriesDir(username string) string {
	return filepath.Join(l.UserDir(username), storiesDir)
}

// UserDisplayPhotoDir holds a user's profile picture.
func (l *Layout) UserDisplayPhotoDir(username string) string {
	return filepath.Join(l.UserDir(username), displayPhotoDir)
}

// TagDir is the directory of a tag.
func (l *Layout) TagDir(tag string) string {
	return filepath.Join(l.Root, tagsDir, tag)
}

// TagListingDir holds the media found through one of a tag's listings.
func (l *Layout) TagListingDir(tag string, mode models.ListingMode) string {
	return filepath.Join(l.TagDir(tag), string(mode))
}

// EnsureUserDirs creates the directories of a user.
func (l *Layout) EnsureUserDirs(username string) error {
	if err := checkName(username); err != nil {
		return err
	}
	return mkdirAll(l.UserPostsDir(username), l.UserStoriesDir(username), l.UserDisplayPhotoDir(username))
}

// EnsureTagDirs creates the directories of a tag.
func (l *Layout) EnsureTagDirs(tag string) error {
	if err := checkName(tag); err != nil {
		return err
	}
	return mkdirAll(l.TagListingDir(tag, models.ListingTop), l.TagListingDir(tag, models.ListingRecent))
}

func mkdirAll(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// RenameUserDir moves a user's downloads after the account was renamed. A
// missing old directory just creates the new one.
func (l *Layout) RenameUserDir(oldName, newName string) error {
	if err := checkName(oldName); err != nil {
		return err
	}
	if err := checkName(newName); err != nil {
		return err
	}

	from, to := l.UserDir(oldName), l.UserDir(newName)
	if _, err := os.Stat(from); errors.Is(err, os.ErrNotExist) {
		return l.EnsureUserDirs(newName)
	}
	if _, err := os.Stat(to); err == nil {
		if !emptyTree(to) {
			return fmt.Errorf("cannot rename %s: %s already exists", from, to)
		}
		if err := os.RemoveAll(to); err != nil {
			return fmt.Errorf("failed to clear %s: %w", to, err)
		}
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to rename user directory: %w", err)
	}
	return l.EnsureUserDirs(newName)
}

// emptyTree reports whether dir holds directories only.
func emptyTree(dir string) bool {
	empty := true
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			empty = false
			return filepath.SkipAll
		}
		return nil
	})
	return empty
}

// RemoveUserDir deletes a user's downloads.
func (l *Layout) RemoveUserDir(username string) error {
	if err := checkName(username); err != nil {
		return err
	}
	return os.RemoveAll(l.UserDir(username))
}

// RemoveTagDir deletes a tag's downloads.
func (l *Layout) RemoveTagDir(tag string) error {
	if err := checkName(tag); err != nil {
		return err
	}
	return os.RemoveAll(l.TagDir(tag))
}

// RemoveAll deletes the downloads of every entity of kind.
func (l *Layout) RemoveAll(kind models.EntityKind) error {
	switch kind {
	case models.EntityUser:
		return os.RemoveAll(filepath.Join(l.Root, usersDir))
	case models.EntityTag:
		return os.RemoveAll(filepath.Join(l.Root, tagsDir))
	default:
		return fmt.Errorf("unknown entity kind %q", kind)
	}
}

// Exists reports whether filename is present in dir.
func (l *Layout) Exists(dir, filename string) bool {
	_, err := os.Stat(filepath.Join(dir, filename))
	return err == nil
}

// SaveMedia writes r to dir/filename and returns the number of bytes
// written. The file only appears under its final name once complete.
func (l *Layout) SaveMedia(r io.Reader, dir, filename string) (int64, error) {
	if err := checkName(filename); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.CreateTemp(dir, "."+filename+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	n, err := io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to save media data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filepath.Join(dir, filename)); err != nil {
		os.Remove(tempFile)
		return n, fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return n, nil
}
