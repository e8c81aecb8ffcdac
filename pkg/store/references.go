package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/models"
)

// UpsertUser stores a user under its platform id unless it is already
// known, and returns the id. An existing row keeps its stored username;
// renames go through RenameUser.
func (s *Store) UpsertUser(ctx context.Context, userID, username string) (string, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO "user" (id, username) VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING`,
		userID, username,
	)
	if err != nil {
		s.fail(err, "could not store user", map[string]interface{}{"user_id": userID, "username": username})
		return "", errs.Wrap(errs.ErrorTypeStorage, err, "upsert user "+username)
	}
	return userID, nil
}

// UpsertTag looks up a tag by name, creating it with a new id when absent.
func (s *Store) UpsertTag(ctx context.Context, tagname string) (string, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tag (id, tagname) VALUES (?, ?)
		ON CONFLICT(tagname) DO NOTHING`,
		uuid.NewString(), tagname,
	)
	if err == nil {
		var id string
		err = s.db.QueryRowContext(ctx, `SELECT id FROM tag WHERE tagname = ?`, tagname).Scan(&id)
		if err == nil {
			return id, nil
		}
	}
	s.fail(err, "could not store tag", map[string]interface{}{"tag": tagname})
	return "", errs.Wrap(errs.ErrorTypeStorage, err, "upsert tag "+tagname)
}

// RenameUser updates the stored username of userID.
func (s *Store) RenameUser(ctx context.Context, userID, newName string) bool {
	res, err := s.db.ExecContext(ctx, `UPDATE "user" SET username = ? WHERE id = ?`, newName, userID)
	if err != nil {
		return s.fail(err, "could not rename user", map[string]interface{}{"user_id": userID, "username": newName})
	}
	n, _ := res.RowsAffected()
	return n > 0
}

// RemoveUser deletes a user. Its posts lose their owner and are deleted
// when no tag listing references them either.
func (s *Store) RemoveUser(ctx context.Context, username string) bool {
	return s.remove(ctx, `DELETE FROM "user" WHERE username = ?`, username, "user")
}

// RemoveTag deletes a tag with its listings and the posts only it held.
func (s *Store) RemoveTag(ctx context.Context, tagname string) bool {
	return s.remove(ctx, `DELETE FROM tag WHERE tagname = ?`, tagname, "tag")
}

// RemoveAllUsers deletes every user.
func (s *Store) RemoveAllUsers(ctx context.Context) bool {
	return s.remove(ctx, `DELETE FROM "user"`, nil, "user")
}

// RemoveAllTags deletes every tag.
func (s *Store) RemoveAllTags(ctx context.Context) bool {
	return s.remove(ctx, `DELETE FROM tag`, nil, "tag")
}

func (s *Store) remove(ctx context.Context, query string, name interface{}, kind string) bool {
	var args []interface{}
	if name != nil {
		args = append(args, name)
	}

	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return s.fail(err, "could not remove "+kind, map[string]interface{}{"name": name})
	}
	if removed == 0 && name != nil {
		s.logger.WithField("name", name).Debug(kind + " not stored, nothing removed")
		return false
	}
	return true
}

// UserIDByUsername returns the stored id of username.
func (s *Store) UserIDByUsername(ctx context.Context, username string) (string, bool) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM "user" WHERE username = ?`, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		return "", s.fail(err, "could not look up user", map[string]interface{}{"username": username})
	}
	return id, true
}

// UsernameByID returns the username stored for userID.
func (s *Store) UsernameByID(ctx context.Context, userID string) (string, bool) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT username FROM "user" WHERE id = ?`, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		return "", s.fail(err, "could not look up user", map[string]interface{}{"user_id": userID})
	}
	return name, true
}

// UserExists reports whether username is stored.
func (s *Store) UserExists(ctx context.Context, username string) bool {
	return s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM "user" WHERE username = ?)`, username)
}

// TagExists reports whether tagname is stored.
func (s *Store) TagExists(ctx context.Context, tagname string) bool {
	return s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM tag WHERE tagname = ?)`, tagname)
}

// Users returns every stored user ordered by username.
func (s *Store) Users(ctx context.Context) []models.User {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username FROM "user" ORDER BY username`)
	if err != nil {
		s.fail(err, "could not list users", nil)
		return nil
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			s.fail(err, "could not read user row", nil)
			return nil
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		s.fail(err, "could not list users", nil)
		return nil
	}
	return users
}

// Usernames returns every stored username in order.
func (s *Store) Usernames(ctx context.Context) []string {
	return s.names(ctx, `SELECT username FROM "user" ORDER BY username`)
}

// Tagnames returns every stored tag name in order.
func (s *Store) Tagnames(ctx context.Context) []string {
	return s.names(ctx, `SELECT tagname FROM tag ORDER BY tagname`)
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	if err := scanner.Scan(&u.ID, &u.Username); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) names(ctx context.Context, query string) []string {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.fail(err, "could not list names", nil)
		return nil
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			s.fail(err, "could not read name", nil)
			return nil
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		s.fail(err, "could not list names", nil)
		return nil
	}
	return names
}

func (s *Store) exists(ctx context.Context, query string, args ...interface{}) bool {
	var found bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return s.fail(err, "existence check failed", map[string]interface{}{"args": fmt.Sprint(args...)})
	}
	return found
}
