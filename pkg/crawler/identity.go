package crawler

import "context"

// UserIDSource resolves a username to the account's numeric id.
type UserIDSource interface {
	UserID(ctx context.Context, username string) (string, error)
}

// UsernameSource resolves a numeric id to the account's current username.
type UsernameSource interface {
	Username(ctx context.Context, userID string) (string, error)
}

// IdentityResolver maps between usernames and ids. instagram.Client
// implements it for anonymous runs.
type IdentityResolver interface {
	UserIDSource
	UsernameSource
}

type identity struct {
	UserIDSource
	UsernameSource
}

// CombineIdentity resolves ids through ids and usernames through names.
// Logged in runs read ids through the browsing session.
func CombineIdentity(ids UserIDSource, names UsernameSource) IdentityResolver {
	return identity{UserIDSource: ids, UsernameSource: names}
}
