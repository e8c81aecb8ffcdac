package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRoundTrip(t *testing.T) {
	manager, store := NewMockManager()

	require.NoError(t, manager.Store(&Account{Username: "crawler_dummy", Password: "correct horse battery"}))

	got, err := manager.Retrieve("crawler_dummy")
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery", got.Password)
	assert.False(t, got.LastModified.IsZero())

	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, manager.Delete("crawler_dummy"))
	_, err = manager.Retrieve("crawler_dummy")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.Zero(t, store.Count())

	assert.ErrorIs(t, manager.Delete("crawler_dummy"), ErrCredentialsNotFound)
}

func TestManagerRejectsIncompleteAccounts(t *testing.T) {
	manager, store := NewMockManager()

	assert.Error(t, manager.Store(&Account{Password: "x"}))
	assert.Error(t, manager.Store(&Account{Username: "u"}))
	assert.Zero(t, store.Count())
}

func TestManagerStoresInEveryWritableStore(t *testing.T) {
	first, second := NewMockStore(), NewMockStore()
	manager := NewManagerWithStores(first, NewEnvironmentStore(), second)

	require.NoError(t, manager.Store(&Account{Username: "u", Password: "p"}))
	assert.True(t, first.Exists("u"))
	assert.True(t, second.Exists("u"))

	first.StoreError = errors.New("keychain locked")
	assert.NoError(t, manager.Store(&Account{Username: "v", Password: "p"}))

	second.StoreError = errors.New("disk full")
	assert.ErrorContains(t, manager.Store(&Account{Username: "w", Password: "p"}), "disk full")
}

func TestManagerListNewestFirst(t *testing.T) {
	older, newer := NewMockStore(), NewMockStore()
	now := time.Now()
	require.NoError(t, older.Store(&Account{Username: "old", Password: "p", LastModified: now.Add(-time.Hour)}))
	require.NoError(t, older.Store(&Account{Username: "dup", Password: "stale", LastModified: now.Add(-2 * time.Hour)}))
	require.NoError(t, newer.Store(&Account{Username: "dup", Password: "fresh", LastModified: now}))
	manager := NewManagerWithStores(older, newer)

	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "dup", accounts[0].Username)
	assert.Equal(t, "fresh", accounts[0].Password)

	def, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "dup", def.Username)

	require.NoError(t, manager.DeleteAll())
	assert.Zero(t, older.Count()+newer.Count())
	_, err = manager.RetrieveDefault()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestManagerListSkipsBrokenStores(t *testing.T) {
	broken, ok := NewMockStore(), NewMockStore()
	broken.ListError = errors.New("injected")
	require.NoError(t, ok.Store(&Account{Username: "u", Password: "p"}))

	accounts, err := NewManagerWithStores(broken, ok).List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestSanitizeAccount(t *testing.T) {
	assert.Nil(t, SanitizeAccount(nil))

	short := SanitizeAccount(&Account{Username: "u", Password: "hunter2"})
	assert.Equal(t, "u", short.Username)
	assert.Equal(t, "********", short.Password)

	long := &Account{Username: "u", Password: "correct horse battery"}
	assert.Equal(t, "co...ry", SanitizeAccount(long).Password)
	assert.Equal(t, "correct horse battery", long.Password)
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.enc")
	t.Setenv(envPassphrase, "test_passphrase_123")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Username: "encrypted_user", Password: "encrypted_password"}))

	got, err := store.Retrieve("encrypted_user")
	require.NoError(t, err)
	assert.Equal(t, "encrypted_password", got.Password)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(raw, []byte("encrypted_password")), "plaintext password on disk")

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	assert.True(t, reopened.Exists("encrypted_user"))

	_, err = store.Retrieve("nobody")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, store.Store(&Account{}), ErrInvalidCredentials)

	require.NoError(t, store.Delete("encrypted_user"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file should go with its last account")
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.enc")

	t.Setenv(envPassphrase, "right")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Username: "u", Password: "p"}))

	t.Setenv(envPassphrase, "wrong")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("u")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envPassphrase, "")

	store, err := NewEncryptedFileStore(filepath.Join(dir, "creds.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Username: "u", Password: "p"}))

	info, err := os.Stat(filepath.Join(dir, passphraseFile))
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "creds.enc"))
	require.NoError(t, err)
	assert.True(t, reopened.Exists("u"))
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(envUsername, "env_user")
	t.Setenv(envPassword, "env_password")
	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "env_user", account.Username)
	assert.Equal(t, "env_password", account.Password)

	_, err = store.Retrieve("someone_else")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, store.Store(&Account{}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("env_user"), ErrStoreUnavailable)

	def, err := NewManagerWithStores(NewMockStore(), store).RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "env_user", def.Username)
}

func TestMockStore(t *testing.T) {
	store := NewMockStore()

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)

	require.NoError(t, store.Store(&Account{Username: "mockuser", Password: "mock"}))
	assert.Equal(t, 1, store.Count())
	assert.True(t, store.Exists("mockuser"))

	store.ListError = errors.New("injected error")
	_, err = store.List()
	assert.EqualError(t, err, "injected error")
}

func TestStaticPrompter(t *testing.T) {
	p := &StaticPrompter{Lines: []string{"123456"}, Secrets: []string{"pw"}}

	code, err := p.Line("Security code: ")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)

	pw, err := p.Secret("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "pw", pw)

	_, err = p.Secret("Password: ")
	assert.Error(t, err)
	assert.Equal(t, []string{"Security code: ", "Password: ", "Password: "}, p.Asked)
}

func TestTerminalPrompter(t *testing.T) {
	var out bytes.Buffer
	p := &TerminalPrompter{In: strings.NewReader("crawler_dummy\nsecret\n123456"), Out: &out}

	user, err := p.Line("Username: ")
	require.NoError(t, err)
	assert.Equal(t, "crawler_dummy", user)

	pass, err := p.Secret("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "secret", pass)

	code, err := p.Line("Security code: ")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)

	_, err = p.Line("More: ")
	assert.Error(t, err)
	assert.Contains(t, out.String(), "Password: ")
}
