package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/samber/lo"
)

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Account is a login for the crawling session. Use a dedicated account,
// never a personal one: the crawler drives it through the browser UI.
type Account struct {
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is one place accounts can live. Read-only stores return
// ErrStoreUnavailable from Store and Delete.
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(username string) (*Account, error)
	List() ([]*Account, error)
	Delete(username string) error
	Exists(username string) bool
}

// Manager fans account operations out over an ordered list of stores.
type Manager struct {
	stores []CredentialStore
}

// NewManager uses the system keychain when reachable, an encrypted file in
// the user config directory, and the environment, in that order.
func NewManager() (*Manager, error) {
	dir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	file, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}

	var stores []CredentialStore
	if kr, err := NewKeyringStore(); err == nil {
		stores = append(stores, kr)
	}
	stores = append(stores, file, NewEnvironmentStore())
	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over the given stores, tried in order.
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store writes account to every writable store and succeeds when at least
// one accepted it.
func (m *Manager) Store(account *Account) error {
	switch {
	case account == nil || account.Username == "":
		return errors.New("username is required")
	case account.Password == "":
		return errors.New("password is required")
	}
	account.LastModified = time.Now()

	var stored int
	var failure error
	for _, s := range m.stores {
		err := s.Store(account)
		if err == nil {
			stored++
		} else if !errors.Is(err, ErrStoreUnavailable) {
			failure = err
		}
	}

	switch {
	case stored > 0:
		return nil
	case failure != nil:
		return fmt.Errorf("failed to store credentials: %w", failure)
	default:
		return ErrStoreUnavailable
	}
}

// Retrieve returns the account from the first store holding it.
func (m *Manager) Retrieve(username string) (*Account, error) {
	for _, s := range m.stores {
		if account, err := s.Retrieve(username); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

// RetrieveDefault prefers the environment account, then the most recently
// stored one.
func (m *Manager) RetrieveDefault() (*Account, error) {
	for _, s := range m.stores {
		if env, ok := s.(*EnvironmentStore); ok {
			if account, err := env.Retrieve(""); err == nil {
				return account, nil
			}
		}
	}

	accounts, _ := m.List()
	if len(accounts) == 0 {
		return nil, ErrCredentialsNotFound
	}
	return accounts[0], nil
}

// List merges every store's accounts, keeping the newest copy of each
// username, most recent first.
func (m *Manager) List() ([]*Account, error) {
	newest := make(map[string]*Account)
	for _, s := range m.stores {
		accounts, err := s.List()
		if err != nil {
			continue
		}
		for _, a := range accounts {
			if cur, ok := newest[a.Username]; !ok || a.LastModified.After(cur.LastModified) {
				newest[a.Username] = a
			}
		}
	}

	result := lo.Values(newest)
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.LastModified.Equal(b.LastModified) {
			return a.Username < b.Username
		}
		return a.LastModified.After(b.LastModified)
	})
	return result, nil
}

// Delete removes username from every store that holds it.
func (m *Manager) Delete(username string) error {
	var deleted bool
	var failure error
	for _, s := range m.stores {
		err := s.Delete(username)
		if err == nil {
			deleted = true
			continue
		}
		failure = err
	}

	if deleted {
		return nil
	}
	if failure != nil && !errors.Is(failure, ErrCredentialsNotFound) && !errors.Is(failure, ErrStoreUnavailable) {
		return fmt.Errorf("failed to delete credentials: %w", failure)
	}
	return fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

func (m *Manager) DeleteAll() error {
	accounts, err := m.List()
	if err != nil {
		return err
	}
	for _, a := range accounts {
		_ = m.Delete(a.Username)
	}
	return nil
}

func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "igcrawler")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// SanitizeAccount returns a copy of account safe to print.
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	masked := *account
	masked.Password = "********"
	if n := len(account.Password); n > 8 {
		masked.Password = account.Password[:2] + "..." + account.Password[n-2:]
	}
	return &masked
}
