package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "igcrawler"

// KeyringStore keeps one JSON entry per account in the system keychain.
type KeyringStore struct{}

// NewKeyringStore probes the keychain and fails when it is not reachable.
func NewKeyringStore() (*KeyringStore, error) {
	probe := entryKey("probe")
	if err := keyring.Set(keyringService, probe, "1"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, probe)
	return &KeyringStore{}, nil
}

func entryKey(username string) string {
	return "login_" + username
}

// keyringErr maps keychain misses onto ErrCredentialsNotFound.
func keyringErr(op string, err error) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrCredentialsNotFound
	}
	return fmt.Errorf("keyring %s: %w", op, err)
}

func (k *KeyringStore) Store(account *Account) error {
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	if err := keyring.Set(keyringService, entryKey(account.Username), string(data)); err != nil {
		return keyringErr("set", err)
	}
	return nil
}

func (k *KeyringStore) Retrieve(username string) (*Account, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}
	data, err := keyring.Get(keyringService, entryKey(username))
	if err != nil {
		return nil, keyringErr("get", err)
	}

	account := &Account{}
	if err := json.Unmarshal([]byte(data), account); err != nil {
		return nil, fmt.Errorf("corrupt keyring entry for %s: %w", username, err)
	}
	return account, nil
}

// List is always empty: go-keyring cannot enumerate entries, so the
// encrypted file store serves as the account index.
func (k *KeyringStore) List() ([]*Account, error) {
	return nil, nil
}

func (k *KeyringStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Delete(keyringService, entryKey(username)); err != nil {
		return keyringErr("delete", err)
	}
	return nil
}

func (k *KeyringStore) Exists(username string) bool {
	_, err := k.Retrieve(username)
	return err == nil
}
