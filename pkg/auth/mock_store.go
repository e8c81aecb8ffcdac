package auth

import "sync"

// MockStore is an in-memory CredentialStore for tests. Setting StoreError or
// ListError makes the matching call fail.
type MockStore struct {
	mu       sync.RWMutex
	accounts map[string]Account

	StoreError error
	ListError  error
}

func NewMockStore() *MockStore {
	return &MockStore{accounts: make(map[string]Account)}
}

// NewMockManager returns a Manager over a single fresh MockStore.
func NewMockManager() (*Manager, *MockStore) {
	s := NewMockStore()
	return NewManagerWithStores(s), s
}

func (m *MockStore) Store(account *Account) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}
	m.mu.Lock()
	m.accounts[account.Username] = *account
	m.mu.Unlock()
	return nil
}

func (m *MockStore) Retrieve(username string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[username]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &a, nil
}

func (m *MockStore) List() ([]*Account, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		a := a
		out = append(out, &a)
	}
	return out, nil
}

func (m *MockStore) Delete(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, username)
	return nil
}

func (m *MockStore) Exists(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[username]
	return ok
}

func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

// StaticPrompter answers prompts from queued values and records each label
// it was asked.
type StaticPrompter struct {
	Lines   []string
	Secrets []string
	Asked   []string
	mu      sync.Mutex
}

func (p *StaticPrompter) Line(label string) (string, error) {
	return p.next(label, &p.Lines)
}

func (p *StaticPrompter) Secret(label string) (string, error) {
	return p.next(label, &p.Secrets)
}

func (p *StaticPrompter) next(label string, queue *[]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Asked = append(p.Asked, label)
	if len(*queue) == 0 {
		return "", ErrCredentialsNotFound
	}
	v := (*queue)[0]
	*queue = (*queue)[1:]
	return v, nil
}
