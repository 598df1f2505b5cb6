package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/menuhub/auth-service/internal/domain"
	"github.com/menuhub/auth-service/internal/repository"
)

// memoryStore is an in-memory AuthStore with the same uniqueness rules as the
// real schema.
type memoryStore struct {
	mu          sync.Mutex
	users       map[int64]domain.User
	byEmail     map[string]int64
	credentials map[int64]string
	authorities map[int64][]string
	identities  map[string]*domain.Identity
}

var _ repository.AuthStore = (*memoryStore)(nil)

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:       make(map[int64]domain.User),
		byEmail:     make(map[string]int64),
		credentials: make(map[int64]string),
		authorities: make(map[int64][]string),
		identities:  make(map[string]*domain.Identity),
	}
}

func identityKey(provider, providerUserID string) string {
	return provider + "/" + providerUserID
}

func (m *memoryStore) FindUserByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrAccountNotFound
	}
	return m.userWithRoles(id), nil
}

func (m *memoryStore) FindUserByID(_ context.Context, userID int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return domain.User{}, domain.ErrAccountNotFound
	}
	return m.userWithRoles(userID), nil
}

func (m *memoryStore) userWithRoles(id int64) domain.User {
	user := m.users[id]
	user.Roles = append([]string(nil), m.authorities[id]...)
	return user
}

func (m *memoryStore) InsertUser(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[user.Email]; exists {
		return domain.ErrDuplicateEmail
	}
	user.CreatedAt = time.Now().UTC()
	m.users[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *memoryStore) GetCredential(_ context.Context, userID int64) (domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.credentials[userID]
	if !ok {
		return domain.Credential{}, domain.ErrAccountNotFound
	}
	return domain.Credential{UserID: userID, PasswordHash: hash}, nil
}

func (m *memoryStore) InsertCredential(_ context.Context, cred domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[cred.UserID] = cred.PasswordHash
	return nil
}

func (m *memoryStore) InsertAuthority(_ context.Context, auth domain.Authority) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authorities[auth.UserID] = append(m.authorities[auth.UserID], auth.Role)
	return nil
}

func (m *memoryStore) InsertIdentity(_ context.Context, ident domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := identityKey(ident.Provider, ident.ProviderUserID)
	if _, exists := m.identities[key]; exists {
		return domain.ErrDuplicateIdentity
	}
	copied := ident
	m.identities[key] = &copied
	return nil
}

func (m *memoryStore) UpdateIdentityToken(_ context.Context, provider, providerUserID, accessToken string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident, ok := m.identities[identityKey(provider, providerUserID)]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	ident.AccessToken = accessToken
	return ident.UserID, nil
}

func (m *memoryStore) GetProviderAccessToken(_ context.Context, userID int64, provider string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ident := range m.identities {
		if ident.UserID == userID && ident.Provider == provider {
			return ident.AccessToken, nil
		}
	}
	return "", domain.ErrAccountNotFound
}

// InTx snapshots the maps and restores them when fn fails, mirroring the
// all-or-nothing behavior of the real store.
func (m *memoryStore) InTx(_ context.Context, fn func(repository.AuthStore) error) error {
	snapshot := m.clone()
	if err := fn(m); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *memoryStore) clone() *memoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := newMemoryStore()
	for k, v := range m.users {
		c.users[k] = v
	}
	for k, v := range m.byEmail {
		c.byEmail[k] = v
	}
	for k, v := range m.credentials {
		c.credentials[k] = v
	}
	for k, v := range m.authorities {
		c.authorities[k] = append([]string(nil), v...)
	}
	for k, v := range m.identities {
		copied := *v
		c.identities[k] = &copied
	}
	return c
}

func (m *memoryStore) restore(from *memoryStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = from.users
	m.byEmail = from.byEmail
	m.credentials = from.credentials
	m.authorities = from.authorities
	m.identities = from.identities
}

func (m *memoryStore) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memoryStore) identityCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.identities)
}

// failingStore wraps a memoryStore and fails a named operation once, for
// exercising rollback paths.
type failingStore struct {
	*memoryStore
	failOn string
}

func (f *failingStore) InsertAuthority(ctx context.Context, auth domain.Authority) error {
	if f.failOn == "InsertAuthority" {
		return fmt.Errorf("%w: induced failure", domain.ErrStoreUnavailable)
	}
	return f.memoryStore.InsertAuthority(ctx, auth)
}

func (f *failingStore) InTx(_ context.Context, fn func(repository.AuthStore) error) error {
	snapshot := f.memoryStore.clone()
	if err := fn(f); err != nil {
		f.memoryStore.restore(snapshot)
		return err
	}
	return nil
}
