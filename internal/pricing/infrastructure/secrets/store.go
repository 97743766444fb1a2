package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"pricecompare/internal/common/types"
	"pricecompare/internal/pricing/domain"
)

// Entry is one configured secret hash.
type Entry struct {
	Actor types.ActorID
	Role  domain.Role
	Name  string
	Hash  []byte
}

type entryKey struct {
	actor types.ActorID
	role  domain.Role
	name  string
}

// MemoryStore holds secret hashes in memory.
// Concurrency: all access is guarded by a mutex.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[entryKey][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[entryKey][]byte)}
}

func (m *MemoryStore) Lookup(ctx context.Context, actor types.ActorID, role domain.Role, name string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hash, ok := m.entries[entryKey{actor: actor, role: role, name: name}]
	return hash, ok, nil
}

// Put stores or replaces a hash.
func (m *MemoryStore) Put(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entryKey{actor: e.Actor, role: e.Role, name: e.Name}] = e.Hash
}

// seedFile is the YAML layout of a secrets file:
//
//	actors:
//	  - id: acme-buyer
//	    secrets:
//	      supplier:
//	        supplierAdd: $2a$10$...
type seedFile struct {
	Actors []struct {
		ID      string                       `yaml:"id"`
		Secrets map[string]map[string]string `yaml:"secrets"`
	} `yaml:"actors"`
}

// ReadEntries parses a secrets file. Values must already be bcrypt hashes.
func ReadEntries(r io.Reader) ([]Entry, error) {
	var seed seedFile
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding secrets: %w", err)
	}

	var entries []Entry
	for _, actor := range seed.Actors {
		if actor.ID == "" {
			return nil, errors.New("secrets: actor without id")
		}
		for roleName, named := range actor.Secrets {
			role, ok := domain.ParseRole(roleName)
			if !ok {
				return nil, fmt.Errorf("secrets: actor %s: unknown role %q", actor.ID, roleName)
			}
			for name, hash := range named {
				if _, err := bcrypt.Cost([]byte(hash)); err != nil {
					return nil, fmt.Errorf("secrets: actor %s: %s is not a bcrypt hash: %w", actor.ID, name, err)
				}
				entries = append(entries, Entry{
					Actor: types.ActorID(actor.ID),
					Role:  role,
					Name:  name,
					Hash:  []byte(hash),
				})
			}
		}
	}
	return entries, nil
}

// LoadFile reads a secrets file into a new MemoryStore.
func LoadFile(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening secrets file: %w", err)
	}
	defer f.Close()

	entries, err := ReadEntries(f)
	if err != nil {
		return nil, err
	}
	store := NewMemoryStore()
	for _, e := range entries {
		store.Put(e)
	}
	return store, nil
}
