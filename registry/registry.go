// Package registry implements the in-memory authority that maps usernames to
// public keys and resource names to their latest accepted update.
package registry

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/flashbots/namereg/crypto"
	"github.com/flashbots/namereg/protocol"
)

// Stats summarizes the registry contents.
type Stats struct {
	Users int `json:"users"`
	Names int `json:"names"`
}

// Registry stores identity keys and name entries.
//
// Both tables are guarded by a single RWMutex: lookups share the read lock,
// and ApplyUpdate holds the write lock for the whole validate-and-apply
// transaction so that it sees one consistent key table.
type Registry struct {
	mu    sync.RWMutex
	keys  map[string]crypto.PublicKey
	names map[string]*protocol.UpdateMessage
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		keys:  make(map[string]crypto.PublicKey),
		names: make(map[string]*protocol.UpdateMessage),
	}
}

// RegisterUser binds username to pubkey, overwriting any previous binding.
// Registering the same pair again is a no-op.
func (r *Registry) RegisterUser(username string, pubkey crypto.PublicKey) error {
	if err := protocol.ValidateUsername(username); err != nil {
		return err
	}
	key, err := crypto.NewPublicKeyFromBytes(pubkey)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.keys[username] = key
	r.mu.Unlock()
	return nil
}

// LookupKey returns the public key registered for username.
func (r *Registry) LookupKey(username string) (crypto.PublicKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.keys[username]
	if !ok {
		return nil, false
	}
	return slices.Clone(key), true
}

// LookupName returns a copy of the latest accepted update for name.
func (r *Registry) LookupName(name string) (*protocol.UpdateMessage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, ok := r.names[name]
	if !ok {
		return nil, false
	}
	return msg.Clone(), true
}

// ApplyUpdate validates candidate against the key table and, if it verifies,
// replaces the entry for name with it. On failure the registry is unchanged
// and the returned error is a *protocol.ValidationError, or
// protocol.ErrMalformedMessage for a nil candidate.
func (r *Registry) ApplyUpdate(name string, candidate *protocol.UpdateMessage) error {
	if candidate == nil {
		return fmt.Errorf("%w: nil update", protocol.ErrMalformedMessage)
	}
	msg := candidate.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[msg.User]
	if !ok {
		return protocol.NewUnknownUserError(msg.User)
	}
	if err := msg.Verify(key); err != nil {
		return err
	}

	r.names[name] = msg
	return nil
}

// Users returns the registered usernames in sorted order.
func (r *Registry) Users() []string {
	r.mu.RLock()
	users := make([]string, 0, len(r.keys))
	for u := range r.keys {
		users = append(users, u)
	}
	r.mu.RUnlock()

	sort.Strings(users)
	return users
}

// Names returns the resource names that have an entry, in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.names))
	for n := range r.names {
		names = append(names, n)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Stats returns the number of registered users and names.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Users: len(r.keys), Names: len(r.names)}
}
