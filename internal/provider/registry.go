// Package provider resolves outbound mail accounts for a user.
package provider

import (
	"errors"
	"sort"
	"sync"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

// ErrNotFound is returned when a provider id does not resolve for the user
var ErrNotFound = errors.New("email provider not found")

// Registry merges process-wide providers with per-user uploads.
// On an id collision the user's entry wins.
type Registry struct {
	global map[string]model.Provider

	mu    sync.RWMutex
	users map[string]map[string]model.Provider
}

// NewRegistry creates a Registry over the given process-wide providers
func NewRegistry(global map[string]model.Provider) *Registry {
	g := make(map[string]model.Provider, len(global))
	for id, p := range global {
		p.ID = id
		g[id] = p
	}
	return &Registry{
		global: g,
		users:  make(map[string]map[string]model.Provider),
	}
}

// Resolve returns the provider visible to userID under providerID
func (r *Registry) Resolve(userID, providerID string) (*model.Provider, error) {
	r.mu.RLock()
	p, ok := r.users[userID][providerID]
	r.mu.RUnlock()
	if ok {
		return &p, nil
	}
	if p, ok := r.global[providerID]; ok {
		return &p, nil
	}
	return nil, ErrNotFound
}

// List returns every provider visible to userID, sorted by id
func (r *Registry) List(userID string) []model.Provider {
	merged := make(map[string]model.Provider, len(r.global))
	for id, p := range r.global {
		merged[id] = p
	}
	r.mu.RLock()
	for id, p := range r.users[userID] {
		merged[id] = p
	}
	r.mu.RUnlock()

	out := make([]model.Provider, 0, len(merged))
	for _, p := range merged {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Upload adds providers to userID's set, replacing entries with the same id.
// It returns the number of providers the user now has.
func (r *Registry) Upload(userID string, providers map[string]model.Provider) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]model.Provider, len(providers))
		r.users[userID] = set
	}
	for id, p := range providers {
		p.ID = id
		set[id] = p
	}
	return len(set)
}
