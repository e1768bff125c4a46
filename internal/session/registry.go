// Package session tracks anonymous identities and their mutable profiles.
// Identity is an opaque id minted once per browser; the profile is the local
// display name and chosen game mode.
package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/parlor/internal/domain"
)

type Registry struct {
	mu       sync.RWMutex
	profiles map[domain.UserID]domain.Profile
}

func NewRegistry() *Registry {
	return &Registry{profiles: make(map[domain.UserID]domain.Profile)}
}

// NewIdentity mints a fresh anonymous identity.
func NewIdentity() domain.UserID {
	return domain.UserID(uuid.NewString())
}

// Profile returns the stored profile for id, or a default one.
func (r *Registry) Profile(id domain.UserID) domain.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.profiles[id]; ok {
		return p
	}
	return domain.NewProfile()
}

// SetProfile updates the provided fields; empty strings leave the current
// value in place.
func (r *Registry) SetProfile(id domain.UserID, name, mode string) domain.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		p = domain.NewProfile()
	}
	if name != "" {
		p.Name = name
	}
	if mode != "" {
		p.Mode = mode
	}
	r.profiles[id] = p
	log.Info().Str("module", "session.registry").Str("user", string(id)).Str("name", p.Name).Str("mode", p.Mode).Msg("updated profile")
	return p
}

// Reset returns id's profile to its defaults.
func (r *Registry) Reset(id domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[id] = domain.NewProfile()
	log.Info().Str("module", "session.registry").Str("user", string(id)).Msg("reset profile")
}
