package scheduler

import (
	"sync"

	"coinpilot/internal/models"
)

// Registry holds the active bot configurations, user -> config. In-memory
// only: a restart deactivates everyone.
type Registry struct {
	mu   sync.RWMutex
	bots map[int64]*models.BotConfig
}

func NewRegistry() *Registry {
	return &Registry{bots: make(map[int64]*models.BotConfig)}
}

// Activate registers a config; false when the user is already active.
func (r *Registry) Activate(userID int64, cfg *models.BotConfig) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bots[userID]; ok {
		return false
	}
	r.bots[userID] = cfg
	return true
}

// Deactivate drops the config; false when the user was not active.
func (r *Registry) Deactivate(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bots[userID]; !ok {
		return false
	}
	delete(r.bots, userID)
	return true
}

func (r *Registry) Get(userID int64) (*models.BotConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.bots[userID]
	return cfg, ok
}

// Snapshot copies the active set so a tick iterates a stable view while
// activations keep landing.
func (r *Registry) Snapshot() map[int64]*models.BotConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]*models.BotConfig, len(r.bots))
	for id, cfg := range r.bots {
		out[id] = cfg
	}
	return out
}
