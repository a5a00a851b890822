package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clientdesk/access"
	"clientdesk/models"
	"clientdesk/realtime"
	repository "clientdesk/repositories"
)

// Registry keeps one loaded Workspace per user.
type Registry struct {
	store  *repository.Store
	logger *slog.Logger

	mu     sync.Mutex
	spaces map[string]*Workspace
}

func NewRegistry(store *repository.Store, logger *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger,
		spaces: make(map[string]*Workspace),
	}
}

// For returns the user's workspace, building and loading it on first use.
// The viewer's role is always read from the store, never from the token.
func (r *Registry) For(ctx context.Context, userID string) (*Workspace, error) {
	r.mu.Lock()
	ws, ok := r.spaces[userID]
	r.mu.Unlock()
	if ok {
		return ws, nil
	}

	u, err := r.store.Users.FindOne(ctx, repository.ByID(userID))
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}
	ws = NewWorkspace(r.store, access.Viewer{UserID: u.ID, Name: u.Name, Role: u.Role}, r.logger)
	if err := ws.Load(ctx); err != nil {
		return nil, fmt.Errorf("load workspace: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.spaces[userID]; ok {
		return existing, nil
	}
	r.spaces[userID] = ws
	r.logger.Info("workspace loaded", "user_id", userID, "role", u.Role)
	return ws, nil
}

// Evict drops a user's workspace; the next request rebuilds it.
func (r *Registry) Evict(userID string) {
	r.mu.Lock()
	delete(r.spaces, userID)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spaces)
}

// Run applies every change to every live workspace until changes closes or
// ctx is done. A change to a user row evicts that user's workspace so role
// and name changes take effect; a resync evicts every workspace.
func (r *Registry) Run(ctx context.Context, changes <-chan realtime.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			r.apply(ctx, c)
		}
	}
}

func (r *Registry) apply(ctx context.Context, c realtime.Change) {
	if c.Operation == realtime.OpResync {
		// changes were lost; rebuild every workspace on next use
		r.mu.Lock()
		n := len(r.spaces)
		clear(r.spaces)
		r.mu.Unlock()
		r.logger.Warn("change feed overflowed, evicted all workspaces", "evicted", n)
		return
	}
	if c.Collection == models.CollUsers {
		r.Evict(c.DocumentID)
	}

	r.mu.Lock()
	live := make([]*Workspace, 0, len(r.spaces))
	for _, ws := range r.spaces {
		live = append(live, ws)
	}
	r.mu.Unlock()

	for _, ws := range live {
		rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_ = ws.Reload(rctx, c.Collection)
		cancel()
	}
}
