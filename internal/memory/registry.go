package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rcliao/agent-recall/internal/config"
	"github.com/rcliao/agent-recall/internal/store"
)

// ConversationsDir holds one snapshot per conversation under the home dir.
const ConversationsDir = "conversations"

// Registry hands out one Memory per conversation id, loading snapshots on
// first use. The mutex guards the map only; each Memory is used by one
// caller at a time.
type Registry struct {
	home  string
	store store.Store
	opts  Options

	mu   sync.Mutex
	mems map[string]*Memory
}

// NewRegistry returns a registry rooted at home.
func NewRegistry(home string, st store.Store, opts Options) *Registry {
	return &Registry{
		home:  home,
		store: st,
		opts:  opts.withDefaults(),
		mems:  make(map[string]*Memory),
	}
}

// Path is the snapshot file of conversation id.
func (r *Registry) Path(id string) string {
	return filepath.Join(r.home, ConversationsDir, id+".db")
}

func validID(id string) error {
	if id == "" {
		return fmt.Errorf("conversation id is required")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid conversation id %q", id)
	}
	return nil
}

// Get returns the memory of conversation id, loading it if needed.
func (r *Registry) Get(ctx context.Context, id string) (*Memory, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	m, ok := r.mems[id]
	r.mu.Unlock()
	if ok {
		return m, nil
	}

	loaded := Load(ctx, r.store, r.Path(id), r.opts)

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.mems[id]; ok {
		return m, nil
	}
	r.mems[id] = loaded
	return loaded, nil
}

// Save persists conversation id if it has been loaded.
func (r *Registry) Save(ctx context.Context, id string) error {
	r.mu.Lock()
	m, ok := r.mems[id]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("conversation %q not loaded", id)
	}
	if err := m.Save(ctx, r.store, r.Path(id)); err != nil {
		return fmt.Errorf("save %s: %w", id, err)
	}
	return nil
}

// Reconfigure applies cfg to every loaded conversation and to those loaded
// later.
func (r *Registry) Reconfigure(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts.Config = cfg
	for _, m := range r.mems {
		m.Reconfigure(cfg)
	}
}

// IDs lists the loaded conversations.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.mems))
	for id := range r.mems {
		ids = append(ids, id)
	}
	return ids
}
