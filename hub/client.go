package hub

import (
	"sync"

	"github.com/inputbridge/kmf"
)

// Registry is the master-side table of ConnectedClient records. It is
// deliberately separate from the subscriber/stop maps held by Hub: a
// client's hello-derived identity outlives the instant of subscription and
// is read by a host UI, while the subscription/stop maps exist purely to
// route Hub.Publish and Hub.Stop.
type Registry struct {
	mu      sync.Mutex
	clients map[string]kmf.ConnectedClient
}

// NewRegistry builds an empty client registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]kmf.ConnectedClient)}
}

// Put inserts or replaces the record for c.ID.
func (r *Registry) Put(c kmf.ConnectedClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID] = c
}

// SetStatus updates only the Status field of an existing record. It is a
// no-op if id is not present.
func (r *Registry) SetStatus(id string, status kmf.ClientStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return
	}
	c.Status = status
	r.clients[id] = c
}

// Remove deletes the record for id. Always safe to call, including on an
// id already removed.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// Get returns the record for id and whether it was present.
func (r *Registry) Get(id string) (kmf.ConnectedClient, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	return c, ok
}

// List returns a snapshot of every currently-registered client, in no
// particular order.
func (r *Registry) List() []kmf.ConnectedClient {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]kmf.ConnectedClient, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}
