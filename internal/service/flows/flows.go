// Package flows hosts pluggable business-process flows invoked by
// department name. A flow owns a side conversation (billing lookups,
// AI assistance) without leaking its state into the chatbot tree walk.
package flows

import (
	"context"
	"sync"

	"zapdesk/entity"
)

// Provider runs one conversational flow for a department.
type Provider interface {
	// Name is the department name that activates this provider.
	Name() string
	// Handle consumes one customer message and returns the reply to
	// send, or "" when the flow has nothing to say this turn.
	Handle(ctx context.Context, ticket *entity.Ticket, message string) (string, error)
}

// Registry maps department names to flow providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its department name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// For returns the provider bound to a department name, if any.
func (r *Registry) For(queueName string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[queueName]
	return p, ok
}
