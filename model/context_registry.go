package model

import "sync"

// ContextRegistry indexes live subroutine contexts by id so runtime events
// arriving over the embedding surface can be routed to the right execution.
type ContextRegistry struct {
	mu       sync.RWMutex
	contexts map[string]*SubroutineContext
}

func NewContextRegistry() *ContextRegistry {
	return &ContextRegistry{
		contexts: make(map[string]*SubroutineContext),
	}
}

func (r *ContextRegistry) Put(ctx *SubroutineContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts[ctx.Id] = ctx
}

func (r *ContextRegistry) Get(id string) *SubroutineContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contexts[id]
}

func (r *ContextRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contexts, id)
}
