// Package reconcile keeps the client's mirror of server-owned state.
package reconcile

import (
	"sort"
	"sync"

	"vibecraft.ai/internal/protocol"
)

// Reconciler mirrors the live entity set from incremental updates.
//
// Apply is the only writer. Readers get copies, so a snapshot taken between
// two updates never observes a half-applied one.
type Reconciler struct {
	mu       sync.RWMutex
	entities map[protocol.EntityID]protocol.EntityDelta
	applied  uint64
	lastTick protocol.Tick
}

func New() *Reconciler {
	return &Reconciler{entities: make(map[protocol.EntityID]protocol.EntityDelta)}
}

// Apply stores every changed delta, replacing whatever was held for its id,
// and then deletes every removed id. An id present in both lists ends up
// absent. Kind changes and removals of unknown ids are accepted as is.
func (r *Reconciler) Apply(u *protocol.GameStateUpdate) {
	if u == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range u.EntitiesChanged {
		r.entities[d.ID] = d
	}
	for _, id := range u.EntitiesRemoved {
		delete(r.entities, id)
	}
	r.applied++
	r.lastTick = u.Tick
}

func (r *Reconciler) Get(id protocol.EntityID) (protocol.EntityDelta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entities[id]
	return d, ok
}

func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Values returns the live entities ordered by id.
func (r *Reconciler) Values() []protocol.EntityDelta {
	r.mu.RLock()
	out := make([]protocol.EntityDelta, 0, len(r.entities))
	for _, d := range r.entities {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clear forgets every entity. The client calls it on reconnect only when
// configured to.
func (r *Reconciler) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities = make(map[protocol.EntityID]protocol.EntityDelta)
}

type Stats struct {
	Entities int           `json:"entities"`
	Applied  uint64        `json:"applied"`
	LastTick protocol.Tick `json:"last_tick"`
}

func (r *Reconciler) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Entities: len(r.entities), Applied: r.applied, LastTick: r.lastTick}
}
