package reconcile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"vibecraft.ai/internal/protocol"
)

func agent(id protocol.EntityID, name string) protocol.EntityDelta {
	return protocol.EntityDelta{
		ID:   id,
		Kind: protocol.KindAgent,
		Data: protocol.AgentData{Name: name, State: protocol.AgentIdle, Tier: protocol.TierApprentice},
	}
}

func TestRemovalInLaterUpdate(t *testing.T) {
	r := New()
	r.Apply(&protocol.GameStateUpdate{EntitiesChanged: []protocol.EntityDelta{agent(5, "ada")}})
	_, ok := r.Get(5)
	require.True(t, ok)

	r.Apply(&protocol.GameStateUpdate{EntitiesRemoved: []protocol.EntityID{5}})
	_, ok = r.Get(5)
	require.False(t, ok)
	require.Equal(t, 0, r.Len())
}

func TestRemovalWinsWithinOneUpdate(t *testing.T) {
	r := New()
	r.Apply(&protocol.GameStateUpdate{
		EntitiesChanged: []protocol.EntityDelta{agent(7, "x")},
		EntitiesRemoved: []protocol.EntityID{7},
	})
	_, ok := r.Get(7)
	require.False(t, ok)
}

func TestDeltaReplacesWholeEntry(t *testing.T) {
	r := New()
	r.Apply(&protocol.GameStateUpdate{EntitiesChanged: []protocol.EntityDelta{agent(3, "before")}})

	item := protocol.EntityDelta{ID: 3, Kind: protocol.KindItem, Position: protocol.Vec2{X: 2, Y: 4}, Data: protocol.ItemData{ItemType: "sword"}}
	r.Apply(&protocol.GameStateUpdate{EntitiesChanged: []protocol.EntityDelta{item}})

	got, ok := r.Get(3)
	require.True(t, ok)
	require.Equal(t, item, got)
}

func TestUnknownRemovalIsNoop(t *testing.T) {
	r := New()
	r.Apply(&protocol.GameStateUpdate{EntitiesChanged: []protocol.EntityDelta{agent(1, "a")}})
	r.Apply(&protocol.GameStateUpdate{EntitiesRemoved: []protocol.EntityID{42}})
	require.Equal(t, 1, r.Len())
	r.Apply(nil)
	require.Equal(t, 1, r.Len())
}

func TestValuesSortedAndDetached(t *testing.T) {
	r := New()
	r.Apply(&protocol.GameStateUpdate{EntitiesChanged: []protocol.EntityDelta{agent(9, "c"), agent(2, "a"), agent(5, "b")}})

	vals := r.Values()
	require.Len(t, vals, 3)
	require.Equal(t, []protocol.EntityID{2, 5, 9}, []protocol.EntityID{vals[0].ID, vals[1].ID, vals[2].ID})

	vals[0].ID = 100
	_, ok := r.Get(2)
	require.True(t, ok)
}

func TestApplyIsIdempotent(t *testing.T) {
	u := &protocol.GameStateUpdate{
		EntitiesChanged: []protocol.EntityDelta{agent(1, "a"), agent(2, "b")},
		EntitiesRemoved: []protocol.EntityID{2, 3},
	}
	once := New()
	once.Apply(&protocol.GameStateUpdate{EntitiesChanged: []protocol.EntityDelta{agent(3, "c")}})
	twice := New()
	twice.Apply(&protocol.GameStateUpdate{EntitiesChanged: []protocol.EntityDelta{agent(3, "c")}})

	once.Apply(u)
	twice.Apply(u)
	twice.Apply(u)
	require.Equal(t, once.Values(), twice.Values())
}

func TestClear(t *testing.T) {
	r := New()
	r.Apply(&protocol.GameStateUpdate{Tick: 4, EntitiesChanged: []protocol.EntityDelta{agent(1, "a")}})
	r.Clear()
	require.Equal(t, 0, r.Len())
	require.Equal(t, Stats{Applied: 1, LastTick: 4}, r.Stats())
}

// Every update must leave (prev \ removed) with changed laid over it, where
// removed wins ties.
func TestApplyMatchesSetModel(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	r := New()
	model := map[protocol.EntityID]protocol.EntityDelta{}

	for step := 0; step < 200; step++ {
		u := &protocol.GameStateUpdate{Tick: protocol.Tick(step)}
		for i := rng.Intn(6); i > 0; i-- {
			id := protocol.EntityID(rng.Intn(20))
			u.EntitiesChanged = append(u.EntitiesChanged, protocol.EntityDelta{
				ID:       id,
				Kind:     protocol.KindRogue,
				Position: protocol.Vec2{X: float32(step), Y: float32(i)},
				Data:     protocol.RogueData{RogueType: protocol.RogueLooper, HealthPct: float32(rng.Intn(100))},
			})
		}
		for i := rng.Intn(4); i > 0; i-- {
			u.EntitiesRemoved = append(u.EntitiesRemoved, protocol.EntityID(rng.Intn(20)))
		}

		for _, d := range u.EntitiesChanged {
			model[d.ID] = d
		}
		for _, id := range u.EntitiesRemoved {
			delete(model, id)
		}
		r.Apply(u)

		require.Equal(t, len(model), r.Len(), "step %d", step)
		for id, want := range model {
			got, ok := r.Get(id)
			require.True(t, ok, "step %d id %d", step, id)
			require.Equal(t, want, got)
		}
	}
}
