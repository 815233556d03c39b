package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"vibecraft.ai/internal/client"
	"vibecraft.ai/internal/protocol"
)

func frameWith(player protocol.Vec2, ents ...protocol.EntityDelta) client.Frame {
	st := &protocol.GameStateUpdate{}
	st.Player.Position = player
	return client.Frame{State: st, Entities: ents, Connected: true}
}

func TestDecideAttacksNearestRogueInRange(t *testing.T) {
	b := &bot{rng: rand.New(rand.NewSource(1)), attackRange: 3}
	f := frameWith(protocol.Vec2{X: 10, Y: 10},
		protocol.EntityDelta{ID: 1, Kind: protocol.KindRogue, Position: protocol.Vec2{X: 12, Y: 10}},
		protocol.EntityDelta{ID: 2, Kind: protocol.KindRogue, Position: protocol.Vec2{X: 9, Y: 9}},
		protocol.EntityDelta{ID: 3, Kind: protocol.KindAgent, Position: protocol.Vec2{X: 10, Y: 10}},
	)
	move, act, target := b.decide(f)
	require.Equal(t, protocol.ActionAttack, act)
	require.NotNil(t, target)
	require.Equal(t, protocol.EntityID(2), *target)
	require.Equal(t, protocol.Vec2{X: -1, Y: -1}, move)
}

func TestDecideWandersWithoutTargets(t *testing.T) {
	b := &bot{rng: rand.New(rand.NewSource(1)), attackRange: 3}
	f := frameWith(protocol.Vec2{},
		protocol.EntityDelta{ID: 1, Kind: protocol.KindRogue, Position: protocol.Vec2{X: 50}},
	)
	first, act, target := b.decide(f)
	require.Nil(t, act)
	require.Nil(t, target)
	second, _, _ := b.decide(f)
	require.Equal(t, first, second)
}

func TestDecideIdlesWhenDead(t *testing.T) {
	b := &bot{rng: rand.New(rand.NewSource(1)), attackRange: 3}
	f := frameWith(protocol.Vec2{})
	f.State.Player.Dead = true
	move, act, _ := b.decide(f)
	require.Equal(t, protocol.Vec2{}, move)
	require.Nil(t, act)
}
