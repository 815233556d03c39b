package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vibecraft.ai/internal/protocol"
)

func TestDispatchRoutesEachVariant(t *testing.T) {
	r := New(zap.NewNop())
	var got []string
	r.OnGameState(func(u *protocol.GameStateUpdate) { got = append(got, "state") })
	r.OnVibeOutput(func(m protocol.VibeOutput) { got = append(got, "out:"+string(m.Data)) })
	r.OnVibeSessionStarted(func(protocol.VibeSessionStarted) { got = append(got, "start") })
	r.OnVibeSessionEnded(func(m protocol.VibeSessionEnded) { got = append(got, "end:"+m.Reason) })
	r.OnGradeResult(func(m protocol.GradeResult) { got = append(got, "grade:"+m.BuildingID) })

	msgs := []protocol.ServerMessage{
		&protocol.GameStateUpdate{Tick: 1},
		protocol.VibeOutput{AgentID: 1, Data: protocol.Bytes("hi")},
		protocol.VibeSessionStarted{AgentID: 1},
		protocol.VibeSessionEnded{AgentID: 1, Reason: "exit"},
		protocol.GradeResult{BuildingID: "b7"},
	}
	for _, m := range msgs {
		require.True(t, r.Dispatch(m))
	}
	require.Equal(t, []string{"state", "out:hi", "start", "end:exit", "grade:b7"}, got)
}

func TestDispatchIgnoresUnknownAndUnhandled(t *testing.T) {
	r := New(zap.NewNop())
	require.False(t, r.Dispatch(protocol.UnknownMessage{Tag: "WorldReset"}))
	require.False(t, r.Dispatch(protocol.GradeResult{}))
	require.False(t, r.Dispatch(nil))
	require.False(t, r.Dispatch((*protocol.GameStateUpdate)(nil)))
}

func TestLastRegistrationWins(t *testing.T) {
	r := New(zap.NewNop())
	first, second := 0, 0
	r.OnGameState(func(*protocol.GameStateUpdate) { first++ })
	r.OnGameState(func(*protocol.GameStateUpdate) { second++ })
	r.Dispatch(&protocol.GameStateUpdate{})
	require.Equal(t, 0, first)
	require.Equal(t, 1, second)
}

func TestRunPreservesOrder(t *testing.T) {
	r := New(zap.NewNop())
	var ticks []protocol.Tick
	r.OnGameState(func(u *protocol.GameStateUpdate) { ticks = append(ticks, u.Tick) })

	in := make(chan protocol.Inbound, 8)
	for i := 1; i <= 5; i++ {
		in <- protocol.Inbound{Conn: 1, Msg: &protocol.GameStateUpdate{Tick: protocol.Tick(i)}}
	}
	close(in)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background(), in) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not return after channel closed")
	}
	require.Equal(t, []protocol.Tick{1, 2, 3, 4, 5}, ticks)
}

func TestRunStopsOnCancel(t *testing.T) {
	r := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx, make(chan protocol.Inbound)))
}

func TestHandlerCanReregisterDuringDispatch(t *testing.T) {
	r := New(zap.NewNop())
	calls := 0
	var handle func(protocol.GradeResult)
	handle = func(protocol.GradeResult) {
		calls++
		r.OnGradeResult(handle)
		r.OnVibeOutput(func(protocol.VibeOutput) {})
	}
	r.OnGradeResult(handle)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Dispatch(protocol.GradeResult{BuildingID: "a"})
		r.Dispatch(protocol.GradeResult{BuildingID: "b"})
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("Dispatch deadlocked on re-registration")
	}
	require.Equal(t, 2, calls)
}

func TestFenceDropsEarlierConnections(t *testing.T) {
	r := New(zap.NewNop())
	var ticks []protocol.Tick
	r.OnGameState(func(u *protocol.GameStateUpdate) { ticks = append(ticks, u.Tick) })

	fenced := false
	r.Fence(2, func() { fenced = true })
	require.True(t, fenced)

	in := make(chan protocol.Inbound, 8)
	in <- protocol.Inbound{Conn: 1, Msg: &protocol.GameStateUpdate{Tick: 1}}
	in <- protocol.Inbound{Conn: 2, Msg: &protocol.GameStateUpdate{Tick: 2}}
	in <- protocol.Inbound{Conn: 1, Msg: &protocol.GameStateUpdate{Tick: 3}}
	in <- protocol.Inbound{Conn: 3, Msg: &protocol.GameStateUpdate{Tick: 4}}
	close(in)
	require.NoError(t, r.Run(context.Background(), in))
	require.Equal(t, []protocol.Tick{2, 4}, ticks)

	// a lower fence never reopens an older connection
	r.Fence(1, nil)
	require.False(t, r.deliver(protocol.Inbound{Conn: 1, Msg: &protocol.GameStateUpdate{}}))
}
