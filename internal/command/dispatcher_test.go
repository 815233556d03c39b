package command

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vibecraft.ai/internal/protocol"
)

type recorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recorder) Send(frame []byte) {
	r.mu.Lock()
	r.frames = append(r.frames, frame)
	r.mu.Unlock()
}

func (r *recorder) inputs(t *testing.T) []protocol.PlayerInput {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.PlayerInput, 0, len(r.frames))
	for _, f := range r.frames {
		in, err := protocol.DecodePlayerInput(f)
		require.NoError(t, err)
		out = append(out, in)
	}
	return out
}

func TestTicksStartAtZeroAndIncrease(t *testing.T) {
	rec := &recorder{}
	d := New(rec, zap.NewNop())
	require.Equal(t, protocol.Tick(0), d.NextTick())

	require.Equal(t, protocol.Tick(0), d.SendAction(protocol.ActionAttack))
	require.Equal(t, protocol.Tick(1), d.Send(protocol.Vec2{X: 1}, nil, nil))
	require.Equal(t, protocol.Tick(2), d.SendAction(protocol.DebugSetTokens{Amount: 100}))
	require.Equal(t, protocol.Tick(3), d.NextTick())

	got := rec.inputs(t)
	require.Len(t, got, 3)
	for i, in := range got {
		require.Equal(t, protocol.Tick(i), in.Tick)
	}
	require.Equal(t, protocol.ActionAttack, got[0].Action)
	require.Nil(t, got[1].Action)
	require.Equal(t, protocol.DebugSetTokens{Amount: 100}, got[2].Action)
}

func TestMovementIsReducedToSign(t *testing.T) {
	rec := &recorder{}
	d := New(rec, zap.NewNop())
	target := protocol.EntityID(8)

	d.Send(protocol.Vec2{X: 0.3, Y: -12}, nil, &target)
	d.Send(protocol.Vec2{X: -0.0001, Y: 0}, nil, nil)

	got := rec.inputs(t)
	require.Equal(t, protocol.Vec2{X: 1, Y: -1}, got[0].Movement)
	require.NotNil(t, got[0].Target)
	require.Equal(t, target, *got[0].Target)
	require.Equal(t, protocol.Vec2{X: -1, Y: 0}, got[1].Movement)
}

func TestEncodeFailureStillConsumesTick(t *testing.T) {
	rec := &recorder{}
	d := New(rec, zap.NewNop())

	require.Equal(t, protocol.Tick(0), d.SendAction(protocol.UnitAction("Teleport")))
	require.Equal(t, protocol.Tick(1), d.SendAction(protocol.ActionInteract))

	got := rec.inputs(t)
	require.Len(t, got, 1)
	require.Equal(t, protocol.Tick(1), got[0].Tick)
}

func TestConcurrentSendsKeepWireOrder(t *testing.T) {
	rec := &recorder{}
	d := New(rec, zap.NewNop())

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				d.SendAction(nil)
			}
		}()
	}
	wg.Wait()

	got := rec.inputs(t)
	require.Len(t, got, 400)
	for i, in := range got {
		require.Equal(t, protocol.Tick(i), in.Tick)
	}
}
