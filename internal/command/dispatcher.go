// Package command turns local player intent into stamped PlayerInput frames.
package command

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"vibecraft.ai/internal/protocol"
)

// Sender is the outbound side of the transport. Send must not block on the
// network for long and never reports failure.
type Sender interface {
	Send(frame []byte)
}

// Dispatcher stamps each command with a local tick starting at 0. The tick
// is independent of the server's tick and is never reused, even when a
// command fails to encode.
type Dispatcher struct {
	out Sender
	log *zap.Logger

	mu   sync.Mutex
	tick protocol.Tick
}

func New(out Sender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{out: out, log: logger.Named("command")}
}

// Send stamps, encodes and forwards one input. Each movement component is
// reduced to its sign. It returns the tick the input carried.
func (d *Dispatcher) Send(movement protocol.Vec2, action protocol.PlayerAction, target *protocol.EntityID) protocol.Tick {
	d.mu.Lock()
	defer d.mu.Unlock()

	tick := d.tick
	d.tick++

	in := protocol.PlayerInput{
		Tick:     tick,
		Movement: protocol.Vec2{X: unit(movement.X), Y: unit(movement.Y)},
		Action:   action,
		Target:   target,
	}
	frame, err := protocol.EncodePlayerInput(in)
	if err != nil {
		d.log.Error("encode input", zap.Uint64("tick", tick), zap.Error(err))
		return tick
	}
	d.out.Send(frame)
	return tick
}

// SendAction sends action with no movement and no target.
func (d *Dispatcher) SendAction(action protocol.PlayerAction) protocol.Tick {
	return d.Send(protocol.Vec2{}, action, nil)
}

// NextTick is the tick the next Send will use.
func (d *Dispatcher) NextTick() protocol.Tick {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tick
}

func unit(v float32) float32 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
