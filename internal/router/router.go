// Package router demultiplexes decoded server messages to typed handlers.
package router

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"vibecraft.ai/internal/protocol"
)

// Router holds at most one handler per message variant. Registering a
// handler replaces the previous one; a variant with no handler is dropped.
type Router struct {
	log *zap.Logger

	mu                 sync.RWMutex
	onGameState        func(*protocol.GameStateUpdate)
	onVibeOutput       func(protocol.VibeOutput)
	onVibeSessionStart func(protocol.VibeSessionStarted)
	onVibeSessionEnd   func(protocol.VibeSessionEnded)
	onGradeResult      func(protocol.GradeResult)

	// seqMu serializes Run's dispatches with Fence.
	seqMu   sync.Mutex
	minConn uint64
	stale   uint64
}

func New(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{log: logger.Named("router")}
}

func (r *Router) OnGameState(fn func(*protocol.GameStateUpdate)) {
	r.mu.Lock()
	r.onGameState = fn
	r.mu.Unlock()
}

func (r *Router) OnVibeOutput(fn func(protocol.VibeOutput)) {
	r.mu.Lock()
	r.onVibeOutput = fn
	r.mu.Unlock()
}

func (r *Router) OnVibeSessionStarted(fn func(protocol.VibeSessionStarted)) {
	r.mu.Lock()
	r.onVibeSessionStart = fn
	r.mu.Unlock()
}

func (r *Router) OnVibeSessionEnded(fn func(protocol.VibeSessionEnded)) {
	r.mu.Lock()
	r.onVibeSessionEnd = fn
	r.mu.Unlock()
}

func (r *Router) OnGradeResult(fn func(protocol.GradeResult)) {
	r.mu.Lock()
	r.onGradeResult = fn
	r.mu.Unlock()
}

// Dispatch invokes the handler registered for msg's variant and reports
// whether one ran. Unknown variants and nil messages are ignored. Handlers
// run without the registration lock held, so they may register handlers.
func (r *Router) Dispatch(msg protocol.ServerMessage) bool {
	r.mu.RLock()
	h := handlers{
		gameState: r.onGameState,
		output:    r.onVibeOutput,
		started:   r.onVibeSessionStart,
		ended:     r.onVibeSessionEnd,
		grade:     r.onGradeResult,
	}
	r.mu.RUnlock()

	switch m := msg.(type) {
	case *protocol.GameStateUpdate:
		if m == nil || h.gameState == nil {
			return false
		}
		h.gameState(m)
	case protocol.VibeOutput:
		if h.output == nil {
			return false
		}
		h.output(m)
	case protocol.VibeSessionStarted:
		if h.started == nil {
			return false
		}
		h.started(m)
	case protocol.VibeSessionEnded:
		if h.ended == nil {
			return false
		}
		h.ended(m)
	case protocol.GradeResult:
		if h.grade == nil {
			return false
		}
		h.grade(m)
	case protocol.UnknownMessage:
		r.log.Debug("ignoring unknown message", zap.String("tag", m.Tag))
		return false
	default:
		return false
	}
	return true
}

type handlers struct {
	gameState func(*protocol.GameStateUpdate)
	output    func(protocol.VibeOutput)
	started   func(protocol.VibeSessionStarted)
	ended     func(protocol.VibeSessionEnded)
	grade     func(protocol.GradeResult)
}

// Fence drops every message from connections older than conn that Run has
// not yet dispatched, and runs fn with no dispatch in progress. Must not be
// called from a handler.
func (r *Router) Fence(conn uint64, fn func()) {
	r.seqMu.Lock()
	defer r.seqMu.Unlock()
	if conn > r.minConn {
		r.minConn = conn
	}
	if fn != nil {
		fn()
	}
}

func (r *Router) deliver(in protocol.Inbound) bool {
	r.seqMu.Lock()
	defer r.seqMu.Unlock()
	if in.Conn < r.minConn {
		r.stale++
		if r.stale == 1 || r.stale%1000 == 0 {
			r.log.Debug("dropping message from an earlier connection",
				zap.Uint64("conn", in.Conn), zap.Uint64("current", r.minConn), zap.Uint64("dropped", r.stale))
		}
		return false
	}
	return r.Dispatch(in.Msg)
}

// Run dispatches messages from in, one at a time and in arrival order,
// until in is closed or ctx is done.
func (r *Router) Run(ctx context.Context, in <-chan protocol.Inbound) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			r.deliver(msg)
		}
	}
}
