// Package client assembles the sync pipeline: transport, router, entity and
// fog mirrors, and the command dispatcher. It also keeps the non-entity
// server state that per-frame consumers read.
package client

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vibecraft.ai/internal/command"
	"vibecraft.ai/internal/protocol"
	"vibecraft.ai/internal/reconcile"
	"vibecraft.ai/internal/router"
	"vibecraft.ai/internal/settings"
)

// Link is the connection the client drives. *ws.Transport satisfies it.
type Link interface {
	Run(ctx context.Context) error
	Send(frame []byte)
	Inbound() <-chan protocol.Inbound
	Connected() bool
	Queued() int
}

type Options struct {
	// ClearOnReconnect empties the entity and fog mirrors whenever a new
	// connection comes up. Off, stale entities persist until removed.
	ClearOnReconnect bool
	LogHistory       int
	VibeBufferBytes  int
}

func (o *Options) normalize() {
	if o.LogHistory <= 0 {
		o.LogHistory = 200
	}
	if o.VibeBufferBytes <= 0 {
		o.VibeBufferBytes = 64 * 1024
	}
}

type VibeSession struct {
	AgentID   uint64    `json:"agent_id"`
	Active    bool      `json:"active"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	EndReason string    `json:"end_reason,omitempty"`
	// Output is the tail of the session's terminal output.
	Output []byte `json:"output"`
	// Dropped counts output bytes that fell off the front of Output.
	Dropped int `json:"dropped"`
}

type Client struct {
	opts Options
	log  *zap.Logger
	link Link

	router   *router.Router
	entities *reconcile.Reconciler
	fog      *reconcile.FogMirror
	commands *command.Dispatcher

	mu       sync.RWMutex
	latest   *protocol.GameStateUpdate
	logs     []protocol.LogEntry
	sessions map[uint64]*VibeSession
	grades   map[string]protocol.GradeResult
	connects int
}

func New(opts Options, link Link, logger *zap.Logger) *Client {
	opts.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		opts:     opts,
		log:      logger.Named("client"),
		link:     link,
		router:   router.New(logger),
		entities: reconcile.New(),
		fog:      reconcile.NewFogMirror(),
		commands: command.New(link, logger),
		sessions: make(map[uint64]*VibeSession),
		grades:   make(map[string]protocol.GradeResult),
	}
	c.router.OnGameState(c.handleGameState)
	c.router.OnVibeOutput(c.handleVibeOutput)
	c.router.OnVibeSessionStarted(c.handleVibeStarted)
	c.router.OnVibeSessionEnded(c.handleVibeEnded)
	c.router.OnGradeResult(c.handleGrade)
	return c
}

// Run drives the link and the dispatch loop until ctx is done. A link that
// gives up leaves the last received state readable until then.
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.link.Run(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("link stopped; keeping last state", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error { return c.router.Run(ctx, c.link.Inbound()) })
	return g.Wait()
}

// HandleConnect is the transport's connect hook. conn is the id inbound
// messages from the new connection carry.
func (c *Client) HandleConnect(conn uint64) {
	c.mu.Lock()
	c.connects++
	reconnect := c.connects > 1
	c.mu.Unlock()
	if reconnect && c.opts.ClearOnReconnect {
		c.router.Fence(conn, func() {
			c.entities.Clear()
			c.fog.Clear()
		})
		c.log.Info("cleared mirrors on reconnect", zap.Uint64("conn", conn))
	}
}

// HandleDisconnect is the transport's disconnect hook.
func (c *Client) HandleDisconnect(err error) {
	c.log.Debug("link down", zap.Error(err))
}

func (c *Client) Commands() *command.Dispatcher   { return c.commands }
func (c *Client) Router() *router.Router          { return c.router }
func (c *Client) Entities() *reconcile.Reconciler { return c.entities }
func (c *Client) Fog() *reconcile.FogMirror       { return c.fog }

// ApplySettings hands s to the server through the command stream. Sent
// before the first connect, the actions wait in the transport queue.
func (c *Client) ApplySettings(s settings.Settings) int {
	actions := settings.StartupActions(s)
	for _, a := range actions {
		c.commands.SendAction(a)
	}
	return len(actions)
}

// Frame is a consistent read-only view for one rendered frame. State is
// shared with other readers and must not be modified.
type Frame struct {
	State     *protocol.GameStateUpdate
	Entities  []protocol.EntityDelta
	Connected bool
	Queued    int
}

func (c *Client) Frame() Frame {
	c.mu.RLock()
	latest := c.latest
	c.mu.RUnlock()
	return Frame{
		State:     latest,
		Entities:  c.entities.Values(),
		Connected: c.link.Connected(),
		Queued:    c.link.Queued(),
	}
}

// Logs returns up to Options.LogHistory most recent log entries, oldest first.
func (c *Client) Logs() []protocol.LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]protocol.LogEntry, len(c.logs))
	copy(out, c.logs)
	return out
}

func (c *Client) VibeSession(agentID uint64) (VibeSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[agentID]
	if !ok {
		return VibeSession{}, false
	}
	return s.clone(), true
}

// VibeSessions lists every session seen, by agent id.
func (c *Client) VibeSessions() []VibeSession {
	c.mu.RLock()
	out := make([]VibeSession, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s.clone())
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

func (c *Client) Grade(buildingID string) (protocol.GradeResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.grades[buildingID]
	return g, ok
}

type Status struct {
	Connected    bool          `json:"connected"`
	Queued       int           `json:"queued"`
	Connects     int           `json:"connects"`
	ServerTick   protocol.Tick `json:"server_tick"`
	Updates      uint64        `json:"updates"`
	Entities     int           `json:"entities"`
	FogChunks    int           `json:"fog_chunks"`
	VibeSessions int           `json:"vibe_sessions"`
	Grades       int           `json:"grades"`
	NextTick     protocol.Tick `json:"next_command_tick"`
}

func (c *Client) Status() Status {
	es := c.entities.Stats()
	c.mu.RLock()
	st := Status{
		Connects:     c.connects,
		VibeSessions: len(c.sessions),
		Grades:       len(c.grades),
	}
	c.mu.RUnlock()
	st.Connected = c.link.Connected()
	st.Queued = c.link.Queued()
	st.ServerTick = es.LastTick
	st.Updates = es.Applied
	st.Entities = es.Entities
	st.FogChunks = c.fog.Len()
	st.NextTick = c.commands.NextTick()
	return st
}

func (c *Client) handleGameState(u *protocol.GameStateUpdate) {
	c.entities.Apply(u)
	c.fog.Apply(u)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = u
	if len(u.LogEntries) == 0 {
		return
	}
	c.logs = append(c.logs, u.LogEntries...)
	if over := len(c.logs) - c.opts.LogHistory; over > 0 {
		c.logs = append([]protocol.LogEntry(nil), c.logs[over:]...)
	}
}

func (c *Client) handleVibeStarted(m protocol.VibeSessionStarted) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[m.AgentID] = &VibeSession{AgentID: m.AgentID, Active: true, StartedAt: time.Now()}
}

func (c *Client) handleVibeOutput(m protocol.VibeOutput) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session(m.AgentID)
	s.Output = append(s.Output, m.Data...)
	if over := len(s.Output) - c.opts.VibeBufferBytes; over > 0 {
		s.Output = append([]byte(nil), s.Output[over:]...)
		s.Dropped += over
	}
}

func (c *Client) handleVibeEnded(m protocol.VibeSessionEnded) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session(m.AgentID)
	s.Active = false
	s.EndedAt = time.Now()
	s.EndReason = m.Reason
}

func (c *Client) handleGrade(m protocol.GradeResult) {
	c.mu.Lock()
	c.grades[m.BuildingID] = m
	c.mu.Unlock()
	c.log.Info("grade", zap.String("building", m.BuildingID), zap.Uint8("stars", m.Stars))
}

// session returns the session for id, creating an active one for output
// that arrives without a start message.
func (c *Client) session(id uint64) *VibeSession {
	s, ok := c.sessions[id]
	if !ok {
		s = &VibeSession{AgentID: id, Active: true, StartedAt: time.Now()}
		c.sessions[id] = s
	}
	return s
}

func (s *VibeSession) clone() VibeSession {
	out := *s
	out.Output = append([]byte(nil), s.Output...)
	return out
}
