package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"vibecraft.ai/internal/protocol"
)

type Config struct {
	Endpoint string

	// Reconnect redials after a lost connection, waiting InitialBackoff and
	// doubling up to MaxBackoff. A successful connect resets the delay.
	Reconnect      bool
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// ReadTimeout closes a connection that delivers nothing for this long.
	// Zero waits forever.
	ReadTimeout time.Duration

	InboundBuffer int

	// OnFrame sees every inbound binary frame before it is decoded.
	OnFrame func(frame []byte)
	// OnConnect runs after the queue has been flushed, with the id that
	// messages from this connection will carry.
	OnConnect    func(conn uint64)
	OnDisconnect func(err error)
}

func (c *Config) normalize() {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 200 * time.Millisecond
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = 5 * time.Second
		if c.MaxBackoff < c.InitialBackoff {
			c.MaxBackoff = c.InitialBackoff
		}
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.InboundBuffer <= 0 {
		c.InboundBuffer = 64
	}
}

// Transport owns the single websocket connection to the game server.
//
// Every outbound frame goes through one unbounded FIFO. A single writer
// goroutine per connection drains it, so callers never wait on the network:
// Send, Connected and Queued only take a short lock. A new connection is
// reported connected once everything queued before it has been written.
//
// A frame stays at the head of the queue until its write succeeds. A write
// that fails part-way, for example on a write timeout, is sent again in full
// on the next connection, so the server may see it twice.
//
// Inbound frames are decoded and delivered on Inbound; frames that fail to
// decode are logged and dropped without closing the connection.
type Transport struct {
	cfg    Config
	log    *zap.Logger
	dialer websocket.Dialer

	connected atomic.Bool
	connSeq   atomic.Uint64

	mu    sync.Mutex
	queue [][]byte
	conn  *websocket.Conn

	wake    chan struct{}
	inbound chan protocol.Inbound
}

func New(cfg Config, logger *zap.Logger) *Transport {
	cfg.normalize()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		cfg: cfg,
		log: logger.Named("transport"),
		dialer: websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
			ReadBufferSize:   64 * 1024,
			WriteBufferSize:  64 * 1024,
		},
		wake:    make(chan struct{}, 1),
		inbound: make(chan protocol.Inbound, cfg.InboundBuffer),
	}
}

func (t *Transport) Inbound() <-chan protocol.Inbound { return t.inbound }

func (t *Transport) Connected() bool { return t.connected.Load() }

// Queued is the number of frames not yet written, including one that may
// be in flight.
func (t *Transport) Queued() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Send appends frame to the outbound queue and returns. It never fails and
// takes ownership of frame.
func (t *Transport) Send(frame []byte) {
	t.mu.Lock()
	t.queue = append(t.queue, frame)
	t.mu.Unlock()
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// Close drops the current connection, if any. Queued frames are kept.
func (t *Transport) Close() {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Run keeps a connection to cfg.Endpoint until ctx is done. Without
// Reconnect it returns after the first connection ends.
func (t *Transport) Run(ctx context.Context) error {
	backoff := t.cfg.InitialBackoff
	for {
		established, err := t.serve(ctx, t.cfg.Endpoint)
		if ctx.Err() != nil {
			return nil
		}
		if !t.cfg.Reconnect {
			return err
		}
		if established {
			backoff = t.cfg.InitialBackoff
		}
		t.log.Info("reconnecting", zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < t.cfg.MaxBackoff {
			backoff *= 2
			if backoff > t.cfg.MaxBackoff {
				backoff = t.cfg.MaxBackoff
			}
		}
	}
}

// Open dials endpoint and serves the connection until it closes or ctx is
// done. The returned error describes why the connection ended.
func (t *Transport) Open(ctx context.Context, endpoint string) error {
	_, err := t.serve(ctx, endpoint)
	return err
}

func (t *Transport) serve(ctx context.Context, endpoint string) (established bool, err error) {
	conn, resp, err := t.dialer.DialContext(ctx, endpoint, http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.log.Warn("dial failed", zap.String("endpoint", endpoint), zap.Error(err))
		return false, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	id := t.connSeq.Add(1)

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	stop := make(chan struct{})
	flushed := make(chan struct{})
	werr := make(chan error, 1)
	go func() { werr <- t.writeLoop(conn, stop, flushed) }()

	teardown := func() {
		t.connected.Store(false)
		close(stop)
		_ = conn.Close()
		t.mu.Lock()
		if t.conn == conn {
			t.conn = nil
		}
		t.mu.Unlock()
	}

	select {
	case <-flushed:
	case err := <-werr:
		teardown()
		t.log.Warn("flush failed", zap.String("endpoint", endpoint), zap.Error(err))
		return false, fmt.Errorf("flush queue: %w", err)
	case <-ctx.Done():
		teardown()
		<-werr
		return false, ctx.Err()
	}

	t.connected.Store(true)
	t.log.Info("connected", zap.String("endpoint", endpoint), zap.Uint64("conn", id))
	if t.cfg.OnConnect != nil {
		t.cfg.OnConnect(id)
	}

	rerr := make(chan error, 1)
	go func() { rerr <- t.readLoop(ctx, conn, id, stop) }()

	select {
	case err = <-rerr:
		teardown()
		<-werr
	case err = <-werr:
		t.log.Warn("write failed; frame kept queued", zap.Int("queued", t.Queued()), zap.Error(err))
		teardown()
		<-rerr
	case <-ctx.Done():
		teardown()
		<-werr
		<-rerr
	}

	if ctx.Err() != nil {
		err = ctx.Err()
	} else {
		t.log.Info("disconnected", zap.String("endpoint", endpoint), zap.Error(err))
	}
	if t.cfg.OnDisconnect != nil {
		t.cfg.OnDisconnect(err)
	}
	return true, err
}

// writeLoop writes queued frames in order until stop is closed or a write
// fails. flushed is closed the first time the queue is seen empty. A frame
// leaves the queue only after it was written.
func (t *Transport) writeLoop(conn *websocket.Conn, stop <-chan struct{}, flushed chan<- struct{}) error {
	announced := false
	for {
		t.mu.Lock()
		pending := len(t.queue) > 0
		var frame []byte
		if pending {
			frame = t.queue[0]
		}
		t.mu.Unlock()

		if !pending {
			if !announced {
				announced = true
				close(flushed)
			}
			select {
			case <-stop:
				return nil
			case <-t.wake:
			}
			continue
		}

		select {
		case <-stop:
			return nil
		default:
		}
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return err
		}

		t.mu.Lock()
		t.queue[0] = nil
		t.queue = t.queue[1:]
		if len(t.queue) == 0 {
			t.queue = nil
		}
		t.mu.Unlock()
	}
}

func (t *Transport) readLoop(ctx context.Context, conn *websocket.Conn, id uint64, stop <-chan struct{}) error {
	for {
		if t.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
		}
		typ, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if typ != websocket.BinaryMessage {
			t.log.Warn("dropping non-binary frame", zap.Int("type", typ), zap.Int("bytes", len(frame)))
			continue
		}
		if t.cfg.OnFrame != nil {
			t.cfg.OnFrame(frame)
		}
		msg, err := protocol.DecodeServerMessage(frame)
		if err != nil {
			t.log.Warn("dropping undecodable frame", zap.Int("bytes", len(frame)), zap.Error(err))
			continue
		}
		select {
		case t.inbound <- protocol.Inbound{Conn: id, Msg: msg}:
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
