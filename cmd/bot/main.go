package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vibecraft.ai/internal/client"
	"vibecraft.ai/internal/protocol"
	"vibecraft.ai/internal/transport/ws"
)

func main() {
	var (
		url         = flag.String("url", "ws://localhost:9001", "game server ws url")
		interval    = flag.Duration("interval", 100*time.Millisecond, "time between inputs")
		attackRange = flag.Float64("attack-range", 3, "attack rogues closer than this")
		seed        = flag.Int64("seed", 0, "rng seed (0 = time based)")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	logger = logger.Named("bot")
	defer func() { _ = logger.Sync() }()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	var c *client.Client
	tr := ws.New(ws.Config{
		Endpoint:     *url,
		Reconnect:    true,
		OnConnect:    func(conn uint64) { c.HandleConnect(conn) },
		OnDisconnect: func(err error) { c.HandleDisconnect(err) },
	}, logger)
	c = client.New(client.Options{}, tr, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := &bot{rng: rand.New(rand.NewSource(*seed)), attackRange: float32(*attackRange)}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Run(ctx) })
	g.Go(func() error {
		t := time.NewTicker(*interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				f := c.Frame()
				if !f.Connected || f.State == nil {
					continue
				}
				move, act, target := b.decide(f)
				tick := c.Commands().Send(move, act, target)
				if act != nil {
					logger.Debug("act", zap.Uint64("tick", tick), zap.String("action", act.ActionName()))
				}
			}
		}
	})
	if err := g.Wait(); err != nil {
		logger.Error("bot stopped", zap.Error(err))
		os.Exit(1)
	}
}

type bot struct {
	rng         *rand.Rand
	attackRange float32
	heading     protocol.Vec2
	steps       int
}

// decide attacks the nearest rogue in range, and otherwise wanders,
// picking a new heading every few dozen inputs.
func (b *bot) decide(f client.Frame) (protocol.Vec2, protocol.PlayerAction, *protocol.EntityID) {
	me := f.State.Player.Position
	if f.State.Player.Dead {
		return protocol.Vec2{}, nil, nil
	}

	var (
		best     *protocol.EntityDelta
		bestDist = float32(math.MaxFloat32)
	)
	for i := range f.Entities {
		e := &f.Entities[i]
		if e.Kind != protocol.KindRogue {
			continue
		}
		if d := dist(me, e.Position); d < bestDist {
			best, bestDist = e, d
		}
	}
	if best != nil && bestDist <= b.attackRange {
		id := best.ID
		toward := protocol.Vec2{X: best.Position.X - me.X, Y: best.Position.Y - me.Y}
		return toward, protocol.ActionAttack, &id
	}

	if b.steps <= 0 {
		b.heading = protocol.Vec2{X: float32(b.rng.Intn(3) - 1), Y: float32(b.rng.Intn(3) - 1)}
		b.steps = 20 + b.rng.Intn(40)
	}
	b.steps--
	return b.heading, nil, nil
}

func dist(a, b protocol.Vec2) float32 {
	dx, dy := float64(a.X-b.X), float64(a.Y-b.Y)
	return float32(math.Sqrt(dx*dx + dy*dy))
}
