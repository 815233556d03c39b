package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"vibecraft.ai/internal/protocol"
	"vibecraft.ai/internal/recorder"
	"vibecraft.ai/internal/reconcile"
	"vibecraft.ai/internal/router"
)

func main() {
	var (
		framesDir = flag.String("frames", "", "dir containing frames-*.jsonl.zst")
		every     = flag.Int("every", 0, "print mirror state every N frames (0 = only at the end)")
		session   = flag.String("session", "", "replay only this recording session (optional)")
		toTick    = flag.Uint64("to_tick", 0, "stop after the first update past this server tick (optional)")
	)
	flag.Parse()

	if *framesDir == "" {
		fmt.Fprintln(os.Stderr, "missing -frames")
		os.Exit(2)
	}

	files, err := recorder.ListFiles(*framesDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list frames:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no frame files found in", *framesDir)
		os.Exit(1)
	}

	r := newReplayer(os.Stdout, *every, *session, *toTick)
	for _, path := range files {
		if err := recorder.ReadFile(path, r.frame); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
		if r.stopped {
			break
		}
	}
	r.report()
}

type replayer struct {
	out     io.Writer
	every   int
	session string
	toTick  protocol.Tick

	router   *router.Router
	entities *reconcile.Reconciler
	fog      *reconcile.FogMirror

	frames   int
	skipped  int
	failed   int
	messages map[string]int
	stopped  bool
}

func newReplayer(out io.Writer, every int, session string, toTick uint64) *replayer {
	r := &replayer{
		out:      out,
		every:    every,
		session:  session,
		toTick:   toTick,
		router:   router.New(nil),
		entities: reconcile.New(),
		fog:      reconcile.NewFogMirror(),
		messages: make(map[string]int),
	}
	r.router.OnGameState(func(u *protocol.GameStateUpdate) {
		r.entities.Apply(u)
		r.fog.Apply(u)
		if r.toTick != 0 && u.Tick > r.toTick {
			r.stopped = true
		}
	})
	return r
}

func (r *replayer) frame(rec recorder.Record) error {
	if r.session != "" && rec.Session != r.session {
		r.skipped++
		return nil
	}
	r.frames++
	msg, err := protocol.DecodeServerMessage(rec.Frame)
	if err != nil {
		r.failed++
		fmt.Fprintf(r.out, "seq=%d decode: %v\n", rec.Seq, err)
		return nil
	}
	r.messages[msg.MessageTag()]++
	r.router.Dispatch(msg)

	if r.every > 0 && r.frames%r.every == 0 {
		r.line("progress")
	}
	if r.stopped {
		return recorder.ErrStop
	}
	return nil
}

func (r *replayer) line(label string) {
	st := r.entities.Stats()
	fmt.Fprintf(r.out, "%s frames=%d tick=%d updates=%d entities=%d fog_chunks=%d\n",
		label, r.frames, st.LastTick, st.Applied, st.Entities, r.fog.Len())
}

func (r *replayer) report() {
	r.line("replay ok")
	fmt.Fprintf(r.out, "decode_errors=%d skipped=%d", r.failed, r.skipped)
	for _, tag := range []string{protocol.TagGameState, protocol.TagVibeOutput, protocol.TagVibeSessionStarted, protocol.TagVibeSessionEnded, protocol.TagGradeResult} {
		fmt.Fprintf(r.out, " %s=%d", tag, r.messages[tag])
	}
	fmt.Fprintln(r.out)

	byKind := map[protocol.EntityKind]int{}
	for _, e := range r.entities.Values() {
		byKind[e.Kind]++
	}
	for _, k := range []protocol.EntityKind{protocol.KindAgent, protocol.KindBuilding, protocol.KindRogue, protocol.KindItem, protocol.KindProjectile} {
		if byKind[k] > 0 {
			fmt.Fprintf(r.out, "  %s: %d\n", k, byKind[k])
		}
	}
}
