package reconcile

import (
	"sort"
	"sync"

	"vibecraft.ai/internal/protocol"
)

// FogMirror holds the most recent light levels per chunk. Each fog update
// replaces the whole chunk.
type FogMirror struct {
	mu     sync.RWMutex
	chunks map[protocol.ChunkPos][]protocol.FogTile
}

func NewFogMirror() *FogMirror {
	return &FogMirror{chunks: make(map[protocol.ChunkPos][]protocol.FogTile)}
}

func (f *FogMirror) Apply(u *protocol.GameStateUpdate) {
	if u == nil || len(u.FogUpdates) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fu := range u.FogUpdates {
		tiles := make([]protocol.FogTile, len(fu.Tiles))
		copy(tiles, fu.Tiles)
		f.chunks[fu.Chunk] = tiles
	}
}

func (f *FogMirror) Chunk(pos protocol.ChunkPos) ([]protocol.FogTile, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	tiles, ok := f.chunks[pos]
	if !ok {
		return nil, false
	}
	out := make([]protocol.FogTile, len(tiles))
	copy(out, tiles)
	return out, true
}

// Chunks lists the known chunk positions, row by row.
func (f *FogMirror) Chunks() []protocol.ChunkPos {
	f.mu.RLock()
	out := make([]protocol.ChunkPos, 0, len(f.chunks))
	for pos := range f.chunks {
		out = append(out, pos)
	}
	f.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

func (f *FogMirror) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.chunks)
}

func (f *FogMirror) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = make(map[protocol.ChunkPos][]protocol.FogTile)
}
