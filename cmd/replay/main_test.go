package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"vibecraft.ai/internal/protocol"
	"vibecraft.ai/internal/recorder"
)

func encode(t *testing.T, m protocol.ServerMessage) []byte {
	t.Helper()
	b, err := protocol.EncodeServerMessage(m)
	require.NoError(t, err)
	return b
}

func TestReplayRecordedFrames(t *testing.T) {
	dir := t.TempDir()
	w := recorder.NewWriter(dir)
	frames := [][]byte{
		encode(t, &protocol.GameStateUpdate{Tick: 1, EntitiesChanged: []protocol.EntityDelta{
			{ID: 1, Kind: protocol.KindAgent, Data: protocol.AgentData{Name: "a"}},
			{ID: 2, Kind: protocol.KindRogue, Data: protocol.RogueData{RogueType: protocol.RogueMimic}},
		}}),
		{0xc1},
		encode(t, protocol.GradeResult{BuildingID: "b"}),
		encode(t, &protocol.GameStateUpdate{Tick: 2, EntitiesRemoved: []protocol.EntityID{2}}),
		encode(t, &protocol.GameStateUpdate{Tick: 3, EntitiesChanged: []protocol.EntityDelta{
			{ID: 5, Kind: protocol.KindItem, Data: protocol.ItemData{ItemType: "x"}},
		}}),
	}
	for _, f := range frames {
		require.NoError(t, w.WriteFrame(f))
	}
	require.NoError(t, w.Close())

	files, err := recorder.ListFiles(dir)
	require.NoError(t, err)

	var out bytes.Buffer
	r := newReplayer(&out, 2, w.Session(), 2)
	for _, p := range files {
		require.NoError(t, recorder.ReadFile(p, r.frame))
	}
	r.report()

	require.True(t, r.stopped)
	require.Equal(t, 5, r.frames)
	require.Equal(t, 1, r.failed)
	require.Equal(t, 3, r.messages[protocol.TagGameState])
	require.Equal(t, 1, r.messages[protocol.TagGradeResult])
	_, ok := r.entities.Get(5)
	require.True(t, ok)
	_, ok = r.entities.Get(2)
	require.False(t, ok)
	require.Contains(t, out.String(), "replay ok frames=5 tick=3")
	require.Contains(t, out.String(), "decode_errors=1")
}

func TestReplaySkipsOtherSessions(t *testing.T) {
	dir := t.TempDir()
	w := recorder.NewWriter(dir)
	require.NoError(t, w.WriteFrame(encode(t, &protocol.GameStateUpdate{Tick: 1})))
	require.NoError(t, w.Close())

	files, err := recorder.ListFiles(dir)
	require.NoError(t, err)

	var out bytes.Buffer
	r := newReplayer(&out, 0, "other", 0)
	for _, p := range files {
		require.NoError(t, recorder.ReadFile(p, r.frame))
	}
	require.Equal(t, 0, r.frames)
	require.Equal(t, 1, r.skipped)
}
