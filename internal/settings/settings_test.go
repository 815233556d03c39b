package settings

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"vibecraft.ai/internal/protocol"
)

func TestStartupActions(t *testing.T) {
	require.Empty(t, StartupActions(Settings{}))
	require.Equal(t,
		[]protocol.PlayerAction{protocol.SetMistralApiKey{Key: "k"}},
		StartupActions(Settings{MistralAPIKey: "k"}),
	)
	require.Equal(t,
		[]protocol.PlayerAction{
			protocol.SetProjectDirectory{Path: "/work"},
			protocol.SetMistralApiKey{Key: "k"},
		},
		StartupActions(Settings{ProjectDirectory: "/work", MistralAPIKey: "k"}),
	)
}

func TestMerge(t *testing.T) {
	base := Settings{ProjectDirectory: "/a", MistralAPIKey: "old"}
	require.Equal(t, Settings{ProjectDirectory: "/a", MistralAPIKey: "new"}, base.Merge(Settings{MistralAPIKey: "new"}))
	require.Equal(t, base, base.Merge(Settings{}))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(Settings{ProjectDirectory: "/p"})
	got, err := m.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "/p", got.ProjectDirectory)

	require.NoError(t, m.Save(ctx, Settings{MistralAPIKey: "x"}))
	got, err = m.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, Settings{MistralAPIKey: "x"}, got)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.Error(t, m.Save(cancelled, Settings{}))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "settings.db")

	st, err := OpenSQLite(path)
	require.NoError(t, err)

	empty, err := st.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, Settings{}, empty)

	want := Settings{ProjectDirectory: "/home/me/game", MistralAPIKey: "sk-123"}
	require.NoError(t, st.Save(ctx, want))
	require.NoError(t, st.Save(ctx, want))
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())
	_, err = st.Load(ctx)
	require.ErrorIs(t, err, ErrClosed)

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&n))
	require.Equal(t, 2, n)
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	require.Error(t, err)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
