package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 58, 0, time.UTC)
	w.now = func() time.Time { return clock }

	frames := [][]byte{{0x81, 0xa1, 'x', 0x01}, {}, {0xc1, 0xff}}
	for i, f := range frames {
		if i == 2 {
			clock = clock.Add(5 * time.Second)
		}
		require.NoError(t, w.WriteFrame(f))
	}
	require.NoError(t, w.Close())

	files, err := ListFiles(dir)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "frames-2026-03-01-10.jsonl.zst"),
		filepath.Join(dir, "frames-2026-03-01-11.jsonl.zst"),
	}, files)

	var got []Record
	for _, p := range files {
		require.NoError(t, ReadFile(p, func(r Record) error {
			got = append(got, r)
			return nil
		}))
	}
	require.Len(t, got, 3)
	for i, r := range got {
		require.Equal(t, uint64(i+1), r.Seq)
		require.Equal(t, w.Session(), r.Session)
		require.Equal(t, len(frames[i]), len(r.Frame))
	}
	require.Equal(t, frames[0], got[0].Frame)
	require.Equal(t, frames[2], got[2].Frame)
	require.True(t, got[2].At.After(got[0].At))
}

func TestReadFileStopsEarly(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	for i := 0; i < 5; i++ {
		require.NoError(t, w.WriteFrame([]byte{byte(i)}))
	}
	require.NoError(t, w.Close())

	files, err := ListFiles(dir)
	require.NoError(t, err)
	require.NotEmpty(t, files)

	n := 0
	require.NoError(t, ReadFile(files[0], func(Record) error {
		n++
		if n == 2 {
			return ErrStop
		}
		return nil
	}))
	require.Equal(t, 2, n)
}

func TestListFilesIgnoresOtherNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events-2026-01-01-00.jsonl.zst"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frames-sub.jsonl.zst"), 0o755))

	files, err := ListFiles(dir)
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestCloseWithoutWrites(t *testing.T) {
	w := NewWriter(t.TempDir())
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())
}
