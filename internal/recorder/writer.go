// Package recorder captures raw inbound frames to hour-rotated, zstd
// compressed JSONL files and reads them back.
package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"
)

const filePrefix = "frames"

// Record is one line of a recording. Frame holds the bytes exactly as they
// arrived and is base64 in the JSON form.
type Record struct {
	Seq     uint64    `json:"seq"`
	At      time.Time `json:"at"`
	Session string    `json:"session"`
	Frame   []byte    `json:"frame"`
}

type Writer struct {
	dir     string
	session string
	now     func() time.Time

	mu      sync.Mutex
	seq     uint64
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewWriter records into dir under a fresh session id. Files are created
// lazily on the first frame.
func NewWriter(dir string) *Writer {
	return &Writer{
		dir:     dir,
		session: uuid.NewString(),
		now:     time.Now,
	}
}

func (w *Writer) Session() string { return w.session }

// WriteFrame appends one frame. The caller may reuse frame afterwards.
func (w *Writer) WriteFrame(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	at := w.now().UTC()
	hour := at.Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	w.seq++
	b, err := json.Marshal(Record{Seq: w.seq, At: at, Session: w.session, Frame: frame})
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Sync pushes buffered data through the compressor to the file.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.enc == nil {
		return nil
	}
	return w.enc.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return multierr.Append(err, f.Close())
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		err = multierr.Append(err, w.w.Flush())
		w.w = nil
	}
	if w.enc != nil {
		err = multierr.Append(err, w.enc.Close())
		w.enc = nil
	}
	if w.f != nil {
		err = multierr.Append(err, w.f.Close())
		w.f = nil
	}
	w.curHour = ""
	return err
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", filePrefix, hour))
}
