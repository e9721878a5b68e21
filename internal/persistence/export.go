package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/merchant-network/internal/engine"
)

// ExportWriter streams snapshots as zstd-compressed JSON lines, one snapshot
// per line.
type ExportWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	n   int
}

// CreateExport creates (or truncates) an export file at path.
func CreateExport(path string) (*ExportWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &ExportWriter{f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

// Write appends one snapshot.
func (x *ExportWriter) Write(snap *engine.Snapshot) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.w == nil {
		return fmt.Errorf("export closed")
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if _, err := x.w.Write(b); err != nil {
		return err
	}
	if err := x.w.WriteByte('\n'); err != nil {
		return err
	}
	x.n++
	return nil
}

// Count returns the number of snapshots written.
func (x *ExportWriter) Count() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.n
}

// Close flushes the stream and closes the file.
func (x *ExportWriter) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.w == nil {
		return nil
	}
	err := x.w.Flush()
	if cerr := x.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := x.f.Close(); err == nil {
		err = cerr
	}
	x.w, x.enc, x.f = nil, nil, nil
	return err
}

// ReadExport decodes every snapshot in an export stream.
func ReadExport(r io.Reader) ([]*engine.Snapshot, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []*engine.Snapshot
	jd := json.NewDecoder(bufio.NewReaderSize(dec, 128*1024))
	for {
		snap := &engine.Snapshot{}
		if err := jd.Decode(snap); err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, fmt.Errorf("decode snapshot %d: %w", len(out), err)
		}
		out = append(out, snap)
	}
}

// ReadExportFile opens and decodes an export file.
func ReadExportFile(path string) ([]*engine.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadExport(f)
}
