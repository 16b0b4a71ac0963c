package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/junsooki/framegrab/internal/capture"
	"github.com/junsooki/framegrab/internal/encoder"
)

const maxIndexRetries = 16

// FileSequence writes each frame to <dir>/<index>.<ext>, with index
// starting one past the highest index already present in dir.
type FileSequence struct {
	dir string
	enc encoder.Encoder

	mu   sync.Mutex
	next int
}

// NewFileSequence creates dir if needed and scans it for the next index.
func NewFileSequence(dir string, enc encoder.Encoder) (*FileSequence, error) {
	if dir == "" {
		return nil, errors.New("file sequence: directory must not be empty")
	}
	if enc == nil {
		return nil, errors.New("file sequence: encoder is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure output directory: %w", err)
	}
	next, err := NextIndex(dir)
	if err != nil {
		return nil, err
	}
	return &FileSequence{dir: dir, enc: enc, next: next}, nil
}

// Dir returns the output directory.
func (s *FileSequence) Dir() string { return s.dir }

// Next returns the index the next delivered frame will use.
func (s *FileSequence) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Deliver encodes frame and writes it under the next free index. Files are
// created exclusively; if another writer took the index the directory is
// rescanned and the write retried.
func (s *FileSequence) Deliver(frame capture.FrameBuffer) error {
	data, err := s.enc.Encode(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < maxIndexRetries; attempt++ {
		path := filepath.Join(s.dir, strconv.Itoa(s.next)+"."+s.enc.Ext())
		err := writeExclusive(path, data)
		if errors.Is(err, fs.ErrExist) {
			next, scanErr := NextIndex(s.dir)
			if scanErr != nil {
				return scanErr
			}
			s.next = max(next, s.next+1)
			continue
		}
		if err != nil {
			return err
		}
		s.next++
		return nil
	}
	return fmt.Errorf("no free index in %s after %d attempts", s.dir, maxIndexRetries)
}

func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// NextIndex returns one past the highest non-negative integer file stem in
// dir, or 0 when there is none.
func NextIndex(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scan output directory: %w", err)
	}
	next := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		n, err := strconv.Atoi(stem)
		if err != nil || n < 0 {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return next, nil
}
