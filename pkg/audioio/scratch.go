package audioio

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Scratch owns a directory of short-lived audio files.
// Every file it hands out is tracked until released.
type Scratch struct {
	dir    string
	logger *slog.Logger

	mu   sync.Mutex
	live map[string]struct{}
}

// NewScratch creates the scratch directory if needed.
// An empty dir selects "voicechat-<pid>" under os.TempDir().
func NewScratch(dir string, logger *slog.Logger) (*Scratch, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = filepath.Join(os.TempDir(), fmt.Sprintf("voicechat-%d", os.Getpid()))
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create scratch dir: %w", ErrFileSystem, err)
	}
	return &Scratch{
		dir:    dir,
		logger: logger.With("component", "audioio.scratch"),
		live:   make(map[string]struct{}),
	}, nil
}

// Dir returns the scratch directory.
func (s *Scratch) Dir() string { return s.dir }

// Write stores data in a new uniquely named file with the given extension.
func (s *Scratch) Write(data []byte, ext string) (*Artifact, error) {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}
	path := filepath.Join(s.dir, uuid.NewString()+"."+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	s.mu.Lock()
	s.live[path] = struct{}{}
	s.mu.Unlock()

	s.logger.Debug("artifact created", "path", path, "bytes", len(data))
	return &Artifact{Path: path, scratch: s}, nil
}

// Persist writes a captured chunk as a WAV file.
func (s *Scratch) Persist(chunk *AudioChunk) (*Artifact, error) {
	if chunk == nil {
		return nil, fmt.Errorf("%w: nil chunk", ErrFileSystem)
	}
	return s.Write(EncodeWAV(chunk.Bytes(), chunk.SampleRate), "wav")
}

// Live returns the paths of artifacts not yet released, sorted.
func (s *Scratch) Live() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.live))
	for p := range s.live {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (s *Scratch) forget(path string) {
	s.mu.Lock()
	delete(s.live, path)
	s.mu.Unlock()
}

// Artifact is a temporary audio file owned by a single pipeline run.
type Artifact struct {
	Path string

	scratch *Scratch
	once    sync.Once
	err     error
}

// Release deletes the file. It is safe to call more than once and
// treats an already missing file as released.
func (a *Artifact) Release() error {
	if a == nil {
		return nil
	}
	a.once.Do(func() {
		if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			a.err = fmt.Errorf("%w: %w", ErrFileSystem, err)
		}
		if a.scratch != nil {
			a.scratch.forget(a.Path)
		}
	})
	return a.err
}
