package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-yaml"
	"github.com/klauspost/compress/gzip"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/exprbox/exprbox/internal/infrastructure/logging"
)

// sonicThreshold selects sonic over encoding/json for larger payloads,
// where its SIMD decoding pays off.
const sonicThreshold = 10 * 1024

// Store holds named execution snapshots for the data-plane API. Snapshots
// arrive over HTTP or load from a directory of fixture files.
type Store struct {
	mu     sync.RWMutex
	snaps  map[string]*Snapshot
	logger *logging.Logger
}

// NewStore creates an empty store.
func NewStore(logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		snaps:  make(map[string]*Snapshot),
		logger: logger,
	}
}

// Put normalizes and stores a snapshot under id, replacing any previous
// snapshot with that id.
func (s *Store) Put(id string, snap *Snapshot) {
	snap.Normalize()

	s.mu.Lock()
	s.snaps[id] = snap
	s.mu.Unlock()
}

// Get returns the snapshot stored under id.
func (s *Store) Get(id string) (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snaps[id]
	return snap, ok
}

// Delete removes the snapshot stored under id.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snaps[id]; !ok {
		return false
	}
	delete(s.snaps, id)
	return true
}

// List returns the stored snapshot ids, unsorted.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.snaps))
	for id := range s.snaps {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of stored snapshots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps)
}

// LoadDir walks dir and loads every recognized snapshot file, keyed by
// file name without extension. Unreadable or malformed files are logged
// and skipped.
func (s *Store) LoadDir(dir string) (int, error) {
	var count atomic.Int64

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		id, ok := snapshotID(path)
		if !ok {
			return nil
		}

		snap, lerr := LoadFile(path)
		if lerr != nil {
			s.logger.Warn("skip snapshot file",
				zap.String("path", path),
				zap.Error(lerr))
			return nil
		}

		s.Put(id, snap)
		count.Add(1)
		return nil
	})
	if err != nil {
		return int(count.Load()), fmt.Errorf("walk snapshot dir %s: %w", dir, err)
	}

	return int(count.Load()), nil
}

// Watch reloads snapshots as their files change, until ctx is cancelled.
// Intended to run in its own goroutine.
func (s *Store) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create snapshot watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.logger.Info("watching snapshot directory", zap.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(event)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("snapshot watcher error", zap.Error(werr))
		}
	}
}

func (s *Store) handleEvent(event fsnotify.Event) {
	id, ok := snapshotID(event.Name)
	if !ok {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		snap, err := LoadFile(event.Name)
		if err != nil {
			s.logger.Warn("reload snapshot failed",
				zap.String("path", event.Name),
				zap.Error(err))
			return
		}
		s.Put(id, snap)
		s.logger.Info("snapshot reloaded", zap.String("id", id))
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if s.Delete(id) {
			s.logger.Info("snapshot removed", zap.String("id", id))
		}
	}
}

// LoadFile parses one snapshot file. Format follows the extension: .json,
// .yaml/.yml, or .toml, each optionally gzipped with a .gz suffix.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	name := path
	if strings.HasSuffix(name, ".gz") {
		gz, gerr := gzip.NewReader(bytes.NewReader(data))
		if gerr != nil {
			return nil, fmt.Errorf("open gzip snapshot: %w", gerr)
		}
		defer gz.Close()
		if data, err = io.ReadAll(gz); err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}
		name = strings.TrimSuffix(name, ".gz")
	}

	var snap Snapshot
	switch filepath.Ext(name) {
	case ".json":
		if len(data) > sonicThreshold {
			err = sonic.Unmarshal(data, &snap)
		} else {
			err = json.Unmarshal(data, &snap)
		}
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &snap)
	case ".toml":
		err = toml.Unmarshal(data, &snap)
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", filepath.Ext(name))
	}
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", filepath.Base(path), err)
	}

	snap.Normalize()
	return &snap, nil
}

// snapshotID maps a snapshot file path to its store id: the base name
// with format extensions stripped. Returns false for unrecognized files.
func snapshotID(path string) (string, bool) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")

	ext := filepath.Ext(base)
	switch ext {
	case ".json", ".yaml", ".yml", ".toml":
		return strings.TrimSuffix(base, ext), true
	default:
		return "", false
	}
}
