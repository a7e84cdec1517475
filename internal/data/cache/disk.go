package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DiskMirror persists one provider's long-TTL entries to
// <root>/data/providers/<name>.json, pretty-printed UTF-8 JSON keyed by
// uppercase ticker. Writes are atomic (tmp + rename) and refused in
// read-only mode.
type DiskMirror struct {
	name     string
	path     string
	readOnly bool

	mu      sync.Mutex
	entries map[string]diskEntry
	dirty   bool
}

type diskEntry struct {
	Value      json.RawMessage `json:"value"`
	InsertedAt time.Time       `json:"inserted_at"`
	TTLSecs    int64           `json:"ttl_secs"`
}

// NewDiskMirror opens (or creates) the mirror file for one provider.
func NewDiskMirror(dataDir, name string, readOnly bool) *DiskMirror {
	m := &DiskMirror{
		name:     name,
		path:     filepath.Join(dataDir, "providers", name+".json"),
		readOnly: readOnly,
		entries:  make(map[string]diskEntry),
	}

	data, err := os.ReadFile(m.path)
	if err == nil {
		if err := json.Unmarshal(data, &m.entries); err != nil {
			log.Warn().Err(err).Str("path", m.path).Msg("discarding unreadable provider cache file")
			m.entries = make(map[string]diskEntry)
		}
	}
	return m
}

// Get returns a non-expired entry's raw value.
func (m *DiskMirror) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[strings.ToUpper(key)]
	if !ok {
		return nil, false
	}
	if e.TTLSecs > 0 && time.Since(e.InsertedAt) > time.Duration(e.TTLSecs)*time.Second {
		return nil, false
	}
	return e.Value, true
}

// Set records the entry in memory; Flush persists it.
func (m *DiskMirror) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[strings.ToUpper(key)] = diskEntry{
		Value:      value,
		InsertedAt: time.Now().UTC(),
		TTLSecs:    int64(ttl / time.Second),
	}
	m.dirty = true
}

// Flush writes dirty entries to disk. A no-op in read-only mode.
func (m *DiskMirror) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty || m.readOnly {
		return nil
	}

	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode provider cache %s: %w", m.name, err)
	}
	if err := WriteFileAtomic(m.path, data); err != nil {
		return err
	}
	m.dirty = false
	return nil
}

// Close flushes and releases the mirror.
func (m *DiskMirror) Close() error {
	return m.Flush()
}

// WriteFileAtomic writes data to path via a temp file and rename so
// readers never observe a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	return os.Rename(tmpName, path)
}
