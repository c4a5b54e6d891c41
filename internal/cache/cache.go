// Package cache keeps embedding vectors on disk between runs, so reindexing
// an unchanged schema or repeating a question does not call the provider again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alexSpace56/data-navigator/internal/errors"
)

const (
	DefaultTTL       = 30 * 24 * time.Hour
	DefaultMaxSizeMB = 100

	entrySuffix = ".json"
)

// Store persists vectors by key
type Store interface {
	// Get returns the vector for key; ok is false on a miss or an expired entry
	Get(ctx context.Context, key string) (vector []float32, ok bool, err error)
	Put(ctx context.Context, key string, vector []float32) error
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

// Stats describes the cache contents and this process's hit counts
type Stats struct {
	Entries int64   `json:"entries"`
	Bytes   int64   `json:"bytes"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type entry struct {
	Key       string    `json:"key"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileStore stores one JSON file per vector, named by the key's hash
type FileStore struct {
	dir      string
	maxBytes int64
	ttl      time.Duration
	now      func() time.Time

	mu     sync.Mutex
	hits   int64
	misses int64
}

// Key joins the parts identifying a vector, e.g. provider name and text
func Key(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// NewFileStore opens the store under dir, creating it and dropping expired entries
func NewFileStore(dir string, maxSizeMB int, ttl time.Duration) (*FileStore, error) {
	if dir == "" {
		return nil, errors.NewConfigError("cache directory is required", "cache_dir")
	}

	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSizeMB
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create cache directory")
	}

	s := &FileStore{
		dir:      dir,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		ttl:      ttl,
		now:      time.Now,
	}

	if err := s.prune(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]float32, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, errors.FromContext(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)

	e, err := readEntry(path)
	if err != nil {
		s.misses++

		if os.IsNotExist(err) {
			return nil, false, nil
		}

		// unreadable entries are dropped and treated as misses
		_ = os.Remove(path)

		return nil, false, nil
	}

	if e.Key != key || s.now().After(e.ExpiresAt) {
		s.misses++
		_ = os.Remove(path)

		return nil, false, nil
	}

	s.hits++

	return e.Vector, true, nil
}

func (s *FileStore) Put(ctx context.Context, key string, vector []float32) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}

	now := s.now()

	data, err := json.Marshal(entry{
		Key:       key,
		Vector:    vector,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to encode cache entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.makeRoom(int64(len(data))); err != nil {
		return err
	}

	path := s.path(key)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to write cache entry")
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to write cache entry")
	}

	return nil
}

// Clear removes every entry and resets the hit counts
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.FromContext(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.files()
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to remove cache entry")
		}
	}

	s.hits, s.misses = 0, 0

	return nil
}

func (s *FileStore) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, errors.FromContext(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.files()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Entries: int64(len(files)), Hits: s.hits, Misses: s.misses}
	for _, f := range files {
		stats.Bytes += f.size
	}

	if total := s.hits + s.misses; total > 0 {
		stats.HitRate = float64(s.hits) / float64(total)
	}

	return stats, nil
}

func (s *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+entrySuffix)
}

type fileInfo struct {
	path    string
	size    int64
	modTime time.Time
}

func (s *FileStore) files() ([]fileInfo, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to read cache directory")
	}

	files := make([]fileInfo, 0, len(dirEntries))

	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), entrySuffix) {
			continue
		}

		info, err := de.Info()
		if err != nil {
			continue
		}

		files = append(files, fileInfo{
			path:    filepath.Join(s.dir, de.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}

	return files, nil
}

// makeRoom evicts the oldest entries until incoming bytes fit under the limit
func (s *FileStore) makeRoom(incoming int64) error {
	files, err := s.files()
	if err != nil {
		return err
	}

	var total int64
	for _, f := range files {
		total += f.size
	}

	if total+incoming <= s.maxBytes {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	for _, f := range files {
		if total+incoming <= s.maxBytes {
			break
		}

		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, errors.ErrTypeFileSystem, "failed to evict cache entry")
		}

		total -= f.size
	}

	return nil
}

// prune drops expired and unreadable entries
func (s *FileStore) prune() error {
	files, err := s.files()
	if err != nil {
		return err
	}

	now := s.now()

	for _, f := range files {
		e, err := readEntry(f.path)
		if err != nil || now.After(e.ExpiresAt) {
			_ = os.Remove(f.path)
		}
	}

	return nil
}

func readEntry(path string) (entry, error) {
	var e entry

	data, err := os.ReadFile(path)
	if err != nil {
		return e, err
	}

	err = json.Unmarshal(data, &e)

	return e, err
}
