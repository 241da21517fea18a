package autosave

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"page-composer-backend/internal/repository"
	"page-composer-backend/pkg/cache"
)

// ErrNotFound is returned by a Store when the key holds no record.
var ErrNotFound = errors.New("autosave record not found")

var (
	// ErrCorruptRecord is returned for stored data that is not a record.
	ErrCorruptRecord = errors.New("corrupt autosave record")
	// ErrMissingSections is returned for a record without a sections array.
	ErrMissingSections = errors.New("autosave record has no sections")
)

// Store is the key-value store holding the auto-save record.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// FileStore keeps each record in "<dir>/<key>.json". Writes go through a
// temporary file and a rename, so a record is either fully replaced or untouched.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("autosave directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create autosave directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key)+".json")
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read autosave record: %w", err)
	}
	return data, nil
}

func (s *FileStore) Set(_ context.Context, key string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".autosave-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write autosave record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write autosave record: %w", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace autosave record: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete autosave record: %w", err)
	}
	return nil
}

// RedisStore keeps records in Redis and lets them expire after the retention window.
type RedisStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewRedisStore(c *cache.Cache, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: c, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.cache.GetBytes(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *RedisStore) Set(ctx context.Context, key string, data []byte) error {
	return s.cache.SetBytes(ctx, key, data, s.ttl)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}

// DatabaseStore keeps records in the autosave_entries table.
type DatabaseStore struct {
	repo repository.AutoSaveRepository
}

func NewDatabaseStore(repo repository.AutoSaveRepository) *DatabaseStore {
	return &DatabaseStore{repo: repo}
}

func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := s.repo.Get(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry.Data, nil
}

func (s *DatabaseStore) Set(ctx context.Context, key string, data []byte) error {
	return s.repo.Set(ctx, key, data)
}

func (s *DatabaseStore) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}
