package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultTTL 是所有资源种类共享的新鲜度窗口。
const DefaultTTL = time.Hour

// ErrNotFound 表示记录不存在（或按新鲜度要求不可用）。
var ErrNotFound = errors.New("record not found")

// Status 仅对 repo 表有意义，描述仓库在上游的存在状态。
const (
	StatusExists  = "exists"
	StatusDeleted = "deleted"
	StatusUnknown = "unknown"
)

// Record 是单条缓存记录。Payload 为 nil 表示“确认不存在”（例如仓库没有
// README），与“从未抓取过”不同：后者体现为记录文件本身不存在。
type Record[T any] struct {
	Key         string `json:"key"`
	Payload     *T     `json:"payload"`
	Status      string `json:"status,omitempty"`
	LastFetched int64  `json:"last_fetched"`
}

// FetchedAt 返回 LastFetched 对应的时间点。
func (r *Record[T]) FetchedAt() time.Time {
	return time.UnixMilli(r.LastFetched)
}

// Fresh 判断记录在给定时刻是否仍处于 TTL 窗口内。
func (r *Record[T]) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.FetchedAt()) < ttl
}

// Store 以 basePath 为根目录管理所有资源表，整站复用一份实例。
type Store struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// Open 创建（或复用）缓存根目录并返回 Store。
func Open(basePath string) (*Store, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}

	return &Store{
		basePath: abs,
		locks:    make(map[string]*entryLock),
	}, nil
}

// BasePath 返回解析后的缓存根目录，供日志输出。
func (s *Store) BasePath() string {
	return s.basePath
}

// ClearAll 清空全部资源表。该操作只应由用户显式触发，正常运行期间
// 任何后台逻辑都不得调用。
func (s *Store) ClearAll() error {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.basePath, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// lockEntry 保证同一条记录不会被并发写入，锁对象在无人引用时回收。
func (s *Store) lockEntry(key string) func() {
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}
