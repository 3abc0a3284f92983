package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zig-index/zigdex/internal/resource"
)

// Table 是某一资源种类的持久化键值表，七种资源各持有一个实例，
// 共享同一份 Store 与锁管理。
type Table[T any] struct {
	store *Store
	kind  resource.Kind
	ttl   time.Duration
	now   func() time.Time
}

// TableOf 基于 Store 构建指定种类的表，默认使用全局 TTL 与 time.Now。
func TableOf[T any](s *Store, kind resource.Kind) *Table[T] {
	return &Table[T]{
		store: s,
		kind:  kind,
		ttl:   DefaultTTL,
		now:   time.Now,
	}
}

// WithClock 注入测试时钟，返回表自身便于链式调用。
func (t *Table[T]) WithClock(now func() time.Time) *Table[T] {
	t.now = now
	return t
}

// WithTTL 覆盖新鲜度窗口，非正值保持默认不变。
func (t *Table[T]) WithTTL(ttl time.Duration) *Table[T] {
	if ttl > 0 {
		t.ttl = ttl
	}
	return t
}

// Kind 返回表所属的资源种类。
func (t *Table[T]) Kind() resource.Kind {
	return t.kind
}

// Get 读取一条记录。requireFresh 为 true 时，过期记录与缺失记录一样
// 返回 ErrNotFound；为 false 时无论多旧都返回（回退读取用）。
func (t *Table[T]) Get(key string, requireFresh bool) (*Record[T], error) {
	filePath, err := t.recordPath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var rec Record[T]
	if err := json.Unmarshal(data, &rec); err != nil {
		// 损坏的记录按缺失处理，下一次成功抓取会覆盖它。
		return nil, ErrNotFound
	}

	if requireFresh && !rec.Fresh(t.now(), t.ttl) {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// GetMany 批量读取，结果只包含存在（且满足新鲜度要求）的键。
func (t *Table[T]) GetMany(keys []string, requireFresh bool) (map[string]*Record[T], error) {
	result := make(map[string]*Record[T], len(keys))
	for _, key := range keys {
		rec, err := t.Get(key, requireFresh)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		result[key] = rec
	}
	return result, nil
}

// Upsert 整条覆盖写入：同键重复写入以后写为准，不做字段级合并。
func (t *Table[T]) Upsert(rec Record[T]) error {
	if rec.Key == "" {
		return errors.New("record key required")
	}

	unlock := t.store.lockEntry(t.lockKey(rec.Key))
	defer unlock()

	filePath, err := t.recordPath(rec.Key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", rec.Key, err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(filePath), ".record-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, writeErr := tempFile.Write(data)
	closeErr := tempFile.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tempName)
		return writeErr
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

// UpsertMany 逐条写入，遇到首个错误即返回；已写入的记录保持有效。
func (t *Table[T]) UpsertMany(recs []Record[T]) error {
	for _, rec := range recs {
		if err := t.Upsert(rec); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table[T]) lockKey(key string) string {
	return string(t.kind) + "::" + key
}

// recordPath 将 "owner/name" 或 "username" 形式的键映射到磁盘路径。
// 键空间是显式的：一到两个非空段，拒绝 "." / ".." 等穿越写法。
func (t *Table[T]) recordPath(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("record key required")
	}

	segments := strings.Split(trimmed, "/")
	if len(segments) > 2 {
		return "", fmt.Errorf("invalid record key: %s", key)
	}
	for _, seg := range segments {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("invalid record key: %s", key)
		}
	}

	kindRoot := filepath.Join(t.store.basePath, string(t.kind))
	return filepath.Join(kindRoot, filepath.FromSlash(trimmed)+".json"), nil
}
