// Package ratelimit tracks whether the upstream API quota is known to be
// exhausted. The gate is consulted before every remote call so that an
// already-dead quota is never burned further by probing requests; the
// upstream quota is shared by all concurrent fetches, which makes the
// short-circuit a correctness property rather than an optimization.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// DefaultResetDelay 在上游未给出重置时间时兜底使用。
const DefaultResetDelay = time.Hour

// LimitedError 表示配额耗尽，携带预计恢复时间。
type LimitedError struct {
	ResetAt time.Time
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.ResetAt.UTC().Format(time.RFC3339))
}

// Gate 是进程级限流闸门，两个状态：Open 与 Limited(resetAt)。
// 读改写序列由互斥锁保证原子性。
type Gate struct {
	mu      sync.Mutex
	limited bool
	resetAt time.Time
	now     func() time.Time
}

// NewGate 构建处于 Open 状态的闸门，默认使用 time.Now 作为时钟。
func NewGate() *Gate {
	return &Gate{now: time.Now}
}

// WithClock 注入测试时钟，返回闸门自身便于链式调用。
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
	return g
}

// Check 在 Limited 状态且未到重置时间时返回 *LimitedError，调用方应
// 跳过网络请求；到达重置时间后惰性恢复为 Open 并放行。
func (g *Gate) Check() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.limited {
		return nil
	}
	if !g.now().Before(g.resetAt) {
		g.limited = false
		g.resetAt = time.Time{}
		return nil
	}
	return &LimitedError{ResetAt: g.resetAt}
}

// Report 记录一次明确的限流信号。resetAt 为零值时按 now+1h 兜底。
func (g *Gate) Report(resetAt time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if resetAt.IsZero() {
		resetAt = g.now().Add(DefaultResetDelay)
	}
	g.limited = true
	g.resetAt = resetAt
}

// State 是 Snapshot 返回的只读视图，供诊断端输出。
type State struct {
	Limited bool      `json:"limited"`
	ResetAt time.Time `json:"reset_at,omitzero"`
}

// Snapshot 返回当前状态副本，同样采用惰性恢复语义。
func (g *Gate) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.limited && !g.now().Before(g.resetAt) {
		g.limited = false
		g.resetAt = time.Time{}
	}
	return State{Limited: g.limited, ResetAt: g.resetAt}
}
