package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/zig-index/zigdex/internal/ghapi"
	"github.com/zig-index/zigdex/internal/logging"
	"github.com/zig-index/zigdex/internal/ratelimit"
	"github.com/zig-index/zigdex/internal/resource"
	"github.com/zig-index/zigdex/internal/store"
)

// ErrUnavailable 表示远端失败且本地没有任何可回退的副本。
var ErrUnavailable = errors.New("resource unavailable")

// RemoteClient 抽象上游客户端，测试以桩实现替换真实 GitHub 访问。
type RemoteClient interface {
	Repo(ctx context.Context, key string) ghapi.Response[ghapi.RepoSummary]
	Readme(ctx context.Context, key string) ghapi.Response[string]
	Releases(ctx context.Context, key string) ghapi.Response[[]ghapi.Release]
	Manifest(ctx context.Context, key string) ghapi.Response[ghapi.Manifest]
	Issues(ctx context.Context, key string) ghapi.Response[ghapi.IssueCounts]
	Commits(ctx context.Context, key string) ghapi.Response[[]ghapi.Commit]
	User(ctx context.Context, login string) ghapi.Response[ghapi.UserProfile]
	Quota(ctx context.Context) (*ghapi.RateInfo, error)
}

// Result 是一次读取的结果。Stale 为 true 表示因远端失败回退到了过期
// 副本；CacheHit 为 true 表示没有产生远端请求。Err 是建议性字段：回退
// 成功时携带导致回退的原因，调用方照常渲染数据并附带提示。
type Result[T any] struct {
	Record   *store.Record[T]
	Stale    bool
	CacheHit bool
	Err      error
}

// Options 控制编排器行为，零值字段使用默认。
type Options struct {
	TTL         time.Duration
	Concurrency int
}

const defaultConcurrency = 3

// Orchestrator 为七种资源各持有一张表，共享同一个闸门与远端客户端。
type Orchestrator struct {
	client RemoteClient
	gate   *ratelimit.Gate
	logger *logrus.Logger
	disk   *store.Store

	repos     *store.Table[ghapi.RepoSummary]
	readmes   *store.Table[string]
	releases  *store.Table[[]ghapi.Release]
	manifests *store.Table[ghapi.Manifest]
	issues    *store.Table[ghapi.IssueCounts]
	commits   *store.Table[[]ghapi.Commit]
	users     *store.Table[ghapi.UserProfile]

	group       singleflight.Group
	concurrency int
	now         func() time.Time
}

// New 构建编排器。logger 为 nil 时静默运行（测试场景）。
func New(disk *store.Store, client RemoteClient, gate *ratelimit.Gate, logger *logrus.Logger, opts Options) *Orchestrator {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	o := &Orchestrator{
		client:      client,
		gate:        gate,
		logger:      logger,
		disk:        disk,
		concurrency: concurrency,
		now:         time.Now,

		repos:     store.TableOf[ghapi.RepoSummary](disk, resource.KindRepo).WithTTL(opts.TTL),
		readmes:   store.TableOf[string](disk, resource.KindReadme).WithTTL(opts.TTL),
		releases:  store.TableOf[[]ghapi.Release](disk, resource.KindReleases).WithTTL(opts.TTL),
		manifests: store.TableOf[ghapi.Manifest](disk, resource.KindManifest).WithTTL(opts.TTL),
		issues:    store.TableOf[ghapi.IssueCounts](disk, resource.KindIssues).WithTTL(opts.TTL),
		commits:   store.TableOf[[]ghapi.Commit](disk, resource.KindCommits).WithTTL(opts.TTL),
		users:     store.TableOf[ghapi.UserProfile](disk, resource.KindUser).WithTTL(opts.TTL),
	}
	return o
}

// WithClock 将同一个测试时钟注入编排器与所有表。
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	o.repos.WithClock(now)
	o.readmes.WithClock(now)
	o.releases.WithClock(now)
	o.manifests.WithClock(now)
	o.issues.WithClock(now)
	o.commits.WithClock(now)
	o.users.WithClock(now)
	return o
}

// Repo 读取仓库概要。上游 404 会落一条 status=deleted 的记录，之后的
// 读取在 TTL 内直接命中该记录，不再打到远端。forceRefresh 跳过新鲜
// 命中、强制重抓，但失败回退语义不变。
func (o *Orchestrator) Repo(ctx context.Context, key string, forceRefresh bool) (Result[ghapi.RepoSummary], error) {
	return fetchOne(ctx, o, o.repos, key, forceRefresh, true, o.client.Repo)
}

// Readme 读取渲染后的 README HTML。
func (o *Orchestrator) Readme(ctx context.Context, key string, forceRefresh bool) (Result[string], error) {
	return fetchOne(ctx, o, o.readmes, key, forceRefresh, false, o.client.Readme)
}

// Releases 读取发布列表。
func (o *Orchestrator) Releases(ctx context.Context, key string, forceRefresh bool) (Result[[]ghapi.Release], error) {
	return fetchOne(ctx, o, o.releases, key, forceRefresh, false, o.client.Releases)
}

// Manifest 读取解析后的 build.zig.zon 清单。
func (o *Orchestrator) Manifest(ctx context.Context, key string, forceRefresh bool) (Result[ghapi.Manifest], error) {
	return fetchOne(ctx, o, o.manifests, key, forceRefresh, false, o.client.Manifest)
}

// Issues 读取开放 issue/PR 计数。
func (o *Orchestrator) Issues(ctx context.Context, key string, forceRefresh bool) (Result[ghapi.IssueCounts], error) {
	return fetchOne(ctx, o, o.issues, key, forceRefresh, false, o.client.Issues)
}

// Commits 读取最近提交。
func (o *Orchestrator) Commits(ctx context.Context, key string, forceRefresh bool) (Result[[]ghapi.Commit], error) {
	return fetchOne(ctx, o, o.commits, key, forceRefresh, false, o.client.Commits)
}

// User 读取作者公开资料。
func (o *Orchestrator) User(ctx context.Context, login string, forceRefresh bool) (Result[ghapi.UserProfile], error) {
	return fetchOne(ctx, o, o.users, login, forceRefresh, false, o.client.User)
}

// Quota 直接查询上游配额端点，同时返回闸门当前状态。
func (o *Orchestrator) Quota(ctx context.Context) (*ghapi.RateInfo, ratelimit.State, error) {
	state := o.gate.Snapshot()
	info, err := o.client.Quota(ctx)
	if err != nil {
		return nil, state, err
	}
	return info, state, nil
}

// ClearCache 清空整个磁盘缓存并复位闸门之外的状态（闸门保持，配额
// 情况不因清缓存而改变）。
func (o *Orchestrator) ClearCache() error {
	return o.disk.ClearAll()
}

// GateState 返回闸门状态快照，诊断端使用。
func (o *Orchestrator) GateState() ratelimit.State {
	return o.gate.Snapshot()
}

// fetchOne 是所有资源共用的读取路径：新鲜命中直接返回；未命中时先过
// 闸门再打远端；远端失败时回退最近一次成功的副本。trackStatus 仅对
// repo 表为 true，控制 404 是否落为 deleted 记录。
func fetchOne[T any](
	ctx context.Context,
	o *Orchestrator,
	table *store.Table[T],
	key string,
	forceRefresh bool,
	trackStatus bool,
	remote func(context.Context, string) ghapi.Response[T],
) (Result[T], error) {
	kind := string(table.Kind())

	if !forceRefresh {
		if rec, err := table.Get(key, true); err == nil {
			o.logFetch(kind, key, true, false, "cache_hit")
			return Result[T]{Record: rec, CacheHit: true}, nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return Result[T]{}, err
		}
	}

	value, err, _ := o.group.Do(kind+"\x00"+key, func() (any, error) {
		return refreshOne(ctx, o, table, key, forceRefresh, trackStatus, remote)
	})
	if err != nil {
		return Result[T]{}, err
	}
	return value.(Result[T]), nil
}

// refreshOne 在 singleflight 内执行：再查一次新鲜副本（可能已被并发
// 请求补好）、读旧副本、过闸门、打远端、落盘；失败路径回退旧副本。
func refreshOne[T any](
	ctx context.Context,
	o *Orchestrator,
	table *store.Table[T],
	key string,
	forceRefresh bool,
	trackStatus bool,
	remote func(context.Context, string) ghapi.Response[T],
) (Result[T], error) {
	kind := string(table.Kind())

	if !forceRefresh {
		if rec, err := table.Get(key, true); err == nil {
			return Result[T]{Record: rec, CacheHit: true}, nil
		}
	}

	staleRec, err := table.Get(key, false)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Result[T]{}, err
	}

	if err := o.gate.Check(); err != nil {
		o.logFetch(kind, key, staleRec != nil, staleRec != nil, "gate_closed")
		return staleFallback(o, kind, key, staleRec, err)
	}

	resp := remote(ctx, key)
	switch resp.Outcome {
	case ghapi.OutcomeOK:
		rec := store.Record[T]{
			Key:         key,
			Payload:     resp.Payload,
			LastFetched: o.now().UnixMilli(),
		}
		if trackStatus {
			rec.Status = store.StatusExists
		}
		if err := table.Upsert(rec); err != nil {
			return Result[T]{}, err
		}
		o.logFetch(kind, key, false, false, "remote_fetch")
		return Result[T]{Record: &rec}, nil

	case ghapi.OutcomeNotFound:
		rec := store.Record[T]{
			Key:         key,
			LastFetched: o.now().UnixMilli(),
		}
		if trackStatus {
			rec.Status = store.StatusDeleted
		}
		if err := table.Upsert(rec); err != nil {
			return Result[T]{}, err
		}
		o.logFetch(kind, key, false, false, "remote_missing")
		return Result[T]{Record: &rec}, nil

	case ghapi.OutcomeRateLimited:
		resetAt := o.limitReset(resp.ResetAt)
		o.gate.Report(resetAt)
		o.logFetch(kind, key, staleRec != nil, staleRec != nil, "rate_limited")
		return staleFallback(o, kind, key, staleRec, &ratelimit.LimitedError{ResetAt: resetAt})

	default:
		cause := resp.Err
		if cause == nil {
			cause = fmt.Errorf("upstream %s", resp.Outcome)
		}
		o.logger.WithFields(logging.FetchFields(kind, key, staleRec != nil, staleRec != nil)).
			WithField("action", "remote_failure").
			WithField("outcome", resp.Outcome.String()).
			Warn(cause.Error())
		return staleFallback(o, kind, key, staleRec, cause)
	}
}

// limitReset 补齐上游缺失的重置时间，保证对外的限流错误总带 ResetAt。
func (o *Orchestrator) limitReset(resetAt time.Time) time.Time {
	if resetAt.IsZero() {
		return o.now().Add(ratelimit.DefaultResetDelay)
	}
	return resetAt
}

func (o *Orchestrator) logFetch(kind, key string, cacheHit, stale bool, action string) {
	fields := logging.FetchFields(kind, key, cacheHit, stale)
	fields["action"] = action
	o.logger.WithFields(fields).Info("resource read")
}

func staleFallback[T any](o *Orchestrator, kind, key string, staleRec *store.Record[T], cause error) (Result[T], error) {
	if staleRec != nil {
		o.logFetch(kind, key, true, true, "stale_fallback")
		return Result[T]{Record: staleRec, Stale: true, CacheHit: true, Err: cause}, nil
	}
	return Result[T]{}, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, kind, key, cause)
}
