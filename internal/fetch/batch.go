package fetch

import (
	"context"
	"fmt"
	"sync"

	"github.com/zig-index/zigdex/internal/ghapi"
	"github.com/zig-index/zigdex/internal/ratelimit"
	"github.com/zig-index/zigdex/internal/store"
)

// RepoMany 批量读取仓库概要，列表页用。结果对每个去重后的键都有一个
// 条目：失败且无旧副本的键记录为空、Err 非空，不会让整批失败。
// forceRefresh 跳过新鲜命中，所有键都重抓。
func (o *Orchestrator) RepoMany(ctx context.Context, keys []string, forceRefresh bool) (map[string]Result[ghapi.RepoSummary], error) {
	return fetchMany(ctx, o, o.repos, keys, forceRefresh, true, o.client.Repo)
}

// fetchMany 是批量读取的通用路径：新鲜命中直接返回；其余键先做一次
// 批量旧副本预读，再在有界并发下抓取，抓到的记录集中落盘。
func fetchMany[T any](
	ctx context.Context,
	o *Orchestrator,
	table *store.Table[T],
	keys []string,
	forceRefresh bool,
	trackStatus bool,
	remote func(context.Context, string) ghapi.Response[T],
) (map[string]Result[T], error) {
	unique := dedupe(keys)
	results := make(map[string]Result[T], len(unique))

	needFetch := unique
	if !forceRefresh {
		fresh, err := table.GetMany(unique, true)
		if err != nil {
			return nil, err
		}

		needFetch = make([]string, 0, len(unique))
		for _, key := range unique {
			if rec, found := fresh[key]; found {
				results[key] = Result[T]{Record: rec, CacheHit: true}
			} else {
				needFetch = append(needFetch, key)
			}
		}
	}
	if len(needFetch) == 0 {
		return results, nil
	}

	// 回退用的旧副本一次性预读，工作协程不再各自触盘。
	staleRecs, err := table.GetMany(needFetch, false)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, o.concurrency)
		pending []store.Record[T]
	)
	for _, key := range needFetch {
		wg.Add(1)
		go func(key string, staleRec *store.Record[T]) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				mu.Lock()
				results[key] = Result[T]{Err: err}
				mu.Unlock()
				return
			}

			result, rec := batchFetch(ctx, o, table, key, staleRec, trackStatus, remote)

			mu.Lock()
			defer mu.Unlock()
			results[key] = result
			if rec != nil {
				pending = append(pending, *rec)
			}
		}(key, staleRecs[key])
	}
	wg.Wait()

	if len(pending) > 0 {
		if err := table.UpsertMany(pending); err != nil {
			return nil, err
		}
	}
	return results, ctx.Err()
}

// batchFetch 处理批量路径上的单个键，返回结果与待落盘的记录（可能为
// nil）。失败且无旧副本时结果的 Record 为空、Err 记录原因。
func batchFetch[T any](
	ctx context.Context,
	o *Orchestrator,
	table *store.Table[T],
	key string,
	staleRec *store.Record[T],
	trackStatus bool,
	remote func(context.Context, string) ghapi.Response[T],
) (Result[T], *store.Record[T]) {
	kind := string(table.Kind())

	fallback := func(action string, cause error) (Result[T], *store.Record[T]) {
		o.logFetch(kind, key, staleRec != nil, staleRec != nil, action)
		if staleRec == nil {
			return Result[T]{Err: cause}, nil
		}
		return Result[T]{Record: staleRec, Stale: true, CacheHit: true, Err: cause}, nil
	}

	if err := o.gate.Check(); err != nil {
		return fallback("gate_closed", err)
	}

	resp := remote(ctx, key)
	switch resp.Outcome {
	case ghapi.OutcomeOK, ghapi.OutcomeNotFound:
		rec := store.Record[T]{
			Key:         key,
			Payload:     resp.Payload,
			LastFetched: o.now().UnixMilli(),
		}
		if trackStatus {
			rec.Status = store.StatusExists
			if resp.Outcome == ghapi.OutcomeNotFound {
				rec.Status = store.StatusDeleted
			}
		}
		o.logFetch(kind, key, false, false, "remote_fetch")
		return Result[T]{Record: &rec}, &rec
	case ghapi.OutcomeRateLimited:
		resetAt := o.limitReset(resp.ResetAt)
		o.gate.Report(resetAt)
		return fallback("rate_limited", &ratelimit.LimitedError{ResetAt: resetAt})
	default:
		cause := resp.Err
		if cause == nil {
			cause = fmt.Errorf("upstream %s", resp.Outcome)
		}
		return fallback("remote_failure", cause)
	}
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	result := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, key)
	}
	return result
}
