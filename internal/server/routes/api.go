package routes

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/zig-index/zigdex/internal/catalog"
	"github.com/zig-index/zigdex/internal/fetch"
	"github.com/zig-index/zigdex/internal/ratelimit"
	"github.com/zig-index/zigdex/internal/store"
)

// maxBatchKeys 限制一次批量查询的键数量，保护上游配额。
const maxBatchKeys = 100

// APIDeps 聚合 API 路由需要的依赖。
type APIDeps struct {
	Orchestrator *fetch.Orchestrator
	Catalog      *catalog.Catalog
	Logger       *logrus.Logger
}

// RegisterAPIRoutes 挂载目录站点的数据接口。
func RegisterAPIRoutes(app *fiber.App, deps APIDeps) {
	if app == nil || deps.Orchestrator == nil {
		return
	}
	orch := deps.Orchestrator

	app.Get("/api/repos/:owner/:repo", func(c fiber.Ctx) error {
		result, err := orch.Repo(c.Context(), repoKey(c), forceRefresh(c))
		if err != nil {
			return renderFetchError(c, err)
		}
		if result.Record.Status == store.StatusDeleted {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":  "repo_not_found",
				"status": store.StatusDeleted,
			})
		}
		return renderResult(c, result)
	})

	app.Get("/api/repos/:owner/:repo/readme", func(c fiber.Ctx) error {
		result, err := orch.Readme(c.Context(), repoKey(c), forceRefresh(c))
		if err != nil {
			return renderFetchError(c, err)
		}
		return renderResult(c, result)
	})

	app.Get("/api/repos/:owner/:repo/releases", func(c fiber.Ctx) error {
		result, err := orch.Releases(c.Context(), repoKey(c), forceRefresh(c))
		if err != nil {
			return renderFetchError(c, err)
		}
		return renderResult(c, result)
	})

	app.Get("/api/repos/:owner/:repo/manifest", func(c fiber.Ctx) error {
		result, err := orch.Manifest(c.Context(), repoKey(c), forceRefresh(c))
		if err != nil {
			return renderFetchError(c, err)
		}
		return renderResult(c, result)
	})

	app.Get("/api/repos/:owner/:repo/issues", func(c fiber.Ctx) error {
		result, err := orch.Issues(c.Context(), repoKey(c), forceRefresh(c))
		if err != nil {
			return renderFetchError(c, err)
		}
		return renderResult(c, result)
	})

	app.Get("/api/repos/:owner/:repo/commits", func(c fiber.Ctx) error {
		result, err := orch.Commits(c.Context(), repoKey(c), forceRefresh(c))
		if err != nil {
			return renderFetchError(c, err)
		}
		return renderResult(c, result)
	})

	app.Get("/api/users/:login", func(c fiber.Ctx) error {
		result, err := orch.User(c.Context(), c.Params("login"), forceRefresh(c))
		if err != nil {
			return renderFetchError(c, err)
		}
		return renderResult(c, result)
	})

	app.Post("/api/repos/query", func(c fiber.Ctx) error {
		var req struct {
			Repos   []string `json:"repos"`
			Refresh bool     `json:"refresh"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
		}
		if len(req.Repos) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "repos_required"})
		}
		if len(req.Repos) > maxBatchKeys {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "too_many_repos"})
		}
		for _, key := range req.Repos {
			if !validRepoKey(key) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_repo_key", "key": key})
			}
		}

		results, err := orch.RepoMany(c.Context(), req.Repos, req.Refresh)
		if err != nil {
			return renderFetchError(c, err)
		}

		// 每个键都有条目；没有任何可用数据的键额外列入 missing。
		encoded := make(map[string]any, len(results))
		missing := make([]string, 0)
		for key, result := range results {
			encoded[key] = encodeResult(result)
			if result.Record == nil {
				missing = append(missing, key)
			}
		}
		sort.Strings(missing)
		return c.JSON(fiber.Map{"results": encoded, "missing": missing})
	})

	app.Get("/api/packages", func(c fiber.Ctx) error {
		if deps.Catalog == nil || deps.Catalog.Len() == 0 {
			return c.JSON(fiber.Map{"packages": []any{}})
		}

		results, err := orch.RepoMany(c.Context(), deps.Catalog.Keys(), false)
		if err != nil {
			return renderFetchError(c, err)
		}

		packages := make([]fiber.Map, 0, deps.Catalog.Len())
		for _, pkg := range deps.Catalog.Packages {
			entry := fiber.Map{
				"name":        pkg.Name,
				"repo":        pkg.Repo,
				"description": pkg.Description,
				"tags":        pkg.Tags,
			}
			if result, found := results[pkg.Repo]; found {
				entry["summary"] = encodeResult(result)
			}
			packages = append(packages, entry)
		}
		return c.JSON(fiber.Map{"packages": packages})
	})
}

func repoKey(c fiber.Ctx) string {
	return c.Params("owner") + "/" + c.Params("repo")
}

// forceRefresh 识别 ?refresh=1 / ?refresh=true，强制绕过新鲜缓存。
func forceRefresh(c fiber.Ctx) bool {
	switch c.Query("refresh") {
	case "1", "true":
		return true
	default:
		return false
	}
}

func validRepoKey(key string) bool {
	owner, name, found := strings.Cut(key, "/")
	return found && owner != "" && name != "" && !strings.Contains(name, "/")
}

// resultPayload 是统一的响应信封。缓存状态与回退原因是建议性字段，
// 调用方照常渲染 data 并把它们作为非阻断提示展示。
type resultPayload struct {
	Data      any       `json:"data"`
	Stale     bool      `json:"stale"`
	FromCache bool      `json:"from_cache"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
	Status    string    `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func encodeResult[T any](result fetch.Result[T]) resultPayload {
	payload := resultPayload{
		Stale:     result.Stale,
		FromCache: result.CacheHit,
	}
	if result.Err != nil {
		payload.Error = result.Err.Error()
	}
	if result.Record != nil {
		payload.FetchedAt = result.Record.FetchedAt().UTC()
		payload.Status = result.Record.Status
		if result.Record.Payload != nil {
			payload.Data = *result.Record.Payload
		}
	}
	return payload
}

func renderResult[T any](c fiber.Ctx, result fetch.Result[T]) error {
	return c.JSON(encodeResult(result))
}

// renderFetchError 将缓存层错误翻译为对外状态码：限流 503、上游故障
// 502、其余 500。
func renderFetchError(c fiber.Ctx, err error) error {
	var limited *ratelimit.LimitedError
	switch {
	case errors.As(err, &limited):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":    "rate_limited",
			"reset_at": limited.ResetAt.UTC(),
		})
	case errors.Is(err, fetch.ErrUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream_unavailable"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
}
