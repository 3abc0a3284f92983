package routes

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/zig-index/zigdex/internal/fetch"
	"github.com/zig-index/zigdex/internal/resource"
)

// RegisterDiagnosticsRoutes 暴露 /-/ 前缀的诊断接口，供运维查询配额、
// 资源种类与手动清缓存。
func RegisterDiagnosticsRoutes(app *fiber.App, orch *fetch.Orchestrator, logger *logrus.Logger) {
	if app == nil || orch == nil {
		return
	}

	app.Get("/-/quota", func(c fiber.Ctx) error {
		info, state, err := orch.Quota(c.Context())
		if err != nil {
			// 查询失败时仍返回闸门视角，调用方至少能看到本地判断。
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "quota_unreachable",
				"gate":  state,
			})
		}
		return c.JSON(fiber.Map{
			"upstream": info,
			"gate":     state,
		})
	})

	app.Get("/-/kinds", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"kinds": encodeKinds(resource.All())})
	})

	app.Get("/-/kinds/:key", func(c fiber.Ctx) error {
		key := strings.TrimSpace(c.Params("key"))
		if key == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "kind_key_required"})
		}
		meta, ok := resource.Resolve(key)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "kind_not_found"})
		}
		return c.JSON(encodeKind(meta))
	})

	app.Post("/-/cache/clear", func(c fiber.Ctx) error {
		if err := orch.ClearCache(); err != nil {
			if logger != nil {
				logger.WithField("action", "cache_clear").Error(err.Error())
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cache_clear_failed"})
		}
		if logger != nil {
			logger.WithField("action", "cache_clear").Info("disk cache cleared")
		}
		return c.JSON(fiber.Map{"cleared": true})
	})
}

type kindPayload struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	Payload     string `json:"payload"`
	KeySpace    string `json:"key_space"`
}

func encodeKinds(metas []resource.Metadata) []kindPayload {
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Key < metas[j].Key
	})
	result := make([]kindPayload, 0, len(metas))
	for _, meta := range metas {
		result = append(result, encodeKind(meta))
	}
	return result
}

func encodeKind(meta resource.Metadata) kindPayload {
	return kindPayload{
		Key:         string(meta.Key),
		Description: meta.Description,
		Payload:     meta.Payload,
		KeySpace:    string(meta.KeySpace),
	}
}
