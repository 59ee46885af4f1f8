package routes

import (
	"sort"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/focus-cache/focus-cache/internal/cache"
	"github.com/focus-cache/focus-cache/internal/objectcache"
	"github.com/focus-cache/focus-cache/internal/server"
)

// Inspector 是诊断接口读取的引擎视图，*objectcache.Cache 满足该接口。
type Inspector interface {
	Stats() objectcache.Stats
	Describe() objectcache.Scope
	Inventory() (*cache.Inventory, error)
}

// RegisterDiagnosticsRoutes 暴露 /-/stats、/-/inventory 与 /-/groups 诊断接口，供运维查看缓存状态。
func RegisterDiagnosticsRoutes(app *fiber.App, engine Inspector, logger logrus.FieldLogger) {
	if app == nil || engine == nil {
		return
	}

	app.Get("/-/stats", func(c fiber.Ctx) error {
		return c.JSON(encodeStats(engine.Stats()))
	})

	app.Get("/-/inventory", func(c fiber.Ctx) error {
		inv, err := engine.Inventory()
		if err != nil {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"action":     "inventory",
					"request_id": server.RequestID(c),
				}).WithError(err).Warn("扫描缓存目录失败")
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "inventory_failed"})
		}
		return c.JSON(inv)
	})

	app.Get("/-/groups", func(c fiber.Ctx) error {
		return c.JSON(engine.Describe())
	})
}

type statsPayload struct {
	Hits          int64          `json:"hits"`
	Misses        int64          `json:"misses"`
	HitRatio      float64        `json:"hit_ratio"`
	Flushes       int64          `json:"flushes"`
	MemoryEntries int            `json:"memory_entries"`
	MemoryGroups  int            `json:"memory_groups"`
	Groups        []groupPayload `json:"groups"`
}

type groupPayload struct {
	Group string           `json:"group"`
	Ops   map[string]int64 `json:"ops"`
}

// encodeStats 把分组统计转换为按名称排序的列表，并补充命中率。
func encodeStats(s objectcache.Stats) statsPayload {
	payload := statsPayload{
		Hits:          s.Hits,
		Misses:        s.Misses,
		Flushes:       s.Flushes,
		MemoryEntries: s.MemoryEntries,
		MemoryGroups:  s.MemoryGroups,
	}
	if total := s.Hits + s.Misses; total > 0 {
		payload.HitRatio = float64(s.Hits) / float64(total)
	}
	if len(s.Groups) == 0 {
		return payload
	}
	names := make([]string, 0, len(s.Groups))
	for name := range s.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	payload.Groups = make([]groupPayload, 0, len(names))
	for _, name := range names {
		payload.Groups = append(payload.Groups, groupPayload{Group: name, Ops: s.Groups[name]})
	}
	return payload
}
