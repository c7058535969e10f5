package routes

import (
	"context"
	"sort"

	"github.com/gofiber/fiber/v3"

	"github.com/offline-hub/offline-hub/internal/cache"
	"github.com/offline-hub/offline-hub/internal/deploy"
	"github.com/offline-hub/offline-hub/internal/manifest"
	"github.com/offline-hub/offline-hub/internal/version"
)

// RegisterStatusRoutes 暴露 /-/status 与 /-/stores 诊断接口，
// 供运维查询部署状态与磁盘上的版本化 store。
func RegisterStatusRoutes(app *fiber.App, manager *deploy.Manager, store cache.Store) {
	if app == nil || manager == nil {
		return
	}

	app.Get("/-/status", func(c fiber.Ctx) error {
		ctx := requestContext(c)

		active, activated := manager.ActiveStore()
		entries, err := manager.EntryCount(ctx)
		if err != nil {
			entries = -1
		}

		return c.JSON(fiber.Map{
			"state":            string(manager.State()),
			"active_store":     active,
			"activated":        activated,
			"target_store":     manager.TargetStoreName(),
			"manifest_entries": manager.ManifestLen(),
			"cached_entries":   entries,
			"version":          version.Full(),
		})
	})

	app.Get("/-/stores", func(c fiber.Ctx) error {
		if store == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "store_unavailable"})
		}
		ctx := requestContext(c)

		names, err := store.ListStores(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "store_list_failed"})
		}
		sort.Strings(names)

		active, _ := manager.ActiveStore()
		payload := make([]storePayload, 0, len(names))
		for _, name := range names {
			item := storePayload{Name: name, Active: name == active}
			if app, ver, ok := manifest.ParseStoreName(name); ok {
				item.App = app
				item.Version = ver
			}
			if count, err := store.CountEntries(ctx, name); err == nil {
				item.Entries = count
			}
			payload = append(payload, item)
		}
		return c.JSON(fiber.Map{"stores": payload})
	})
}

type storePayload struct {
	Name    string `json:"name"`
	App     string `json:"app,omitempty"`
	Version int    `json:"version,omitempty"`
	Entries int    `json:"entries"`
	Active  bool   `json:"active"`
}

func requestContext(c fiber.Ctx) context.Context {
	if ctx := c.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
