package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/focus-cache/focus-cache/internal/cache"
	"github.com/focus-cache/focus-cache/internal/objectcache"
	"github.com/focus-cache/focus-cache/internal/server"
)

type fakeInspector struct {
	stats  objectcache.Stats
	scope  objectcache.Scope
	inv    *cache.Inventory
	invErr error
}

func (f fakeInspector) Stats() objectcache.Stats { return f.stats }
func (f fakeInspector) Describe() objectcache.Scope { return f.scope }
func (f fakeInspector) Inventory() (*cache.Inventory, error) { return f.inv, f.invErr }

func TestEncodeStatsSortsGroupsAndComputesRatio(t *testing.T) {
	payload := encodeStats(objectcache.Stats{
		Hits:   3,
		Misses: 1,
		Groups: map[string]map[string]int64{
			"users": {"hit_memory": 1},
			"posts": {"hit_disk": 2, "miss_empty": 1},
		},
	})
	if payload.HitRatio != 0.75 {
		t.Fatalf("expected hit ratio 0.75, got %v", payload.HitRatio)
	}
	if len(payload.Groups) != 2 || payload.Groups[0].Group != "posts" {
		t.Fatalf("expected sorted groups, got %+v", payload.Groups)
	}
}

func TestEncodeStatsEmpty(t *testing.T) {
	payload := encodeStats(objectcache.Stats{})
	if payload.HitRatio != 0 || payload.Groups != nil {
		t.Fatalf("empty stats should encode to zero values: %+v", payload)
	}
}

func TestDiagnosticsRoutes(t *testing.T) {
	engine := fakeInspector{
		stats: objectcache.Stats{Hits: 1, MemoryEntries: 1},
		scope: objectcache.Scope{TenantID: 4, GlobalGroups: []string{"users"}},
		inv:   &cache.Inventory{Root: "/tmp/object-cache", Entries: 5},
	}
	app := newDiagnosticsApp(t, engine)

	var stats statsPayload
	getJSON(t, app, "/-/stats", fiber.StatusOK, &stats)
	if stats.Hits != 1 || stats.MemoryEntries != 1 {
		t.Fatalf("unexpected stats payload: %+v", stats)
	}

	var scope objectcache.Scope
	getJSON(t, app, "/-/groups", fiber.StatusOK, &scope)
	if scope.TenantID != 4 || len(scope.GlobalGroups) != 1 {
		t.Fatalf("unexpected groups payload: %+v", scope)
	}

	var inv cache.Inventory
	getJSON(t, app, "/-/inventory", fiber.StatusOK, &inv)
	if inv.Entries != 5 {
		t.Fatalf("unexpected inventory payload: %+v", inv)
	}
}

func TestInventoryFailureReturns500(t *testing.T) {
	app := newDiagnosticsApp(t, fakeInspector{invErr: errors.New("walk failed")})

	var body map[string]string
	getJSON(t, app, "/-/inventory", fiber.StatusInternalServerError, &body)
	if body["error"] != "inventory_failed" {
		t.Fatalf("unexpected error payload: %v", body)
	}
}

func newDiagnosticsApp(t *testing.T, engine Inspector) *fiber.App {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	app, err := server.NewApp(server.AppOptions{Logger: logger, ListenPort: 9090})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	RegisterDiagnosticsRoutes(app, engine, logger)
	return app
}

func getJSON(t *testing.T, app *fiber.App, path string, status int, out any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	if err != nil {
		t.Fatalf("app.Test(%s) failed: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != status {
		t.Fatalf("%s: expected status %d, got %d", path, status, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("%s: decode body: %v", path, err)
	}
}
