package objectcache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/focus-cache/focus-cache/internal/cache"
	"github.com/focus-cache/focus-cache/internal/codec"
	"github.com/focus-cache/focus-cache/internal/layout"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestCache 构造落在临时目录的 Cache，mutate 可在构造前调整 Options。
func newTestCache(t *testing.T, clock *fakeClock, mutate func(*Options)) (*Cache, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "object-cache")
	opts := newTestOptions(t, root, clock)
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return c, root
}

// reopen 模拟新进程：同一目录、同一配置，但内存层为空。
func reopen(t *testing.T, root string, clock *fakeClock, mutate func(*Options)) *Cache {
	t.Helper()
	opts := newTestOptions(t, root, clock)
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("failed to reopen cache: %v", err)
	}
	return c
}

func newTestOptions(t *testing.T, root string, clock *fakeClock) Options {
	t.Helper()
	store, err := cache.NewStore(root, cache.Options{DirMode: 0o755, Now: clock.Now})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	resolver, err := layout.NewResolver(root, true)
	if err != nil {
		t.Fatalf("failed to create resolver: %v", err)
	}
	return Options{
		Store:               store,
		Resolver:            resolver,
		Codec:               codec.New(codec.Msgpack{}, 1<<20),
		Hasher:              layout.NewHasher("test-secret"),
		TenantID:            1,
		HashTenantPrefix:    true,
		NonPersistentGroups: []string{"comment"},
		Now:                 clock.Now,
	}
}

// entryFiles 返回 root 下所有条目文件（排除 index.php）。
func entryFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || d.Name() == layout.IndexFileName {
			return nil
		}
		if strings.HasSuffix(d.Name(), layout.EntryExt) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("walk cache dir: %v", err)
	}
	return files
}

func entryPathOf(t *testing.T, c *Cache, key, group string) string {
	t.Helper()
	path, err := c.entryPath(layout.NormalizeGroup(group), key)
	if err != nil {
		t.Fatalf("entryPath: %v", err)
	}
	return path
}

func containsSegment(path, segment string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == segment {
			return true
		}
	}
	return false
}
