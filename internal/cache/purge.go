package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

func (s *fileStore) PurgeAll(root string) error {
	dir, err := os.Open(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	names, _ := dir.Readdirnames(-1)
	dir.Close()

	for _, name := range names {
		purgePath(filepath.Join(root, name))
	}
	// root 自身可能正被其它进程重新写入，删除失败不影响 flush 语义。
	_ = os.Remove(root)
	return nil
}

// purgePath 递归删除，忽略并发删除导致的不存在错误。
func purgePath(p string) {
	info, err := os.Lstat(p)
	if err != nil {
		return
	}
	if !info.IsDir() {
		_ = os.Remove(p)
		return
	}
	dir, err := os.Open(p)
	if err != nil {
		return
	}
	names, _ := dir.Readdirnames(-1)
	dir.Close()
	for _, name := range names {
		purgePath(filepath.Join(p, name))
	}
	_ = os.Remove(p)
}

func (s *fileStore) Inventory(root string) (*Inventory, error) {
	inv := &Inventory{Root: root, Scopes: make(map[string]*ScopeUsage)}
	now := s.now()

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				if errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipAll
				}
				return err
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		isTemp := strings.HasPrefix(name, tempPrefix)
		isEntry := !isTemp && name != indexFileName && strings.HasSuffix(name, entryExt)
		if !isTemp && !isEntry {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		usage := inv.scope(root, p)
		inv.Bytes += info.Size()
		usage.Bytes += info.Size()
		if isTemp {
			inv.TempFiles++
			usage.TempFiles++
			return nil
		}
		inv.Entries++
		usage.Entries++
		if info.ModTime().Before(now) {
			inv.Expired++
			usage.Expired++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (inv *Inventory) scope(root, p string) *ScopeUsage {
	name := "."
	if rel, err := filepath.Rel(root, p); err == nil {
		if parts := strings.SplitN(rel, string(filepath.Separator), 2); len(parts) == 2 {
			name = parts[0]
		}
	}
	usage := inv.Scopes[name]
	if usage == nil {
		usage = &ScopeUsage{}
		inv.Scopes[name] = usage
	}
	return usage
}
