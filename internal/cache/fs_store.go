package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultDirMode os.FileMode = 0o755
	indexFileName              = "index.php"
	tempPattern                = ".tmp-*"
	tempPrefix                 = ".tmp-"
	entryExt                   = ".php"
)

// NewStore 以 basePath 为根目录构建磁盘存储，并确保根目录及其 index.php 存在。
func NewStore(basePath string, opts Options) (Store, error) {
	if basePath == "" {
		return nil, errors.New("cache path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve cache path: %w", err)
	}

	dirMode := opts.DirMode.Perm()
	if dirMode == 0 {
		dirMode = defaultDirMode
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &fileStore{
		basePath: abs,
		dirMode:  dirMode,
		fileMode: dirMode & 0o666,
		now:      now,
		locks:    make(map[string]*entryLock),
	}
	if err := s.ensureDir(abs); err != nil {
		return nil, err
	}
	return s, nil
}

// fileStore 通过 entryLock 串行化同一进程内对同一路径的写入/删除；跨进程只依赖 rename 的原子性。
type fileStore struct {
	basePath string
	dirMode  os.FileMode
	fileMode os.FileMode
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

func (s *fileStore) Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func (s *fileStore) TimeToExpiry(path string) time.Duration {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.ModTime().Sub(s.now())
}

func (s *fileStore) Write(ctx context.Context, path string, payload []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkPath(path); err != nil {
		return err
	}

	unlock := s.lockEntry(path)
	defer unlock()

	dir := filepath.Dir(path)
	if err := s.ensureTree(dir); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", ErrWriteFailed, err)
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(payload)
	if err == nil {
		err = tempFile.Chmod(s.fileMode)
	}
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("%w: rename: %v", ErrWriteFailed, err)
	}

	now := s.now()
	if err := os.Chtimes(path, now, now.Add(ttl)); err != nil {
		return fmt.Errorf("%w: set expiry: %v", ErrWriteFailed, err)
	}
	return nil
}

func (s *fileStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *fileStore) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkPath(path); err != nil {
		return err
	}

	unlock := s.lockEntry(path)
	defer unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ensureTree 从根目录开始逐级创建到 dir 为止的目录，每级补齐 index.php。
func (s *fileStore) ensureTree(dir string) error {
	rel, err := filepath.Rel(s.basePath, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, dir)
	}

	current := s.basePath
	if err := s.ensureDir(current); err != nil {
		return err
	}
	if rel == "." {
		return nil
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, seg)
		if err := s.ensureDir(current); err != nil {
			return err
		}
	}
	return nil
}

// ensureDir 幂等地创建目录并写入空的 index.php。并发创建同一目录不视为错误。
func (s *fileStore) ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%w: %s is not a directory", ErrDirCreate, dir)
	case err != nil:
		if err := os.MkdirAll(dir, s.dirMode); err != nil && !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %v", ErrDirCreate, err)
		}
		_ = os.Chmod(dir, s.dirMode)
	}

	index := filepath.Join(dir, indexFileName)
	f, err := os.OpenFile(index, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.fileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("%w: index file: %v", ErrDirCreate, err)
	}
	return f.Close()
}

func (s *fileStore) checkPath(path string) error {
	clean := filepath.Clean(path)
	if !strings.HasPrefix(clean, s.basePath+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return nil
}

func (s *fileStore) lockEntry(path string) func() {
	s.mu.Lock()
	lock := s.locks[path]
	if lock == nil {
		lock = &entryLock{}
		s.locks[path] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, path)
		}
		s.mu.Unlock()
	}
}
