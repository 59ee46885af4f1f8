package cache

import (
	"context"
	"errors"
	"os"
	"time"
)

// Store 负责条目文件的原子读写。路径由 layout.Resolver 计算，Store 只校验其位于根目录之下。
type Store interface {
	// Exists 判断 path 是否为已存在的常规文件，不解释过期时间。
	Exists(path string) bool

	// TimeToExpiry 返回 mtime - now，负数表示已过期；文件不存在时返回 0。
	TimeToExpiry(path string) time.Duration

	// Write 通过同目录临时文件 + rename 写入 payload，并把 mtime 设置为 now + ttl。
	// 失败时清理临时文件并返回 ErrWriteFailed / ErrDirCreate。
	Write(ctx context.Context, path string, payload []byte, ttl time.Duration) error

	// Read 返回原始字节；文件不存在（包括检查后被并发删除）时返回 ErrNotFound。
	Read(ctx context.Context, path string) ([]byte, error)

	// Remove 删除条目文件，文件不存在不视为错误。
	Remove(ctx context.Context, path string) error

	// PurgeAll 递归删除 root 下的所有内容，只有 root 无法打开时才返回错误。
	PurgeAll(root string) error

	// Inventory 统计 root 下各作用域的条目、过期条目与临时文件。
	Inventory(root string) (*Inventory, error)
}

// Options 控制 Store 的目录权限与时钟。
type Options struct {
	// DirMode 是新建目录的权限位，文件权限由其去掉执行位得到。
	DirMode os.FileMode
	// Now 用于计算过期时间，测试中可注入假时钟。
	Now func() time.Time
}

// Inventory 是一次目录扫描的结果。
type Inventory struct {
	Root      string                 `json:"root"`
	Entries   int                    `json:"entries"`
	Expired   int                    `json:"expired"`
	TempFiles int                    `json:"temp_files"`
	Bytes     int64                  `json:"bytes"`
	Scopes    map[string]*ScopeUsage `json:"scopes"`
}

// ScopeUsage 汇总根目录下一级目录（blog_global、tenant_xxx 等）的占用情况。
type ScopeUsage struct {
	Entries   int   `json:"entries"`
	Expired   int   `json:"expired"`
	TempFiles int   `json:"temp_files"`
	Bytes     int64 `json:"bytes"`
}

var (
	// ErrNotFound 表示条目文件不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrWriteFailed 表示临时文件写入或 rename 失败。
	ErrWriteFailed = errors.New("cache entry write failed")
	// ErrDirCreate 表示无法创建条目所在目录。
	ErrDirCreate = errors.New("cache directory create failed")
	// ErrOutsideRoot 表示路径不在 Store 根目录之下。
	ErrOutsideRoot = errors.New("path outside cache root")
)
