package layout

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// GlobalDirName 是全局分组共享的目录名，与租户无关。
	GlobalDirName = "blog_global"
	// TenantDirPrefix 拼接租户前缀得到租户目录名。
	TenantDirPrefix = "tenant_"
	// EntryExt 标记条目文件，直接访问时不会被 Web 服务器当作可下载内容。
	EntryExt = ".php"
	// IndexFileName 是每个目录下的空索引文件，用于屏蔽目录列表。
	IndexFileName = "index.php"
	// DefaultGroup 是空分组名的归一化结果。
	DefaultGroup = "default"
)

// ErrInvalidName 表示 key 或 group 含有无法安全映射为路径的字符。
var ErrInvalidName = errors.New("invalid cache name")

// Resolver 把 (tenant prefix, group, key) 映射为文件路径，并持有全局分组策略。
// Resolver 本身不做 IO。
type Resolver struct {
	root      string
	multisite bool
	global    GroupSet
}

// NewResolver 以 root 为缓存根目录构造 Resolver；multisite 关闭时所有分组直接落在根目录下。
func NewResolver(root string, multisite bool) (*Resolver, error) {
	if root == "" {
		return nil, errors.New("cache root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}
	return &Resolver{
		root:      abs,
		multisite: multisite,
		global:    NewGroupSet(),
	}, nil
}

// Root 返回缓存根目录的绝对路径。
func (r *Resolver) Root() string {
	return r.root
}

// AddGlobalGroups 将分组标记为全局，重复添加会被去重。
func (r *Resolver) AddGlobalGroups(groups ...string) {
	r.global.Add(groups...)
}

// IsGlobal 判断分组是否为全局分组。
func (r *Resolver) IsGlobal(group string) bool {
	return r.global.Has(NormalizeGroup(group))
}

// GlobalGroups 返回排序后的全局分组列表。
func (r *Resolver) GlobalGroups() []string {
	return r.global.List()
}

// ScopeDir 返回分组所在的作用域根目录：blog_global、tenant_<prefix> 或单站点时的根目录。
func (r *Resolver) ScopeDir(tenantPrefix, group string) string {
	if !r.multisite {
		return r.root
	}
	if r.IsGlobal(group) {
		return filepath.Join(r.root, GlobalDirName)
	}
	if tenantPrefix == "" {
		return r.root
	}
	return filepath.Join(r.root, TenantDirPrefix+tenantPrefix)
}

// GroupDir 返回分组目录，嵌套分组（a/b）会映射为多级目录。
func (r *Resolver) GroupDir(tenantPrefix, group string) (string, error) {
	segments, err := groupSegments(group)
	if err != nil {
		return "", err
	}
	scope := r.ScopeDir(tenantPrefix, group)
	dir := filepath.Join(append([]string{scope}, segments...)...)
	if !r.within(dir) {
		return "", fmt.Errorf("%w: group %q escapes cache root", ErrInvalidName, group)
	}
	return dir, nil
}

// Resolve 返回条目文件路径 <scope>/<group...>/<key>.php。
func (r *Resolver) Resolve(tenantPrefix, group, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	dir, err := r.GroupDir(tenantPrefix, group)
	if err != nil {
		return "", err
	}
	filePath := filepath.Join(dir, key+EntryExt)
	if !r.within(filePath) {
		return "", fmt.Errorf("%w: key %q escapes cache root", ErrInvalidName, key)
	}
	return filePath, nil
}

func (r *Resolver) within(p string) bool {
	return p == r.root || strings.HasPrefix(p, r.root+string(filepath.Separator))
}

// NormalizeGroup 把空分组名归一化为 default。
func NormalizeGroup(group string) string {
	if strings.TrimSpace(group) == "" {
		return DefaultGroup
	}
	return group
}

// ValidateKey 拒绝无法作为单个文件名使用的 key。
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidName)
	}
	if strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: key %q starts with a dot", ErrInvalidName, key)
	}
	if strings.ContainsAny(key, "/\\\x00") {
		return fmt.Errorf("%w: key %q contains a path separator", ErrInvalidName, key)
	}
	if strings.EqualFold(key+EntryExt, IndexFileName) {
		return fmt.Errorf("%w: key %q collides with the directory index file", ErrInvalidName, key)
	}
	return nil
}

// ValidateGroup 校验分组名的每一段。
func ValidateGroup(group string) error {
	_, err := groupSegments(group)
	return err
}

func groupSegments(group string) ([]string, error) {
	group = NormalizeGroup(group)
	if strings.ContainsAny(group, "\\\x00") {
		return nil, fmt.Errorf("%w: group %q", ErrInvalidName, group)
	}
	segments := strings.Split(group, "/")
	for _, seg := range segments {
		switch {
		case seg == "":
			return nil, fmt.Errorf("%w: group %q has an empty segment", ErrInvalidName, group)
		case seg == "." || seg == "..":
			return nil, fmt.Errorf("%w: group %q has a relative segment", ErrInvalidName, group)
		case strings.HasPrefix(seg, "."):
			return nil, fmt.Errorf("%w: group %q has a hidden segment", ErrInvalidName, group)
		case strings.EqualFold(seg, IndexFileName):
			return nil, fmt.Errorf("%w: group %q collides with the directory index file", ErrInvalidName, group)
		}
	}
	return segments, nil
}

// GroupSet 是去重后的分组集合。零值不可用，请使用 NewGroupSet。
type GroupSet struct {
	m map[string]struct{}
}

// NewGroupSet 用初始分组构造集合。
func NewGroupSet(groups ...string) GroupSet {
	s := GroupSet{m: make(map[string]struct{}, len(groups))}
	s.Add(groups...)
	return s
}

// Add 合并分组，空白名称会被忽略。
func (s GroupSet) Add(groups ...string) {
	for _, g := range groups {
		if strings.TrimSpace(g) == "" {
			continue
		}
		s.m[g] = struct{}{}
	}
}

// Has 判断分组是否在集合中。
func (s GroupSet) Has(group string) bool {
	_, ok := s.m[group]
	return ok
}

// List 返回排序后的分组列表。
func (s GroupSet) List() []string {
	if len(s.m) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.m))
	for g := range s.m {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
