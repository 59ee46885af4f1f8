package objectcache

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cast"
)

// toInt64 按宿主语言的整数转换规则处理缓存值：数字字符串取前导整数，
// 非空序列/映射为 1，无法识别的值为 0。
func toInt64(v any) int64 {
	switch t := v.(type) {
	case string:
		return leadingInt(t)
	case []byte:
		return leadingInt(string(t))
	case []any:
		if len(t) > 0 {
			return 1
		}
		return 0
	case map[string]any:
		if len(t) > 0 {
			return 1
		}
		return 0
	}
	return cast.ToInt64(v)
}

func leadingInt(s string) int64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		if s[0] == '-' {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return n
}

// addClamped 返回 a+b，溢出时饱和到 int64 边界。
func addClamped(a, b int64) int64 {
	sum := a + b
	switch {
	case b > 0 && sum < a:
		return math.MaxInt64
	case b < 0 && sum > a:
		return math.MinInt64
	}
	return sum
}

// subClamped 返回 a-b，溢出时饱和到 int64 边界。
func subClamped(a, b int64) int64 {
	diff := a - b
	switch {
	case b > 0 && diff > a:
		return math.MinInt64
	case b < 0 && diff < a:
		return math.MaxInt64
	}
	return diff
}
