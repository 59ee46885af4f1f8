package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"

	"github.com/focus-cache/focus-cache/internal/config"
	"github.com/focus-cache/focus-cache/internal/objectcache"
)

// writeFunc 对应 add/set/replace 三个写入命令。
type writeFunc func(ctx context.Context, key, group string, value any, ttl time.Duration) bool

// runCommand 执行一个缓存命令并把结果写到 stdOut，返回退出码。
func runCommand(ctx context.Context, engine *objectcache.Cache, args []string) int {
	name, rest := args[0], args[1:]

	switch name {
	case "get":
		if len(rest) != 2 {
			return usage("get <group> <key>")
		}
		value, ok := engine.Get(ctx, rest[1], rest[0])
		if !ok {
			fmt.Fprintln(stdErr, "miss")
			return exitFail
		}
		return printJSON(value)

	case "set":
		return runWrite(ctx, engine.Set, name, rest)
	case "add":
		return runWrite(ctx, engine.Add, name, rest)
	case "replace":
		return runWrite(ctx, engine.Replace, name, rest)

	case "delete":
		if len(rest) != 2 {
			return usage("delete <group> <key>")
		}
		return result(engine.Delete(ctx, rest[1], rest[0]))

	case "incr", "decr":
		if len(rest) < 2 || len(rest) > 3 {
			return usage(name + " <group> <key> [offset]")
		}
		offset := int64(1)
		if len(rest) == 3 {
			parsed, err := cast.ToInt64E(rest[2])
			if err != nil {
				return usage(name + " offset 必须为整数")
			}
			offset = parsed
		}
		adjust := engine.Incr
		if name == "decr" {
			adjust = engine.Decr
		}
		value, ok := adjust(ctx, rest[1], rest[0], offset)
		if !ok {
			fmt.Fprintln(stdErr, "miss")
			return exitFail
		}
		fmt.Fprintln(stdOut, value)
		return exitOK

	case "flush":
		if len(rest) != 0 {
			return usage("flush")
		}
		return result(engine.Flush(ctx))

	case "stats":
		return printJSON(struct {
			Stats objectcache.Stats `json:"stats"`
			Scope objectcache.Scope `json:"scope"`
		}{engine.Stats(), engine.Describe()})
	}

	fmt.Fprintln(stdErr, errUsage.Error())
	return exitUsage
}

func runWrite(ctx context.Context, write writeFunc, name string, args []string) int {
	if len(args) < 3 || len(args) > 4 {
		return usage(name + " <group> <key> <json-value> [ttl]")
	}
	var ttl config.Duration
	if len(args) == 4 {
		if err := ttl.UnmarshalText([]byte(args[3])); err != nil {
			return usage(err.Error())
		}
	}
	value, err := parseValue(args[2])
	if err != nil {
		return usage(err.Error())
	}
	return result(write(ctx, args[1], args[0], value, ttl.DurationValue()))
}

// parseValue 把命令行参数解析为 JSON；不是合法 JSON 时按原样作为字符串保存。
// 整数保持为 int64，避免被 JSON 解码成 float64。
func parseValue(raw string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw, nil
	}
	return fromJSONNumbers(v)
}

func fromJSONNumbers(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("无法解析数字 %s", t)
		}
		return f, nil
	case []any:
		for i, item := range t {
			converted, err := fromJSONNumbers(item)
			if err != nil {
				return nil, err
			}
			t[i] = converted
		}
		return t, nil
	case map[string]any:
		for k, item := range t {
			converted, err := fromJSONNumbers(item)
			if err != nil {
				return nil, err
			}
			t[k] = converted
		}
		return t, nil
	}
	return v, nil
}

func printJSON(v any) int {
	enc := json.NewEncoder(stdOut)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stdErr, "输出结果失败: %v\n", err)
		return exitFail
	}
	return exitOK
}

func result(ok bool) int {
	if ok {
		fmt.Fprintln(stdOut, "ok")
		return exitOK
	}
	fmt.Fprintln(stdErr, "failed")
	return exitFail
}

func usage(detail string) int {
	fmt.Fprintf(stdErr, "usage: focus-cache %s\n", detail)
	return exitUsage
}
