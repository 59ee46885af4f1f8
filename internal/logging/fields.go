package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// CacheFields 提供 op/group/key/命中层级字段，供缓存引擎日志复用。
func CacheFields(op, group, key, tier string) logrus.Fields {
	fields := logrus.Fields{
		"action": op,
		"group":  group,
		"key":    key,
	}
	if tier != "" {
		fields["tier"] = tier
	}
	return fields
}
