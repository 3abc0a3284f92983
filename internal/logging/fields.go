package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// FetchFields 提供资源种类/键/命中状态字段，供缓存层请求日志复用。
func FetchFields(kind, key string, cacheHit, stale bool) logrus.Fields {
	return logrus.Fields{
		"kind":      kind,
		"key":       key,
		"cache_hit": cacheHit,
		"stale":     stale,
	}
}
