package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供 store/path/命中状态字段，供网关请求日志复用。
func RequestFields(store, path, method string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"store":     store,
		"path":      path,
		"method":    method,
		"cache_hit": cacheHit,
	}
}

// DeployFields 提供部署生命周期日志的公共字段。
func DeployFields(action, store string, version int) logrus.Fields {
	return logrus.Fields{
		"action":  action,
		"store":   store,
		"version": version,
	}
}
