package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/offline-hub/offline-hub/internal/manifest"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述全局运行时行为。
type GlobalConfig struct {
	ListenPort    int      `mapstructure:"ListenPort"`
	LogLevel      string   `mapstructure:"LogLevel"`
	LogFilePath   string   `mapstructure:"LogFilePath"`
	LogMaxSize    int      `mapstructure:"LogMaxSize"`
	LogMaxBackups int      `mapstructure:"LogMaxBackups"`
	LogCompress   bool     `mapstructure:"LogCompress"`
	StoragePath   string   `mapstructure:"StoragePath"`
	OriginTimeout Duration `mapstructure:"OriginTimeout"`
}

// AppConfig 描述被托管应用的部署信息：命名、版本、源站与离线资源清单。
type AppConfig struct {
	Name     string   `mapstructure:"Name"`
	Version  int      `mapstructure:"Version"`
	Origin   string   `mapstructure:"Origin"`
	Manifest []string `mapstructure:"Manifest"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	App    AppConfig    `mapstructure:"App"`
}

// StoreName 返回当前配置对应的 store 名称（<appName>-v<N>）。
func (a AppConfig) StoreName() string {
	return manifest.StoreName(a.Name, a.Version)
}

// BuildManifest 将配置中的资源列表转换为归一化后的 Manifest。
func (a AppConfig) BuildManifest() (manifest.Manifest, error) {
	return manifest.New(a.Manifest)
}
