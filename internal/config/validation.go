package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/offline-hub/offline-hub/internal/manifest"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if g.OriginTimeout.DurationValue() <= 0 {
		return newFieldError("Global.OriginTimeout", "必须大于 0")
	}

	app := c.App
	if err := manifest.ValidateAppName(app.Name); err != nil {
		return fmt.Errorf("%s: %w", appField("Name"), err)
	}
	if app.Version < 1 {
		return newFieldError(appField("Version"), "必须是正整数")
	}
	if err := validateOrigin(app.Origin); err != nil {
		return fmt.Errorf("%s: %w", appField("Origin"), err)
	}
	if _, err := app.BuildManifest(); err != nil {
		return fmt.Errorf("%s: %w", appField("Manifest"), err)
	}

	return nil
}

func validateOrigin(raw string) error {
	if raw == "" {
		return errors.New("缺少源站地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，源站: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("源站缺少 Host: %s", raw)
	}
	return nil
}
