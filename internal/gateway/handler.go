// Package gateway translates incoming HTTP requests into deploy.Resolve calls
// and streams the outcome back to the client. Cache hits replay the stored
// status, headers, and body without touching the network; misses relay the
// live origin response verbatim. The handler is mounted by internal/server as
// the catch-all route.
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/offline-hub/offline-hub/internal/deploy"
	"github.com/offline-hub/offline-hub/internal/logging"
	"github.com/offline-hub/offline-hub/internal/origin"
	"github.com/offline-hub/offline-hub/internal/server"
)

// Handler 负责 orchestrate “缓存命中 → 实时回退” 的请求处理全流程，
// 对外暴露 Fiber handler，内部复用部署管理器与结构化日志。
type Handler struct {
	manager *deploy.Manager
	logger  *logrus.Logger
}

// NewHandler constructs a gateway handler around the deployment manager.
func NewHandler(manager *deploy.Manager, logger *logrus.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// Handle 执行缓存查找与实时回退，任何阶段出错都会输出结构化日志。
func (h *Handler) Handle(c fiber.Ctx) error {
	started := time.Now()
	requestID := server.RequestID(c)
	method := c.Method()
	path := string(c.Request().URI().Path())

	if method != http.MethodGet && method != http.MethodHead {
		return h.writeError(c, fiber.StatusMethodNotAllowed, "method_not_allowed")
	}

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := h.manager.Resolve(ctx, path)
	if err != nil {
		h.logResult(method, path, requestID, 0, false, started, err)
		return h.writeError(c, fiber.StatusBadGateway, "origin_unreachable")
	}
	defer res.Close()

	if res.CacheHit {
		return h.serveCache(c, res, path, requestID, started)
	}
	return h.serveLive(c, res, path, requestID, started)
}

func (h *Handler) serveCache(c fiber.Ctx, res *deploy.Resolution, path, requestID string, started time.Time) error {
	entry := res.Cached.Entry

	for key, values := range entry.Meta.Headers {
		for _, value := range values {
			c.Response().Header.Add(key, value)
		}
	}
	if entry.Meta.ContentType != "" {
		c.Set("Content-Type", entry.Meta.ContentType)
	} else {
		c.Response().Header.Del("Content-Type")
	}
	if entry.SizeBytes > 0 {
		c.Response().Header.SetContentLength(int(entry.SizeBytes))
	} else {
		c.Response().Header.Del("Content-Length")
	}

	c.Set("X-Offline-Hub-Cache-Hit", "true")
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}

	status := entry.Meta.StatusCode
	if status == 0 {
		status = fiber.StatusOK
	}
	c.Status(status)

	if c.Method() == http.MethodHead {
		h.logResult(c.Method(), path, requestID, status, true, started, nil)
		return nil
	}

	_, err := io.Copy(c.Response().BodyWriter(), res.Cached.Reader)
	h.logResult(c.Method(), path, requestID, status, true, started, err)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("read cache failed: %v", err))
	}
	return nil
}

func (h *Handler) serveLive(c fiber.Ctx, res *deploy.Resolution, path, requestID string, started time.Time) error {
	live := res.Live

	copyResponseHeaders(c, live.Header)
	c.Set("X-Offline-Hub-Cache-Hit", "false")
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
	c.Status(live.StatusCode)

	if c.Method() == http.MethodHead {
		h.logResult(c.Method(), path, requestID, live.StatusCode, false, started, nil)
		return nil
	}

	_, err := io.Copy(c.Response().BodyWriter(), live.Body)
	h.logResult(c.Method(), path, requestID, live.StatusCode, false, started, err)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("origin stream failed: %v", err))
	}
	return nil
}

func (h *Handler) writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func (h *Handler) logResult(method, path, requestID string, status int, cacheHit bool, started time.Time, err error) {
	store, _ := h.manager.ActiveStore()
	fields := logging.RequestFields(store, path, method, cacheHit)
	fields["action"] = "resolve"
	fields["status"] = status
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("resolve_failed")
		return
	}
	h.logger.WithFields(fields).Info("resolve_complete")
}

func copyResponseHeaders(c fiber.Ctx, headers http.Header) {
	for key, values := range headers {
		if origin.IsHopByHopHeader(key) {
			continue
		}
		for _, value := range values {
			c.Set(key, value)
		}
	}
}
