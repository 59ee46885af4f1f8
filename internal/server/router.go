package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AppOptions controls how the diagnostics application should behave.
type AppOptions struct {
	Logger     *logrus.Logger
	ListenPort int
}

const contextKeyRequestID = "_focuscache_request_id"

// DiagnosticsPrefix 是所有诊断接口共享的路径前缀。
const DiagnosticsPrefix = "/-/"

// NewApp builds a Fiber application with request-id middleware, structured
// access logging and a JSON 404 for anything outside the diagnostics prefix.
// Routes are attached by the caller (see package routes).
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.ListenPort <= 0 || opts.ListenPort > 65535 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts))

	app.Use(func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}
		return renderNotDiagnostics(c, opts.Logger)
	})

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，并在请求结束后记录一条访问日志。
func requestContextMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		start := time.Now()
		err := c.Next()

		opts.Logger.WithFields(logrus.Fields{
			"action":      "diagnostics",
			"request_id":  reqID,
			"path":        string(c.Request().URI().Path()),
			"status":      c.Response().StatusCode(),
			"elapsed_ms":  time.Since(start).Milliseconds(),
			"listen_port": opts.ListenPort,
		}).Debug("diagnostics request")
		return err
	}
}

func renderNotDiagnostics(c fiber.Ctx, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"action":     "route_lookup",
		"path":       string(c.Request().URI().Path()),
		"request_id": RequestID(c),
	}).Warn("path outside diagnostics prefix")

	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "not_found",
	})
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, DiagnosticsPrefix)
}
