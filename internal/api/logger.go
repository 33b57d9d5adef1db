package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tripdesk/internal/common/logger"
)

func NewRequestLogger(log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		startTime := time.Now()
		err = c.Next()

		msg := "HTTP Request"
		if err != nil {
			msg = err.Error()
		}

		// the error handler only writes the status after the middleware chain
		code := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			code = fe.Code
		}

		fields := []interface{}{
			"status", code,
			"method", c.Method(),
			"path", c.Path(),
			"ip", c.IP(),
			"latency", time.Since(startTime).String(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		}

		switch {
		case code >= fiber.StatusBadRequest && code < fiber.StatusInternalServerError:
			log.Warn(msg, fields...)
		case code >= fiber.StatusInternalServerError:
			log.Error(msg, fields...)
		default:
			log.Info(msg, fields...)
		}

		return err
	}
}
