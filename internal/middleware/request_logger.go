package middleware

import (
	"strconv"
	"time"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger logs one line per request and records HTTP metrics.
func RequestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(RequestIDHeader, reqID)

		err := c.Next()
		if err != nil {
			// let the app error handler set the status before we read it
			if hErr := c.App().ErrorHandler(c, err); hErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		elapsed := time.Since(start)
		route := c.Route().Path

		metrics.HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(elapsed.Seconds())

		fields := []zap.Field{
			zap.String("requestId", reqID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("ip", c.IP()),
		}
		if actor := GetActor(c); actor != nil {
			fields = append(fields, zap.String("actorId", actor.ID().Hex()), zap.String("actorKind", string(actor.Kind)))
			if tenantID, ok := actor.TenantID(); ok {
				fields = append(fields, zap.String("tenantId", tenantID.Hex()))
			}
		}

		if status >= fiber.StatusInternalServerError {
			cause := apperr.Unexpected(c)
			if cause == nil {
				cause = err
			}
			if cause != nil {
				fields = append(fields, zap.Error(cause))
			}
			log.Error("request failed", fields...)
		} else {
			log.Info("request", fields...)
		}
		return nil
	}
}
