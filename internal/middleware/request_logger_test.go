package middleware

import (
	"errors"
	"net/http/httptest"
	"testing"

	"go-bpm/internal/common/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedApp() (*fiber.App, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return apperr.Respond(c, err)
		},
	})
	app.Use(RequestLogger(zap.New(core)))
	app.Get("/responded", func(c *fiber.Ctx) error {
		return apperr.Respond(c, errors.New("mongo: connection refused"))
	})
	app.Get("/returned", func(c *fiber.Ctx) error {
		return errors.New("mongo: server selection timeout")
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperr.Respond(c, apperr.NotFound("Process not found"))
	})
	return app, logs
}

func TestRequestLoggerRecordsUnexpectedErrors(t *testing.T) {
	tests := []struct {
		path  string
		cause string
	}{
		{"/responded", "mongo: connection refused"},
		{"/returned", "mongo: server selection timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			app, logs := newLoggedApp()

			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

			entries := logs.FilterMessage("request failed").All()
			require.Len(t, entries, 1)
			assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
			assert.Equal(t, tt.cause, entries[0].ContextMap()["error"])
		})
	}
}

func TestRequestLoggerClientErrorsCarryNoCause(t *testing.T) {
	app, logs := newLoggedApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "error")
}
