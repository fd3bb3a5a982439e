package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"service-queue/internal/config"
	"service-queue/internal/models"
)

func newAuthApp(tokens *config.TokenIssuer, level string) *fiber.App {
	app := fiber.New()
	app.Get("/guarded", JWTAuth(tokens), PermissionAuth("sqm_entry", level), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"operator_id": Claims(c).OperatorID})
	})
	app.Get("/no-session", PermissionAuth("SQM_ENTRY", "R"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func requestWithToken(t *testing.T, app *fiber.App, path, header string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestPermissionAuth(t *testing.T) {
	tokens := config.NewTokenIssuer("secret", time.Hour)
	token := func(perms string) string {
		raw, err := tokens.GenerateToken(models.Operator{ID: 3, Permissions: perms})
		require.NoError(t, err)
		return "Bearer " + raw
	}

	app := newAuthApp(tokens, "CU")
	assert.Equal(t, http.StatusOK, requestWithToken(t, app, "/guarded", token("SQM_ENTRY:CRU")))
	assert.Equal(t, http.StatusOK, requestWithToken(t, app, "/guarded", token("OTHER:R;sqm_entry:uc")))
	assert.Equal(t, http.StatusForbidden, requestWithToken(t, app, "/guarded", token("SQM_ENTRY:C")))
	assert.Equal(t, http.StatusForbidden, requestWithToken(t, app, "/guarded", token("OTHER:CRUD")))
	assert.Equal(t, http.StatusUnauthorized, requestWithToken(t, app, "/guarded", ""))
	assert.Equal(t, http.StatusUnauthorized, requestWithToken(t, app, "/guarded", "Token abc"))
	assert.Equal(t, http.StatusUnauthorized, requestWithToken(t, app, "/no-session", ""))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	app := fiber.New()
	app.Use(RequestLogger(zap.New(core)))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.ErrBadGateway })

	assert.Equal(t, http.StatusOK, requestWithToken(t, app, "/ok", ""))
	assert.Equal(t, http.StatusBadGateway, requestWithToken(t, app, "/boom", ""))

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.EqualValues(t, http.StatusOK, entries[0].ContextMap()["status"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.EqualValues(t, http.StatusBadGateway, entries[1].ContextMap()["status"])
}
