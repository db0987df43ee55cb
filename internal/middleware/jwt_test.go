package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/examly/exam-go-api/internal/auth"
)

func setupJWTApp(t *testing.T) (*fiber.App, *auth.TokenIssuer, auth.TokenRevoker) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	issuer := auth.NewTokenIssuer("secret", "refresh-secret", time.Hour, 24*time.Hour)
	revoker := auth.NewRedisRevoker(client)

	app := fiber.New()
	app.Use(JWTProtected(issuer, revoker))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": c.Locals("user_id"),
			"role":    c.Locals("user_role"),
		})
	})

	return app, issuer, revoker
}

func TestJWTProtectedAcceptsValidToken(t *testing.T) {
	app, issuer, _ := setupJWTApp(t)

	token, err := issuer.IssueAccess(7, "Riley", "riley@example.com", "student")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsMissingAndMalformedTokens(t *testing.T) {
	app, _, _ := setupJWTApp(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsRevokedToken(t *testing.T) {
	app, issuer, revoker := setupJWTApp(t)

	token, err := issuer.IssueAccess(7, "Riley", "riley@example.com", "student")
	require.NoError(t, err)

	claims, err := issuer.ParseAccess(token)
	require.NoError(t, err)
	require.NoError(t, revoker.Revoke(context.Background(), claims.ID, time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
