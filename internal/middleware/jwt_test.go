package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newProtectedApp(secret string) (*fiber.App, *map[string]interface{}) {
	captured := map[string]interface{}{}
	app := fiber.New()
	app.Get("/secure", JWTProtected(secret), func(c *fiber.Ctx) error {
		captured["user_id"] = c.Locals("user_id")
		captured["user_role"] = c.Locals("user_role")
		return c.SendStatus(fiber.StatusOK)
	})
	return app, &captured
}

func requestWithToken(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestJWTProtectedBindsIdentityFromClaims(t *testing.T) {
	app, captured := newProtectedApp(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "42",
		"role": "Admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	resp := requestWithToken(t, app, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(42), (*captured)["user_id"])
	require.Equal(t, "admin", (*captured)["user_role"])
}

func TestJWTProtectedAcceptsNumericSubject(t *testing.T) {
	app, captured := newProtectedApp(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{"user_id": 7})

	resp := requestWithToken(t, app, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(7), (*captured)["user_id"])
}

func TestJWTProtectedRejectsMissingHeader(t *testing.T) {
	app, _ := newProtectedApp(testSecret)

	resp := requestWithToken(t, app, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsWrongSecret(t *testing.T) {
	app, _ := newProtectedApp(testSecret)
	token := signToken(t, "other-secret", jwt.MapClaims{"sub": "1"})

	resp := requestWithToken(t, app, token)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsExpiredToken(t *testing.T) {
	app, _ := newProtectedApp(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	resp := requestWithToken(t, app, token)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsUnsignedAlgorithm(t *testing.T) {
	app, _ := newProtectedApp(testSecret)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1"})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	resp := requestWithToken(t, app, unsigned)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
