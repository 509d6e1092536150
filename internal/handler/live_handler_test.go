package handler

import (
	"net/http/httptest"
	"testing"
	"time"

	"notes-rag-be/internal/pkg/logger"
	internalWS "notes-rag-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp() *fiber.App {
	app := fiber.New()
	NewLiveHandler(internalWS.NewHub(nil, logger.NewNopLogger()), logger.NewNopLogger()).RegisterRoutes(app)
	return app
}

func TestLiveRejectsMissingToken(t *testing.T) {
	res, err := newApp().Test(httptest.NewRequest("GET", "/live/v1/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestLiveRequiresUpgrade(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	res, err := newApp().Test(httptest.NewRequest("GET", "/live/v1/ws?token="+token, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, res.StatusCode)
}
