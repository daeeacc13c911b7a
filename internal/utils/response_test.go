package utils

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestSendSuccessDefaults(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return SendSuccess(c, "", fiber.Map{"value": 1})
	})

	response, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	var payload APIResponse
	require.NoError(t, json.Unmarshal(body, &payload))
	require.True(t, payload.Success)
	require.Equal(t, "success", payload.Message)
}

func TestSendErrorEnvelope(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return SendError(c, fiber.StatusNotFound, "missing")
	})

	response, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, response.StatusCode)

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	var payload APIResponse
	require.NoError(t, json.Unmarshal(body, &payload))
	require.False(t, payload.Success)
	require.Equal(t, "missing", payload.Message)
	require.Nil(t, payload.Data)
}

func TestSendFileSetsDownloadHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return SendFile(c, "marks.csv", "text/csv", []byte("a,b\n1,2\n"))
	})

	response, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, response.StatusCode)
	require.Equal(t, "text/csv", response.Header.Get(fiber.HeaderContentType))
	require.Equal(t, `attachment; filename="marks.csv"`, response.Header.Get(fiber.HeaderContentDisposition))

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2\n", string(body))
}
