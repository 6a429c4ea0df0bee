package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPinger implements a minimal interface for testing health checks
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.pingErr
}

type mockBrokerConn struct {
	closed bool
}

func (m *mockBrokerConn) IsClosed() bool {
	return m.closed
}

func TestHealthHandler_Check_Healthy(t *testing.T) {
	app := fiber.New()
	handler := NewHealthHandler(&mockPinger{}, &mockBrokerConn{})
	app.Get("/health", handler.Check)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"status":"healthy"`)
}

func TestHealthHandler_Check_DatabaseDown(t *testing.T) {
	app := fiber.New()
	handler := NewHealthHandler(&mockPinger{pingErr: errors.New("connection refused")}, &mockBrokerConn{})
	app.Get("/health", handler.Check)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"status":"unhealthy"`)
	assert.Contains(t, string(body), `"error":"database connection failed"`)
}

func TestHealthHandler_Check_BrokerDown(t *testing.T) {
	app := fiber.New()
	handler := NewHealthHandler(&mockPinger{}, &mockBrokerConn{closed: true})
	app.Get("/health", handler.Check)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"error":"broker connection closed"`)
}

func TestHealthHandler_Check_NoBrokerConfigured(t *testing.T) {
	app := fiber.New()
	handler := NewHealthHandler(&mockPinger{}, nil)
	app.Get("/health", handler.Check)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
