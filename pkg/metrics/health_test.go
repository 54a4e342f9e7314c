package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorHealthAllReported(t *testing.T) {
	m := NewMonitor()
	m.SetVersion("1.0.0")
	m.ReportHealth("cache", true, "")
	m.ReportHealth("store", true, "")

	health := m.Health()
	assert.Equal(t, "healthy", health.State)
	assert.Len(t, health.Components, 2)
	assert.Equal(t, "1.0.0", health.Version)
}

func TestMonitorHealthOneUnhealthy(t *testing.T) {
	m := NewMonitor()
	m.ReportHealth("cache", true, "")
	m.ReportHealth("store", false, "not connected")

	health := m.Health()
	assert.Equal(t, "unhealthy", health.State)
	assert.Equal(t, "unhealthy: not connected", health.Components["store"])
}

func TestMonitorReadinessSatisfied(t *testing.T) {
	m := NewMonitor()
	m.RequireForReadiness("store")
	m.ReportHealth("store", true, "")

	assert.Equal(t, "ready", m.Readiness().State)
}

func TestMonitorReadinessMissingRequiredDependency(t *testing.T) {
	m := NewMonitor()
	m.RequireForReadiness("store")
	m.ReportHealth("metrics", true, "")

	readiness := m.Readiness()
	assert.Equal(t, "not_ready", readiness.State)
	assert.NotEmpty(t, readiness.Reason)
}

func TestMonitorReadinessRequiredDependencyUnhealthy(t *testing.T) {
	m := NewMonitor()
	m.RequireForReadiness("store")
	m.ReportHealth("store", false, "connection lost")

	assert.Equal(t, "not_ready", m.Readiness().State)
}

func TestHealthHandlerHealthy(t *testing.T) {
	global = NewMonitor()
	global.SetVersion("test")
	global.ReportHealth("store", true, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	HealthHandler()(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var status Status
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "healthy", status.State)
	assert.Equal(t, "test", status.Version)
}

func TestHealthHandlerUnhealthyReturns503(t *testing.T) {
	global = NewMonitor()
	global.ReportHealth("store", false, "broken")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	HealthHandler()(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyHandlerReady(t *testing.T) {
	global = NewMonitor()
	global.RequireForReadiness("store")
	global.ReportHealth("store", true, "")

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	ReadyHandler()(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyHandlerNotReady(t *testing.T) {
	global = NewMonitor()
	global.RequireForReadiness("store")

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	ReadyHandler()(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLivenessHandlerAlwaysAlive(t *testing.T) {
	global = NewMonitor()

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	w := httptest.NewRecorder()
	LivenessHandler()(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "alive", body["status"])
	assert.NotEmpty(t, body["uptime"])
}
