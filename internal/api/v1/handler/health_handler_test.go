package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerdomain "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/ledger/domain"
	monitordomain "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/monitor/domain"
	recoverydomain "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/recovery/domain"
)

type fakeMonitor struct {
	status monitordomain.HealthStatus
}

func (f *fakeMonitor) GetStatus() monitordomain.HealthStatus { return f.status }

func (f *fakeMonitor) GetDiagnostics(ctx context.Context) monitordomain.DiagnosticsReport {
	return monitordomain.DiagnosticsReport{
		Healthy:   f.status.Healthy,
		Store:     f.status.Store,
		Ledger:    f.status.Ledger,
		Process:   monitordomain.ProcessStats{Goroutines: 8},
		Timestamp: f.status.Timestamp,
	}
}

func (f *fakeMonitor) Uptime() time.Duration { return 42 * time.Second }

type fakeRecovery struct {
	result      recoverydomain.RecoveryResult
	status      monitordomain.HealthStatus
	recovers    int
	forceChecks int
}

func (f *fakeRecovery) Recover(ctx context.Context) recoverydomain.RecoveryResult {
	f.recovers++
	return f.result
}

func (f *fakeRecovery) ForceCheck(ctx context.Context) monitordomain.HealthStatus {
	f.forceChecks++
	return f.status
}

type fakeThrottler struct {
	locks map[string]bool
}

func (f *fakeThrottler) SetOperationLock(operationType string, locked bool) {
	if f.locks == nil {
		f.locks = make(map[string]bool)
	}
	f.locks[operationType] = locked
}

func (f *fakeThrottler) Status() map[string]ledgerdomain.WindowStatus {
	status := make(map[string]ledgerdomain.WindowStatus, len(f.locks))
	for opType, locked := range f.locks {
		status[opType] = ledgerdomain.WindowStatus{Locked: locked, MaxOpsPerMinute: 60, MaxBatchSize: 50}
	}
	return status
}

func healthyStatus() monitordomain.HealthStatus {
	return monitordomain.HealthStatus{
		Healthy:   true,
		Store:     monitordomain.ServiceStatus{Connected: true, LastCheckedAt: time.Now()},
		Ledger:    monitordomain.ServiceStatus{Connected: true, LastCheckedAt: time.Now()},
		Timestamp: time.Now(),
	}
}

func unhealthyStatus() monitordomain.HealthStatus {
	status := healthyStatus()
	status.Healthy = false
	status.Store.Connected = false
	status.Store.Error = "store not connected (state: Failed)"
	return status
}

func newTestRouter(monitor HealthProvider, recovery RecoveryProvider, throttler ThrottleController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHealthHandler(monitor, recovery, throttler).SetupRoutes(router)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body []byte) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &parsed))
	return recorder, parsed
}

func TestHealthEndpointReturns200WhenHealthy(t *testing.T) {
	router := newTestRouter(&fakeMonitor{status: healthyStatus()}, &fakeRecovery{}, &fakeThrottler{})

	recorder, body := doRequest(t, router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, body["healthy"])
	services := body["services"].(map[string]interface{})
	assert.Contains(t, services, "store")
	assert.Contains(t, services, "ledger")
}

func TestHealthEndpointReturns503WhenUnhealthy(t *testing.T) {
	router := newTestRouter(&fakeMonitor{status: unhealthyStatus()}, &fakeRecovery{}, &fakeThrottler{})

	recorder, body := doRequest(t, router, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Equal(t, false, body["healthy"])
}

func TestDetailedHealthIncludesUptimeAndRoutes(t *testing.T) {
	router := newTestRouter(&fakeMonitor{status: healthyStatus()}, &fakeRecovery{}, &fakeThrottler{})

	recorder, body := doRequest(t, router, http.MethodGet, "/health/detailed", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "42s", body["uptime"])
	routes := body["routes"].(map[string]interface{})
	assert.Equal(t, "POST /health/actions/recover", routes["recover"])
}

func TestDiagnosticsReturnsProcessStats(t *testing.T) {
	router := newTestRouter(&fakeMonitor{status: unhealthyStatus()}, &fakeRecovery{}, &fakeThrottler{})

	recorder, body := doRequest(t, router, http.MethodGet, "/health/diagnostics", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	process := body["process"].(map[string]interface{})
	assert.Equal(t, float64(8), process["goroutines"])
}

func TestForceCheckReturns200EvenWhenUnhealthy(t *testing.T) {
	recovery := &fakeRecovery{status: unhealthyStatus()}
	router := newTestRouter(&fakeMonitor{status: unhealthyStatus()}, recovery, &fakeThrottler{})

	recorder, body := doRequest(t, router, http.MethodPost, "/health/actions/check", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["store"])
	assert.Equal(t, true, body["ledger"])
	assert.Equal(t, 1, recovery.forceChecks)
}

func TestRecoverReportsPartialFailure(t *testing.T) {
	recovery := &fakeRecovery{
		result: recoverydomain.RecoveryResult{Store: false, StoreError: "dial failed", Ledger: true},
		status: unhealthyStatus(),
	}
	router := newTestRouter(&fakeMonitor{status: unhealthyStatus()}, recovery, &fakeThrottler{})

	recorder, body := doRequest(t, router, http.MethodPost, "/health/actions/recover", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, false, body["success"])
	result := body["recovery"].(map[string]interface{})
	assert.Equal(t, false, result["store"])
	assert.Equal(t, "dial failed", result["storeError"])
	assert.Equal(t, true, result["ledger"])
	assert.Equal(t, 1, recovery.recovers)
}

func TestThrottleActionLocksOperationType(t *testing.T) {
	throttler := &fakeThrottler{}
	router := newTestRouter(&fakeMonitor{status: healthyStatus()}, &fakeRecovery{}, throttler)

	payload := []byte(`{"operationType": "write", "locked": true}`)
	recorder, body := doRequest(t, router, http.MethodPost, "/health/actions/throttle", payload)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, body["success"])
	assert.True(t, throttler.locks["write"])
	status := body["throttlerStatus"].(map[string]interface{})
	assert.Contains(t, status, "write")
}

func TestThrottleActionAcceptsExplicitFalse(t *testing.T) {
	throttler := &fakeThrottler{locks: map[string]bool{"write": true}}
	router := newTestRouter(&fakeMonitor{status: healthyStatus()}, &fakeRecovery{}, throttler)

	payload := []byte(`{"operationType": "write", "locked": false}`)
	recorder, _ := doRequest(t, router, http.MethodPost, "/health/actions/throttle", payload)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.False(t, throttler.locks["write"])
}

func TestThrottleActionRejectsMissingFields(t *testing.T) {
	router := newTestRouter(&fakeMonitor{status: healthyStatus()}, &fakeRecovery{}, &fakeThrottler{})

	for _, payload := range []string{
		`{}`,
		`{"operationType": "write"}`,
		`{"locked": true}`,
		`{"operationType": "write", "locked": "yes"}`,
	} {
		recorder, body := doRequest(t, router, http.MethodPost, "/health/actions/throttle", []byte(payload))
		assert.Equal(t, http.StatusBadRequest, recorder.Code, "payload: %s", payload)
		assert.Contains(t, body, "error")
	}
}
