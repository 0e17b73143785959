package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storedomain "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/store/domain"
)

// fakeStore simulates the connection manager slice the monitor probes
type fakeStore struct {
	mu        sync.Mutex
	connected bool
	pingErr   error
	pings     int
}

func (f *fakeStore) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeStore) Status() storedomain.ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connected {
		return storedomain.StateConnected
	}
	return storedomain.StateDisconnected
}

func (f *fakeStore) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeStore) set(connected bool, pingErr error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = connected
	f.pingErr = pingErr
}

func (f *fakeStore) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

// fakeLedger simulates the ledger client slice the monitor probes
type fakeLedger struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeLedger) NetworkID(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return 5777, nil
}

func (f *fakeLedger) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func TestInitialSnapshotIsUnhealthy(t *testing.T) {
	monitor := NewService(&fakeStore{}, &fakeLedger{})

	status := monitor.GetStatus()
	assert.False(t, status.Healthy)
	assert.False(t, status.Store.Connected)
	assert.False(t, status.Ledger.Connected)
	assert.False(t, status.Timestamp.IsZero())
}

func TestGetStatusPerformsNoIO(t *testing.T) {
	store := &fakeStore{connected: true}
	ledger := &fakeLedger{}
	monitor := NewService(store, ledger)

	monitor.CheckSystemHealth(context.Background())
	pingsAfterCheck := store.pingCount()

	for i := 0; i < 50; i++ {
		monitor.GetStatus()
	}
	assert.Equal(t, pingsAfterCheck, store.pingCount(), "GetStatus must not probe")
}

func TestHealthFlipsAcrossTicks(t *testing.T) {
	store := &fakeStore{connected: true, pingErr: errors.New("primary unreachable")}
	ledger := &fakeLedger{}
	monitor := NewService(store, ledger)

	first := monitor.CheckSystemHealth(context.Background())
	assert.False(t, first.Healthy)
	assert.False(t, first.Store.Connected)
	assert.True(t, first.Ledger.Connected)
	assert.Contains(t, first.Store.Error, "primary unreachable")

	second := monitor.CheckSystemHealth(context.Background())
	assert.False(t, second.Healthy)
	assert.True(t, second.Timestamp.After(first.Timestamp))

	store.set(true, nil)
	third := monitor.CheckSystemHealth(context.Background())
	assert.True(t, third.Healthy)
	assert.True(t, third.Timestamp.After(second.Timestamp))

	published := monitor.GetStatus()
	assert.Equal(t, third.Timestamp, published.Timestamp)
	assert.True(t, published.Healthy)
}

func TestSnapshotNeverMixesTicks(t *testing.T) {
	store := &fakeStore{connected: true}
	ledger := &fakeLedger{}
	monitor := NewService(store, ledger)

	monitor.CheckSystemHealth(context.Background())

	// Flip both fakes, re-check, and confirm readers see a coherent pair.
	store.set(false, nil)
	ledger.set(errors.New("endpoint down"))
	status := monitor.CheckSystemHealth(context.Background())

	assert.False(t, status.Store.Connected)
	assert.False(t, status.Ledger.Connected)
	assert.False(t, status.Healthy)
}

func TestPeriodicTicksPublish(t *testing.T) {
	store := &fakeStore{connected: true}
	ledger := &fakeLedger{}
	monitor := NewService(store, ledger)

	require.NoError(t, monitor.Start(context.Background(), 10*time.Millisecond))
	defer monitor.Stop()

	require.Eventually(t, func() bool {
		return monitor.GetStatus().Healthy
	}, time.Second, 5*time.Millisecond)
}

func TestStartTwiceFails(t *testing.T) {
	monitor := NewService(&fakeStore{}, &fakeLedger{})

	require.NoError(t, monitor.Start(context.Background(), time.Minute))
	defer monitor.Stop()

	assert.Error(t, monitor.Start(context.Background(), time.Minute))
}

func TestStopDiscardsLateResults(t *testing.T) {
	store := &fakeStore{connected: true}
	ledger := &fakeLedger{}
	monitor := NewService(store, ledger)

	require.NoError(t, monitor.Start(context.Background(), time.Hour))

	// Wait for the immediate first tick to land, then stop.
	require.Eventually(t, func() bool {
		return monitor.GetStatus().Healthy
	}, time.Second, 5*time.Millisecond)
	monitor.Stop()

	before := monitor.GetStatus()
	time.Sleep(20 * time.Millisecond)
	after := monitor.GetStatus()
	assert.Equal(t, before.Timestamp, after.Timestamp, "no publication after stop")
}

func TestMonitorRestartsAfterStop(t *testing.T) {
	store := &fakeStore{connected: true}
	monitor := NewService(store, &fakeLedger{})

	require.NoError(t, monitor.Start(context.Background(), time.Hour))
	monitor.Stop()
	require.NoError(t, monitor.Start(context.Background(), time.Hour))
	monitor.Stop()
}

func TestDiagnosticsReportsBothServicesAndProcessStats(t *testing.T) {
	store := &fakeStore{connected: true, pingErr: errors.New("timeout")}
	ledger := &fakeLedger{}
	monitor := NewService(store, ledger)

	report := monitor.GetDiagnostics(context.Background())

	assert.False(t, report.Healthy)
	assert.False(t, report.Store.Connected)
	assert.Contains(t, report.Store.Error, "timeout")
	assert.True(t, report.Ledger.Connected, "ledger check must run despite store failure")
	assert.Greater(t, report.Process.Goroutines, 0)
	assert.Greater(t, report.Process.HeapAllocBytes, uint64(0))
	assert.GreaterOrEqual(t, report.Process.UptimeSeconds, 0.0)
}
