package diag

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkaukov/usb-serial-for-android/pkg/ports"
	"github.com/dkaukov/usb-serial-for-android/pkg/serialio"
)

// idlePort blocks reads until closed, so a pump over it stays running.
type idlePort struct {
	closed chan struct{}
}

func newIdlePort() *idlePort {
	return &idlePort{closed: make(chan struct{})}
}

func (p *idlePort) AsyncWrite([]byte) error         { return nil }
func (p *idlePort) PrepareReadQueue(int, int) error { return nil }
func (p *idlePort) MaxPacketSize() int              { return 64 }

func (p *idlePort) BlockingRead() ([]byte, error) {
	<-p.closed
	return nil, serialio.ErrPortClosed
}

func startPump(t *testing.T) *serialio.IOManager {
	t.Helper()
	port := newIdlePort()
	m := serialio.NewIOManager(port, nil)
	require.NoError(t, m.SetWorkerPriority(0))
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() {
		close(port.closed)
		assert.Eventually(t, func() bool {
			return m.State() == serialio.StateStopped
		}, 2*time.Second, 2*time.Millisecond)
	})
	return m
}

func TestPumpsRunningPassesWhenAllRunning(t *testing.T) {
	reg := ports.NewRegistry()
	m := startPump(t)
	require.NoError(t, reg.Add("ttyUSB0", newIdlePort(), m))

	assert.NoError(t, PumpsRunning(reg)())
}

func TestPumpsRunningFlagsStoppedPump(t *testing.T) {
	reg := ports.NewRegistry()
	port := newIdlePort()
	require.NoError(t, reg.Add("ttyACM0", port, serialio.NewIOManager(port, nil)))

	err := PumpsRunning(reg)()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ttyACM0")
}

func TestPumpsRunningPassesOnEmptyRegistry(t *testing.T) {
	assert.NoError(t, PumpsRunning(ports.NewRegistry())())
}

func TestCPUHeadroomGenerousThresholdPasses(t *testing.T) {
	assert.NoError(t, CPUHeadroom(1e9)())
}

func TestCPUHeadroomExhaustedThresholdFails(t *testing.T) {
	if _, err := load.Avg(); err != nil {
		t.Skip("no load averages on this platform")
	}
	assert.Error(t, CPUHeadroom(-1)())
}

func TestHandlerServesLiveness(t *testing.T) {
	reg := ports.NewRegistry()
	m := startPump(t)
	require.NoError(t, reg.Add("ttyUSB0", newIdlePort(), m))
	h := NewHandler(reg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerReportsStalledPump(t *testing.T) {
	reg := ports.NewRegistry()
	port := newIdlePort()
	require.NoError(t, reg.Add("ttyUSB0", port, serialio.NewIOManager(port, nil)))
	h := NewHandler(reg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDumpRegistry(t *testing.T) {
	reg := ports.NewRegistry()
	port := newIdlePort()
	require.NoError(t, reg.Add("ttyUSB0", port, serialio.NewIOManager(port, nil)))

	var buf bytes.Buffer
	DumpRegistry(&buf, reg)
	out := buf.String()
	assert.Contains(t, out, "port:ttyUSB0")
	assert.Contains(t, out, "state:stopped")
}
