// Package diag exposes operational diagnostics for managed ports:
// health/readiness checks and a human-readable registry dump.
package diag

import (
	"fmt"
	"io"
	"runtime"

	"github.com/heptiolabs/healthcheck"
	"github.com/shirou/gopsutil/v3/load"

	"github.com/dkaukov/usb-serial-for-android/pkg/ports"
	"github.com/dkaukov/usb-serial-for-android/pkg/serialio"
)

// NewHandler builds a healthcheck handler for a port registry:
// liveness fails when any registered pump is not running, readiness
// fails when the host has no CPU headroom left to service receive
// buffers promptly.
func NewHandler(reg *ports.Registry) healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("pumps-running", PumpsRunning(reg))
	h.AddReadinessCheck("cpu-headroom", CPUHeadroom(1.0))
	return h
}

// PumpsRunning reports an error naming every registered pump whose
// state is not running.
func PumpsRunning(reg *ports.Registry) healthcheck.Check {
	return func() error {
		var stalled []string
		reg.Each(func(mp *ports.ManagedPort) {
			if mp.Manager.State() != serialio.StateRunning {
				stalled = append(stalled, fmt.Sprintf("%s=%v", mp.Name, mp.Manager.State()))
			}
		})
		if len(stalled) > 0 {
			return fmt.Errorf("pumps not running: %v", stalled)
		}
		return nil
	}
}

// CPUHeadroom fails when the 1-minute load average per core exceeds
// maxPerCore. Platforms without load averages always pass.
func CPUHeadroom(maxPerCore float64) healthcheck.Check {
	return func() error {
		avg, err := load.Avg()
		if err != nil {
			// Unsupported platform; nothing to gate on.
			return nil
		}
		perCore := avg.Load1 / float64(runtime.NumCPU())
		if perCore > maxPerCore {
			return fmt.Errorf("load1 per core %.2f exceeds %.2f", perCore, maxPerCore)
		}
		return nil
	}
}

// DumpRegistry prints the state of every registered pump.
func DumpRegistry(w io.Writer, reg *ports.Registry) {
	reg.Each(func(mp *ports.ManagedPort) {
		fmt.Fprintf(w, "port:%s state:%v readBufferSize:%d readBufferCount:%d\n",
			mp.Name, mp.Manager.State(), mp.Manager.ReadBufferSize(), mp.Manager.ReadBufferCount())
	})
}
