/*
 * Copyright 2025 usb-serial-for-android authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package serialio

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const defaultReadBufferCount = 4

// IOManager services an AsyncPort with a dedicated read worker and
// routes received data and failures to a Listener.
//
// At most one worker is alive per manager. Stop is a cooperative
// request: the worker notices it on its next loop iteration, so a read
// blocked on a silent port stays blocked until the port unblocks it.
// Close the port out-of-band when prompt termination is required.
type IOManager struct {
	port AsyncPort

	state stateCell

	// mu guards listener only. The state cell deliberately is not under
	// this lock; it is shared with the worker lock-free.
	mu       sync.Mutex
	listener Listener

	// Mutated only while stopped, from the caller goroutine.
	readBufferSize  int
	readBufferCount int
	threadPriority  int

	// Recreated on every Start; never reused across lifecycles.
	startup  *latch
	shutdown *latch
}

// NewIOManager returns a stopped manager for port. The read-buffer size
// defaults to the port's maximum packet size and may be tuned with the
// setters before Start.
func NewIOManager(port AsyncPort, listener Listener) *IOManager {
	return &IOManager{
		port:            port,
		listener:        listener,
		readBufferSize:  port.MaxPacketSize(),
		readBufferCount: defaultReadBufferCount,
		threadPriority:  DefaultWorkerPriority,
	}
}

// SetListener replaces the listener. Safe to call while running; the
// worker dispatches each receive to a single consistent snapshot.
func (m *IOManager) SetListener(l Listener) {
	m.mu.Lock()
	m.listener = l
	m.mu.Unlock()
}

// GetListener returns the current listener, which may be nil.
func (m *IOManager) GetListener() Listener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listener
}

// State returns the current lifecycle state. The value is an atomic
// snapshot; it may be stale by the time the caller acts on it.
func (m *IOManager) State() State {
	return m.state.load()
}

// ReadBufferSize returns the configured receive-buffer size in bytes.
func (m *IOManager) ReadBufferSize() int { return m.readBufferSize }

// ReadBufferCount returns the configured receive-buffer pool depth.
func (m *IOManager) ReadBufferCount() int { return m.readBufferCount }

// SetReadBufferSize configures the receive-buffer size. Legal only
// while stopped.
func (m *IOManager) SetReadBufferSize(size int) error {
	if err := m.requireStopped(); err != nil {
		return err
	}
	if size <= 0 {
		return fmt.Errorf("invalid read buffer size: %d", size)
	}
	m.readBufferSize = size
	return nil
}

// SetReadBufferCount configures the receive-buffer pool depth. Legal
// only while stopped.
func (m *IOManager) SetReadBufferCount(count int) error {
	if err := m.requireStopped(); err != nil {
		return err
	}
	if count <= 0 {
		return fmt.Errorf("invalid read buffer count: %d", count)
	}
	m.readBufferCount = count
	return nil
}

// SetWorkerPriority configures the niceness applied to the read worker
// thread. Zero leaves scheduling untouched. Legal only while stopped.
func (m *IOManager) SetWorkerPriority(priority int) error {
	if err := m.requireStopped(); err != nil {
		return err
	}
	m.threadPriority = priority
	return nil
}

func (m *IOManager) requireStopped() error {
	if m.state.load() != StateStopped {
		return ErrNotStopped
	}
	return nil
}

// WriteAsync queues data for transmission and returns immediately. It
// does not require the manager to be running; the port decides whether
// a write on an unpumped port is accepted. Completion of the physical
// write is not observable here.
func (m *IOManager) WriteAsync(data []byte) error {
	if err := m.port.AsyncWrite(data); err != nil {
		return err
	}
	writeBytesTotal.Add(float64(len(data)))
	return nil
}

// Start spawns the read worker and blocks until it has begun. On return
// the worker is configuring the port's receive queue and draining it.
//
// Fails with ErrAlreadyStarted unless the manager is stopped. If ctx is
// done before the worker comes up, the wait is abandoned and ctx's
// error returned, but the worker keeps running independently.
func (m *IOManager) Start(ctx context.Context) error {
	if !m.state.compareAndSwap(StateStopped, StateStarting) {
		return ErrAlreadyStarted
	}
	m.startup = newLatch()
	m.shutdown = newLatch()
	go m.runRead(m.startup, m.shutdown)

	if err := m.startup.wait(ctx); err != nil {
		return err
	}
	// The worker may already have failed and begun tearing down; only
	// promote if it is still starting, so no illegal edge is published.
	m.state.compareAndSwap(StateStarting, StateRunning)
	return nil
}

// Stop requests cooperative termination and returns immediately. It is
// effective only while running; calling it on a stopped manager is a
// no-op. The worker settles to StateStopped once the port releases its
// blocking read.
func (m *IOManager) Stop() {
	if m.state.compareAndSwap(StateRunning, StateStopping) {
		internalLogger.Infof("stop requested")
	}
}

// runRead is the read-worker body. It owns exactly one lifecycle: it is
// handed that lifecycle's latch pair so a Start racing a slow teardown
// can never cross-signal.
func (m *IOManager) runRead(startup, shutdown *latch) {
	internalLogger.Infof("read worker running")
	defer func() {
		if r := recover(); r != nil {
			m.notifyRunError(fmt.Errorf("read worker panic: %v", r))
		}
		// Terminal transition: always settle through stopping so the
		// state graph stays linear, wherever the failure happened.
		m.state.compareAndSwap(StateStarting, StateStopping)
		m.state.compareAndSwap(StateRunning, StateStopping)
		m.state.compareAndSwap(StateStopping, StateStopped)
		internalLogger.Infof("read worker stopped")
		shutdown.signal()
	}()

	applyWorkerPriority(m.threadPriority)
	startup.signal()

	if err := m.port.PrepareReadQueue(m.readBufferSize, m.readBufferCount); err != nil {
		internalLogger.Warnf("prepare read queue failed: %v", err)
		readErrorsTotal.Inc()
		m.notifyRunError(fmt.Errorf("prepare read queue: %w", err))
		return
	}

	for {
		if err := m.stepRead(); err != nil {
			if errors.Is(err, ErrPortClosed) {
				internalLogger.Infof("port closed, read worker ending")
				return
			}
			internalLogger.Warnf("read worker ending due to error: %v", err)
			readErrorsTotal.Inc()
			m.notifyRunError(err)
			return
		}
		if !m.isStillRunning(shutdown) {
			internalLogger.Infof("read worker stopping, state=%v", m.State())
			return
		}
	}
}

func (m *IOManager) isStillRunning(shutdown *latch) bool {
	s := m.state.load()
	return (s == StateRunning || s == StateStarting) && !shutdown.signaled()
}

func (m *IOManager) stepRead() error {
	buf, err := m.port.BlockingRead()
	if err != nil {
		return err
	}
	if len(buf) == 0 {
		return nil
	}
	if debugEnabled() {
		internalLogger.Debugf("read data len=%d", len(buf))
	}
	readBytesTotal.Add(float64(len(buf)))
	if listener := m.GetListener(); listener != nil {
		m.dispatchData(listener, buf)
	}
	return nil
}

// dispatchData shields the pump from a misbehaving listener: a panic in
// OnNewData is logged and the loop continues.
func (m *IOManager) dispatchData(listener Listener, buf []byte) {
	defer func() {
		if r := recover(); r != nil {
			internalLogger.Warnf("panic in OnNewData: %v", r)
		}
	}()
	listener.OnNewData(buf)
}

// notifyRunError delivers the terminal error callback. A panic raised
// by the listener itself is logged and must not mask the original
// failure or reach the worker's cleanup path.
func (m *IOManager) notifyRunError(err error) {
	listener := m.GetListener()
	if listener == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			internalLogger.Warnf("panic in OnRunError: %v", r)
		}
	}()
	listener.OnRunError(err)
}
