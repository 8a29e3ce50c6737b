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

package queueport

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkaukov/usb-serial-for-android/pkg/serialio"
)

type collectingListener struct {
	mu   sync.Mutex
	data [][]byte
	errs []error
}

func (l *collectingListener) OnNewData(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	l.data = append(l.data, cp)
}

func (l *collectingListener) OnRunError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func (l *collectingListener) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.data), len(l.errs)
}

// End to end: a pump over a queue port over a scripted device.
func TestPumpOverQueuePort(t *testing.T) {
	dev := newFakeDevice()
	p := openTestPort(t, dev)

	l := &collectingListener{}
	m := serialio.NewIOManager(p, l)
	require.NoError(t, m.SetWorkerPriority(0))
	require.NoError(t, m.Start(context.Background()))

	dev.script <- devChunk{data: []byte("hello")}
	dev.script <- devChunk{data: []byte("world")}

	assert.Eventually(t, func() bool {
		d, _ := l.counts()
		return d == 2
	}, settleTimeout, settleTick)

	l.mu.Lock()
	assert.Equal(t, []byte("hello"), l.data[0])
	assert.Equal(t, []byte("world"), l.data[1])
	l.mu.Unlock()

	require.NoError(t, m.WriteAsync([]byte("ack")))
	assert.Eventually(t, func() bool { return len(dev.written()) == 1 },
		settleTimeout, settleTick)
	assert.Equal(t, []byte("ack"), dev.written()[0])

	// Closing the port is the out-of-band unblock; the pump shuts down
	// silently.
	require.NoError(t, p.Close())
	assert.Eventually(t, func() bool { return m.State() == serialio.StateStopped },
		settleTimeout, settleTick)
	_, errs := l.counts()
	assert.Zero(t, errs)
}

// A stopped pump can be started again over the same still-open port.
func TestPumpRestartsOverSamePort(t *testing.T) {
	dev := newFakeDevice()
	p := openTestPort(t, dev)

	l := &collectingListener{}
	m := serialio.NewIOManager(p, l)
	require.NoError(t, m.SetWorkerPriority(0))
	require.NoError(t, m.Start(context.Background()))

	dev.script <- devChunk{data: []byte("one")}
	assert.Eventually(t, func() bool {
		d, _ := l.counts()
		return d == 1
	}, settleTimeout, settleTick)

	m.Stop()
	// The worker is parked in BlockingRead; one more receive lets it
	// notice the stop request.
	dev.script <- devChunk{data: []byte("x")}
	assert.Eventually(t, func() bool { return m.State() == serialio.StateStopped },
		settleTimeout, settleTick)

	require.NoError(t, m.Start(context.Background()))
	dev.script <- devChunk{data: []byte("two")}
	assert.Eventually(t, func() bool {
		d, _ := l.counts()
		return d == 3
	}, settleTimeout, settleTick)
	assert.Equal(t, serialio.StateRunning, m.State())

	l.mu.Lock()
	assert.Equal(t, []byte("two"), l.data[2])
	l.mu.Unlock()
	_, errs := l.counts()
	assert.Zero(t, errs)

	require.NoError(t, p.Close())
	assert.Eventually(t, func() bool { return m.State() == serialio.StateStopped },
		settleTimeout, settleTick)
}
