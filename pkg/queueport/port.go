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

// Package queueport implements serialio.AsyncPort on top of any
// io.ReadWriteCloser device.
//
// A port owns a pair of FIFOs: a fill worker moves bytes from the
// device into pooled receive buffers on the receive queue, and a drain
// worker moves queued write buffers out to the device. Closing the
// device plus disposing the queues is what unblocks a pending
// BlockingRead, which is how a stopped pump is released from a silent
// port.
package queueport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"sync"
	"sync/atomic"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/panjf2000/ants/v2"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dkaukov/usb-serial-for-android/internal/logging"
	"github.com/dkaukov/usb-serial-for-android/pkg/serialio"
)

const (
	// defaultMaxPacketSize matches the bulk-endpoint transfer size of
	// common USB serial bridges.
	defaultMaxPacketSize = 512

	portWorkers = 2 // fill loop + drain loop
)

var internalLogger = logging.New("queueport", nil)

// Device is the raw byte stream a Port pumps. Read must block until
// data arrives or the device is closed.
type Device = io.ReadWriteCloser

// Config tunes a Port. The zero value is usable.
type Config struct {
	// MaxPacketSize is the natural transfer unit reported to the pump,
	// and the default receive-buffer size. Zero selects a common USB
	// bulk transfer size.
	MaxPacketSize int

	// Meter and Tracer optionally instrument the port. Nil disables
	// instrumentation.
	Meter  metric.Meter
	Tracer trace.Tracer
}

type readItem struct {
	buf  []byte // full-capacity backing slice, recycled into the pool
	data []byte // received bytes, buf[:n]
	err  error  // terminal fill-loop error; last item on the queue
}

// Port is a queue-based async port over a Device. It satisfies
// serialio.AsyncPort.
type Port struct {
	device Device
	conf   Config

	workers   *ants.Pool
	sendQueue *queue.Queue
	recvQueue *queue.Queue

	mu       sync.Mutex
	pool     *readBufferPool
	prepared bool

	closed   atomic.Bool
	writeErr atomic.Value // error; sticky first drain failure

	// prev is the buffer handed out by the last BlockingRead; it is
	// recycled on the next call. Touched only by the pump goroutine.
	prev []byte

	readBytes  metric.Int64Counter
	writeBytes metric.Int64Counter
}

// Open wraps device in a Port and starts its drain worker. The caller
// keeps ownership of nothing: Close tears down the device and both
// queues.
func Open(ctx context.Context, device Device, conf Config) (*Port, error) {
	if conf.MaxPacketSize <= 0 {
		conf.MaxPacketSize = defaultMaxPacketSize
	}
	if conf.Tracer != nil {
		_, span := conf.Tracer.Start(ctx, "queueport.Open")
		defer span.End()
	}

	workers, err := ants.NewPool(portWorkers)
	if err != nil {
		return nil, fmt.Errorf("create port worker pool: %w", err)
	}
	p := &Port{
		device:    device,
		conf:      conf,
		workers:   workers,
		sendQueue: queue.New(16),
		recvQueue: queue.New(16),
	}
	if conf.Meter != nil {
		p.readBytes, err = conf.Meter.Int64Counter("queueport.read.bytes", metric.WithUnit("By"))
		if err != nil {
			internalLogger.Warnf("create read.bytes counter failed: %v", err)
		}
		p.writeBytes, err = conf.Meter.Int64Counter("queueport.write.bytes", metric.WithUnit("By"))
		if err != nil {
			internalLogger.Warnf("create write.bytes counter failed: %v", err)
		}
	}
	if err := workers.Submit(p.drainLoop); err != nil {
		workers.Release()
		return nil, fmt.Errorf("start drain loop: %w", err)
	}
	return p, nil
}

// MaxPacketSize reports the port's natural transfer unit.
func (p *Port) MaxPacketSize() int {
	return p.conf.MaxPacketSize
}

// AsyncWrite copies src to the tail of the transmit queue and returns
// immediately. A failure of an earlier physical write is surfaced here
// on the next call.
func (p *Port) AsyncWrite(src []byte) error {
	if p.closed.Load() {
		return fmt.Errorf("async write: %w", serialio.ErrPortClosed)
	}
	if err, ok := p.writeErr.Load().(error); ok {
		return fmt.Errorf("async write: %w", err)
	}
	bb := bytebufferpool.Get()
	_, _ = bb.Write(src) // copy; the caller may reuse src immediately
	if err := p.sendQueue.Put(bb); err != nil {
		bytebufferpool.Put(bb)
		return fmt.Errorf("async write: %w", serialio.ErrPortClosed)
	}
	if p.writeBytes != nil {
		p.writeBytes.Add(context.Background(), int64(len(src)))
	}
	return nil
}

// PrepareReadQueue allocates the receive-buffer pool and starts the
// fill loop. A pump calls it at the start of every lifecycle; the pool
// and fill loop persist across lifecycles, so a repeat call with the
// same geometry is a no-op. The geometry itself is fixed on the first
// call.
func (p *Port) PrepareReadQueue(bufferSize, bufferCount int) error {
	if bufferSize <= 0 || bufferCount <= 0 {
		return fmt.Errorf("invalid read queue geometry: size=%d count=%d", bufferSize, bufferCount)
	}
	if p.closed.Load() {
		return fmt.Errorf("prepare read queue: %w", serialio.ErrPortClosed)
	}
	p.mu.Lock()
	if p.prepared {
		size, count := p.pool.size, p.pool.cap
		p.mu.Unlock()
		if size != bufferSize || count != bufferCount {
			return fmt.Errorf("read queue already prepared with size=%d count=%d", size, count)
		}
		return nil
	}
	p.prepared = true
	p.pool = newReadBufferPool(bufferSize, bufferCount)
	p.mu.Unlock()

	if err := p.workers.Submit(p.fillLoop); err != nil {
		return fmt.Errorf("start fill loop: %w", err)
	}
	return nil
}

// BlockingRead returns the next ready receive buffer, blocking until
// data arrives or the port is closed. The returned slice is valid
// until the next call.
func (p *Port) BlockingRead() ([]byte, error) {
	if p.prev != nil {
		p.recyclePrev()
	}
	items, err := p.recvQueue.Get(1)
	if err != nil || len(items) == 0 {
		return nil, fmt.Errorf("blocking read: %w", serialio.ErrPortClosed)
	}
	it, ok := items[0].(*readItem)
	if !ok {
		return nil, errors.New("blocking read: invalid queue element type")
	}
	if it.err != nil {
		return nil, it.err
	}
	p.prev = it.buf
	return it.data, nil
}

func (p *Port) recyclePrev() {
	p.mu.Lock()
	pool := p.pool
	p.mu.Unlock()
	if pool != nil {
		pool.put(p.prev)
	}
	p.prev = nil
}

// Close shuts the device and disposes both queues, releasing any
// blocked reader or writer. Safe to call more than once.
func (p *Port) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.device.Close() // releases the fill loop's pending Read
	p.sendQueue.Dispose()
	p.recvQueue.Dispose()
	p.workers.Release()
	if err != nil {
		return fmt.Errorf("close device: %w", err)
	}
	return nil
}

// PoolFree reports how many receive buffers are idle in the pool, for
// diagnostics. Zero before PrepareReadQueue.
func (p *Port) PoolFree() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool == nil {
		return 0
	}
	return p.pool.freeCount()
}

// fillLoop moves bytes from the device into pooled buffers on the
// receive queue. It ends by queueing its terminal error, so the pump
// observes buffers strictly before the failure that followed them.
func (p *Port) fillLoop() {
	p.mu.Lock()
	pool := p.pool
	p.mu.Unlock()
	for {
		buf := pool.get()
		n, err := p.device.Read(buf)
		if n > 0 {
			if p.readBytes != nil {
				p.readBytes.Add(context.Background(), int64(n))
			}
			if perr := p.recvQueue.Put(&readItem{buf: buf, data: buf[:n]}); perr != nil {
				pool.put(buf)
				return
			}
		} else {
			pool.put(buf)
		}
		if err != nil {
			_ = p.recvQueue.Put(&readItem{err: translateDeviceError(err)})
			return
		}
	}
}

// drainLoop moves queued write buffers out to the device in submission
// order. The first device failure is sticky and ends the loop; it is
// reported to the caller on the next AsyncWrite.
func (p *Port) drainLoop() {
	for {
		items, err := p.sendQueue.Get(1)
		if err != nil || len(items) == 0 {
			return
		}
		bb, ok := items[0].(*bytebufferpool.ByteBuffer)
		if !ok {
			continue
		}
		_, werr := p.device.Write(bb.B)
		bytebufferpool.Put(bb)
		if werr != nil {
			internalLogger.Warnf("device write failed: %v", werr)
			p.writeErr.Store(werr)
			return
		}
	}
}

// translateDeviceError maps device read errors onto the pump's
// taxonomy: errors that just mean "the port went away" become
// ErrPortClosed so the pump shuts down silently; anything else is a
// genuine transport failure.
func translateDeviceError(err error) error {
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, fs.ErrClosed) ||
		errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("device read: %w", serialio.ErrPortClosed)
	}
	return fmt.Errorf("device read: %w", err)
}
