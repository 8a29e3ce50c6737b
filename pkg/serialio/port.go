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

// Package serialio pumps an asynchronous, queue-based byte-stream port.
//
// IOManager owns a dedicated read worker that drains the port's ready
// buffers and hands them to a Listener, while outgoing data is queued
// for transmission without blocking the caller. The package only
// consumes the AsyncPort contract; pkg/queueport provides a queue-backed
// implementation over arbitrary devices including real serial ports.
package serialio

// AsyncPort is the device abstraction consumed by IOManager. Writes are
// queued and return immediately; reads are pool-based and blocking.
type AsyncPort interface {
	// AsyncWrite puts src at the tail of the transmit queue and returns
	// without waiting for the physical write to complete.
	AsyncWrite(src []byte) error

	// PrepareReadQueue sets up the receive-buffer pool. It is called
	// exactly once per read-worker lifecycle, before the first read.
	PrepareReadQueue(bufferSize, bufferCount int) error

	// BlockingRead returns the next ready receive buffer, blocking until
	// data is available or the port is closed. On close it fails with an
	// error wrapping ErrPortClosed.
	//
	// The returned slice stays valid until the next BlockingRead call on
	// the same port; implementations may recycle it afterwards.
	BlockingRead() ([]byte, error)

	// MaxPacketSize reports the port's natural maximum transfer unit,
	// used as the default read-buffer size.
	MaxPacketSize() int
}
