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

import "sync"

// readBufferPool is the fixed receive-buffer pool prepared by
// PrepareReadQueue. When the pool runs dry (the pump is slower than the
// device) get falls back to a fresh allocation rather than stalling the
// fill loop; such buffers are absorbed back into the free list on put.
type readBufferPool struct {
	mu   sync.Mutex
	size int
	cap  int
	free [][]byte
}

func newReadBufferPool(size, count int) *readBufferPool {
	p := &readBufferPool{
		size: size,
		cap:  count,
		free: make([][]byte, 0, count),
	}
	for i := 0; i < count; i++ {
		p.free = append(p.free, make([]byte, size))
	}
	return p
}

func (p *readBufferPool) get() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		buf := p.free[n-1]
		p.free = p.free[:n-1]
		return buf
	}
	return make([]byte, p.size)
}

func (p *readBufferPool) put(buf []byte) {
	if cap(buf) < p.size {
		return
	}
	buf = buf[:p.size]
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) < p.cap {
		p.free = append(p.free, buf)
	}
}

// freeCount reports the number of pooled buffers currently idle.
func (p *readBufferPool) freeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
