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
	"sync"
)

// latch is a one-shot barrier. It is signaled exactly once and may be
// waited on or polled from any goroutine. A latch must never be reused
// across lifecycles; IOManager allocates a fresh startup/shutdown pair
// on every Start.
type latch struct {
	once sync.Once
	ch   chan struct{}
}

func newLatch() *latch {
	return &latch{ch: make(chan struct{})}
}

func (l *latch) signal() {
	l.once.Do(func() { close(l.ch) })
}

func (l *latch) signaled() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// wait blocks until the latch is signaled or ctx is done. A ctx that is
// already done always wins, even over a signaled latch.
func (l *latch) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-l.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
