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

import "sync/atomic"

// State describes the lifecycle phase of an IOManager.
//
// Legal transitions form a single cycle:
//
//	StateStopped -> StateStarting -> StateRunning -> StateStopping -> StateStopped
//
// A read worker that fails before reaching StateRunning still passes
// through StateStopping on its way back to StateStopped, so observers
// never see a transition that skips a phase.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// stateCell is a lock-free holder for the lifecycle state. It is read
// from both the caller goroutine and the read worker, so every
// transition goes through compareAndSwap rather than external locking.
type stateCell struct {
	v atomic.Int32
}

func (c *stateCell) load() State {
	return State(c.v.Load())
}

func (c *stateCell) compareAndSwap(old, new State) bool {
	return c.v.CompareAndSwap(int32(old), int32(new))
}
