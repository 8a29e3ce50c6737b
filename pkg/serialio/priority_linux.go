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
	"runtime"

	"golang.org/x/sys/unix"
)

// applyWorkerPriority renices the calling thread. The worker is pinned
// to its OS thread for the remainder of the lifecycle so the niceness
// stays with the goroutine that drains the port.
//
// Raising priority (negative nice) needs CAP_SYS_NICE; failure is
// logged and the pump carries on at normal priority.
func applyWorkerPriority(priority int) {
	if priority == 0 {
		return
	}
	runtime.LockOSThread()
	tid := unix.Gettid()
	if err := unix.Setpriority(unix.PRIO_PROCESS, tid, priority); err != nil {
		internalLogger.Warnf("set worker priority %d on tid %d failed: %v", priority, tid, err)
		return
	}
	internalLogger.Debugf("worker priority set to %d on tid %d", priority, tid)
}
