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

import "github.com/dkaukov/usb-serial-for-android/internal/logging"

var internalLogger = logging.New("serialio", nil)

// SetLogLevel changes the library's log level; the default is Warning.
// The process env `USBSERIAL_LOG_LEVEL` also sets it.
func SetLogLevel(l int) {
	logging.SetLevel(l)
}

// SetDebug toggles verbose per-receive tracing, off by default. The
// process env `USBSERIAL_DEBUG_MODE` also enables it.
func SetDebug(enabled bool) {
	logging.SetDebug(enabled)
}

func debugEnabled() bool {
	return logging.DebugEnabled()
}
