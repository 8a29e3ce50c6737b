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

// Listener observes a running IOManager. Both callbacks are invoked on
// the read-worker goroutine.
type Listener interface {
	// OnNewData is called once per non-empty receive, in receive order.
	// It must not block indefinitely, since it stalls the pump.
	OnNewData(data []byte)

	// OnRunError is called at most once per lifecycle, strictly last,
	// when the read worker ends abnormally. It is not called for a
	// Stop-initiated shutdown or a closed port.
	OnRunError(err error)
}
