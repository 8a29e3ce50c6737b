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
	"errors"
	"fmt"
)

var (
	// ErrIllegalState is the base error for operations issued in a
	// lifecycle phase that does not permit them.
	ErrIllegalState = errors.New("illegal state")

	// ErrAlreadyStarted is returned by Start when the manager is not
	// stopped.
	ErrAlreadyStarted = fmt.Errorf("%w: already started", ErrIllegalState)

	// ErrNotStopped is returned by the configuration setters when the
	// manager is not stopped.
	ErrNotStopped = fmt.Errorf("%w: only configurable while stopped", ErrIllegalState)

	// ErrPortClosed is returned by AsyncPort implementations when a
	// blocking read is released because the port was closed. The read
	// worker treats it as an ordinary shutdown signal, not a fault:
	// the loop ends without invoking OnRunError.
	ErrPortClosed = errors.New("port closed")
)
