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
	"fmt"

	"go.bug.st/serial"
)

// SerialMode configures the physical serial line.
type SerialMode struct {
	BaudRate int
}

// OpenSerial opens a system serial port and wraps it in a Port. The
// underlying read has no timeout; closing the Port is what releases a
// blocked pump.
func OpenSerial(ctx context.Context, portName string, mode SerialMode, conf Config) (*Port, error) {
	if portName == "" {
		return nil, fmt.Errorf("serial port name is empty")
	}
	if mode.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid serial baud rate: %d", mode.BaudRate)
	}
	sp, err := serial.Open(portName, &serial.Mode{BaudRate: mode.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", portName, err)
	}
	p, err := Open(ctx, sp, conf)
	if err != nil {
		_ = sp.Close()
		return nil, err
	}
	return p, nil
}
