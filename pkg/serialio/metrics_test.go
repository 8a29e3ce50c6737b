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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}

func TestWriteAsyncCountsBytes(t *testing.T) {
	before := counterValue(writeBytesTotal)

	m := NewIOManager(newFakePort(), nil)
	require.NoError(t, m.WriteAsync([]byte("12345")))
	require.NoError(t, m.WriteAsync([]byte("678")))

	assert.Equal(t, before+8, counterValue(writeBytesTotal))
}

func TestFailedWriteDoesNotCountBytes(t *testing.T) {
	before := counterValue(writeBytesTotal)

	f := newFakePort()
	f.writeErr = assert.AnError
	m := NewIOManager(f, nil)
	assert.Error(t, m.WriteAsync([]byte("12345")))

	assert.Equal(t, before, counterValue(writeBytesTotal))
}
