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

import "github.com/prometheus/client_golang/prometheus"

var (
	readBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "serialio_read_bytes_total",
		Help: "Total bytes delivered by the read worker.",
	})
	readErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "serialio_read_errors_total",
		Help: "Total read-worker lifecycles ended by a transport error.",
	})
	writeBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "serialio_write_bytes_total",
		Help: "Total bytes accepted for asynchronous transmission.",
	})
)

func init() {
	prometheus.MustRegister(readBytesTotal, readErrorsTotal, writeBytesTotal)
}
