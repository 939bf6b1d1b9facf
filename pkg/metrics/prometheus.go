/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics of an RDA session
type Metrics struct {
	Registry *prometheus.Registry

	// protocol
	MessagesReceived *prometheus.CounterVec
	StartMessages    prometheus.Counter
	DataMessages     prometheus.Counter
	UnknownMessages  prometheus.Counter
	Markers          prometheus.Counter
	ReadTimeouts     prometheus.Counter
	DecodeDuration   prometheus.Histogram

	// sequence
	SequenceGaps      prometheus.Counter
	BlocksLost        prometheus.Counter
	SequenceAnomalies prometheus.Counter
	AcquisitionIndex  prometheus.Gauge

	// dispatch
	FramesDispatched *prometheus.CounterVec
	FramesDropped    *prometheus.CounterVec
	QueueDepth       *prometheus.GaugeVec
	SinkErrors       *prometheus.CounterVec
}

// NewMetrics creates all metrics on a registry of their own, so several
// sessions (and tests) do not collide on the default registerer.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,

		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rda_messages_received_total",
			Help: "Total number of RDA messages received by type",
		}, []string{"type"}),
		StartMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "rda_start_messages_total",
			Help: "Total number of start messages, each one rebuilds the channel table",
		}),
		DataMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "rda_data_messages_total",
			Help: "Total number of data messages successfully decoded",
		}),
		UnknownMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "rda_unknown_messages_total",
			Help: "Total number of skipped messages of unknown type",
		}),
		Markers: factory.NewCounter(prometheus.CounterOpts{
			Name: "rda_markers_total",
			Help: "Total number of markers received in data messages",
		}),
		ReadTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "rda_read_timeouts_total",
			Help: "Total number of sessions ended because the server sent nothing within the read timeout",
		}),
		DecodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rda_data_processing_seconds",
			Help:    "Time spent decimating and dispatching one data message",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),

		SequenceGaps: factory.NewCounter(prometheus.CounterOpts{
			Name: "rda_sequence_gaps_total",
			Help: "Total number of detected block sequence gaps",
		}),
		BlocksLost: factory.NewCounter(prometheus.CounterOpts{
			Name: "rda_blocks_lost_total",
			Help: "Total number of blocks missing in sequence gaps",
		}),
		SequenceAnomalies: factory.NewCounter(prometheus.CounterOpts{
			Name: "rda_sequence_anomalies_total",
			Help: "Total number of duplicated or out of order blocks",
		}),
		AcquisitionIndex: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rda_acquisition_index",
			Help: "Acquisition index of the last data message",
		}),

		FramesDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rda_frames_dispatched_total",
			Help: "Total number of frames queued to a sink path",
		}, []string{"path"}),
		FramesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rda_frames_dropped_total",
			Help: "Total number of frames dropped because a sink queue was full",
		}, []string{"path"}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rda_queue_depth",
			Help: "Current number of frames waiting in a sink queue",
		}, []string{"path"}),
		SinkErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rda_sink_errors_total",
			Help: "Total number of errors returned by sinks",
		}, []string{"path"}),
	}
}
