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

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"jinr.ru/greenlab/go-rda/pkg/dispatch"
	"jinr.ru/greenlab/go-rda/pkg/log"
	"jinr.ru/greenlab/go-rda/pkg/metrics"
	"jinr.ru/greenlab/go-rda/pkg/rda"
	"jinr.ru/greenlab/go-rda/pkg/srv/state"
)

const (
	StateIdle     = "idle"
	StateRunning  = "running"
	StateStopped  = "stopped"
	StateFailed   = "failed"
	StateCanceled = "canceled"
)

// Status is a snapshot of a session for the API
type Status struct {
	State           string    `json:"state"`
	StartedAt       time.Time `json:"started_at,omitempty"`
	Index           rda.Index `json:"index"`
	Channels        uint32    `json:"channels"`
	SamplingRateHz  float64   `json:"sampling_rate_hz"`
	Stride          int       `json:"stride"`
	StartMessages   uint64    `json:"start_messages"`
	DataMessages    uint64    `json:"data_messages"`
	UnknownMessages uint64    `json:"unknown_messages"`
	Gaps            uint64    `json:"gaps"`
	BlocksLost      uint64    `json:"blocks_lost"`
	Anomalies       uint64    `json:"anomalies"`
	Error           string    `json:"error,omitempty"`
}

// Session runs the read, decode, decimate and dispatch pipeline of one
// protocol source on a single goroutine.
type Session struct {
	opts       Options
	source     rda.ProtocolSource
	decimator  *rda.Decimator
	guard      *rda.SequenceGuard
	dispatcher *dispatch.Dispatcher

	table    atomic.Pointer[rda.ChannelTable]
	channels []int

	mu     sync.RWMutex
	status Status

	started atomic.Bool
}

func New(source rda.ProtocolSource, opts Options) (*Session, error) {
	decimator, err := rda.NewDecimator(opts.Stride)
	if err != nil {
		return nil, err
	}
	if opts.Publisher == nil {
		opts.Publisher = rda.DefaultPublisher
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetrics()
	}
	return &Session{
		opts:      opts,
		source:    source,
		decimator: decimator,
		guard:     rda.NewSequenceGuard(),
		status: Status{
			State:  StateIdle,
			Index:  rda.Index{LastBlockID: -1},
			Stride: opts.Stride,
		},
	}, nil
}

// Handle is the join point of a running session
type Handle struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// Wait blocks until the reader has exited and the sinks have drained.
// It returns nil after a stop message, the context error after Stop or
// cancellation, and the fatal error otherwise.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Stop cancels the session by closing the transport. It does not wait.
func (h *Handle) Stop() {
	h.cancel()
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Start runs the session. It can be called once.
func (s *Session) Start(ctx context.Context) (*Handle, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, errors.New("session already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{done: make(chan struct{}), cancel: cancel}
	s.dispatcher = dispatch.New(dispatch.Options{
		Save:          s.opts.Save,
		Live:          s.opts.Live,
		SaveQueueSize: s.opts.SaveQueueSize,
		LiveQueueSize: s.opts.LiveQueueSize,
	}, s.opts.SaveSink, s.opts.LiveSink, s.opts.Metrics)
	s.updateStatus(func(st *Status) {
		st.State = StateRunning
		st.StartedAt = time.Now()
	})

	// closing the transport is the only way to unblock a pending read
	go func() {
		select {
		case <-ctx.Done():
			s.source.Close()
		case <-h.done:
		}
	}()

	go func() {
		err := s.run(ctx)
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		s.source.Close()
		s.dispatcher.Close()
		if s.opts.Journal != nil {
			s.opts.Journal.Close()
		}
		s.finish(err)
		h.err = err
		cancel()
		close(h.done)
	}()
	return h, nil
}

func (s *Session) finish(err error) {
	s.updateStatus(func(st *Status) {
		switch {
		case err == nil:
			st.State = StateStopped
			log.Info("RDA session stopped")
		case errors.Is(err, context.Canceled):
			st.State = StateCanceled
			log.Info("RDA session canceled")
		default:
			st.State = StateFailed
			st.Error = err.Error()
			log.Error("RDA session failed: %s", err)
		}
	})
}

func (s *Session) run(ctx context.Context) error {
	for {
		msg, err := s.source.DecodeNext()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if rda.IsTimeout(err) {
				s.opts.Metrics.ReadTimeouts.Inc()
				log.Error("RDA server sent nothing within the read timeout")
				return err
			}
			var unknown rda.ErrUnknownMessageType
			if errors.As(err, &unknown) {
				s.opts.Metrics.UnknownMessages.Inc()
				s.updateStatus(func(st *Status) { st.UnknownMessages++ })
				if s.opts.SkipUnknown {
					log.Warning("%s, skipped", err)
					continue
				}
			}
			return err
		}
		switch m := msg.(type) {
		case *rda.StartMessage:
			s.opts.Metrics.MessagesReceived.WithLabelValues("start").Inc()
			if err := s.handleStart(m.Table); err != nil {
				return err
			}
		case *rda.DataMessage:
			s.opts.Metrics.MessagesReceived.WithLabelValues("data").Inc()
			if err := s.handleData(m.Block); err != nil {
				return err
			}
		case *rda.StopMessage:
			s.opts.Metrics.MessagesReceived.WithLabelValues("stop").Inc()
			log.Info("Stop message received")
			return nil
		}
	}
}

func (s *Session) handleStart(table *rda.ChannelTable) error {
	log.Info("Start message: %d channels, sampling interval %g us", table.ChannelCount, table.SamplingIntervalUs)
	if err := s.dispatcher.Configure(table); err != nil {
		return err
	}
	if s.opts.OutputHz > 0 {
		stride := rda.StrideFor(table.SamplingRateHz(), s.opts.OutputHz)
		if stride != s.decimator.Stride() {
			log.Info("Decimation stride %d for %g Hz to %g Hz", stride, table.SamplingRateHz(), s.opts.OutputHz)
			s.decimator, _ = rda.NewDecimator(stride)
		}
	}
	s.table.Store(table)
	s.channels, _ = rda.SelectionAll.Resolve(table)
	s.guard.Reset()
	s.opts.Metrics.StartMessages.Inc()
	s.updateStatus(func(st *Status) {
		st.Channels = table.ChannelCount
		st.SamplingRateHz = table.SamplingRateHz()
		st.Stride = s.decimator.Stride()
		st.StartMessages++
	})
	if s.opts.Journal != nil {
		s.opts.Journal.ChannelTable(table)
	}
	s.dispatcher.DispatchText(table.Describe(s.opts.Subject, s.decimator.Stride()))
	return nil
}

func (s *Session) handleData(block *rda.RawBlock) error {
	begin := time.Now()
	table := s.table.Load()
	if table == nil {
		return rda.ErrChannelTableMissing{}
	}

	o := s.guard.Observe(block.BlockID)
	index := s.guard.Processed() - 1
	switch o.Kind {
	case rda.ObservedGap:
		s.opts.Metrics.SequenceGaps.Inc()
		s.opts.Metrics.BlocksLost.Add(float64(o.Lost))
		log.Warning("%s", o.Err())
		if s.opts.Journal != nil {
			s.opts.Journal.Gap(&state.GapRecord{
				Time:             begin,
				AcquisitionIndex: index,
				LastBlockID:      uint32(o.Last),
				BlockID:          o.Current,
				Lost:             o.Lost,
			})
		}
	case rda.ObservedAnomaly:
		s.opts.Metrics.SequenceAnomalies.Inc()
		log.Warning("Sequence anomaly: block %d after %d", o.Current, o.Last)
	}

	s.opts.Publisher.Publish(rda.Index{Acquisition: index, LastBlockID: int64(block.BlockID)})
	s.opts.Metrics.DataMessages.Inc()
	s.opts.Metrics.AcquisitionIndex.Set(float64(index))

	for _, m := range block.Markers {
		s.opts.Metrics.Markers.Inc()
		if m.AllChannels() {
			log.Info("Marker %s %q at block %d position %d", m.Kind, m.Description, block.BlockID, m.Position)
		} else {
			log.Info("Marker %s %q at block %d position %d channel %d", m.Kind, m.Description, block.BlockID, m.Position, m.Channel)
		}
	}

	frame, err := s.decimator.DecimateAt(table, block, s.channels, index, begin)
	if err != nil {
		return err
	}
	s.dispatcher.Dispatch(frame)

	s.updateStatus(func(st *Status) {
		st.Index = rda.Index{Acquisition: index, LastBlockID: int64(block.BlockID), Valid: true}
		st.DataMessages++
		st.Gaps = s.guard.Gaps()
		st.BlocksLost = s.guard.Lost()
		st.Anomalies = s.guard.Anomalies()
	})
	s.opts.Metrics.DecodeDuration.Observe(time.Since(begin).Seconds())
	return nil
}

func (s *Session) updateStatus(f func(st *Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(&s.status)
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Table is the current channel table, nil before the first start message
func (s *Session) Table() *rda.ChannelTable {
	return s.table.Load()
}

func (s *Session) Metrics() *metrics.Metrics {
	return s.opts.Metrics
}

func (s *Session) Publisher() *rda.Publisher {
	return s.opts.Publisher
}
