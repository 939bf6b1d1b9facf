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

package dispatch

import (
	"sync"

	"jinr.ru/greenlab/go-rda/pkg/log"
	"jinr.ru/greenlab/go-rda/pkg/metrics"
	"jinr.ru/greenlab/go-rda/pkg/rda"
)

const (
	PathSave = "save"
	PathLive = "live"
)

type Options struct {
	Save          rda.ChannelSelection
	Live          rda.ChannelSelection
	SaveQueueSize int
	LiveQueueSize int
}

// Dispatcher routes decimated frames to the save and the live path.
// Dispatch and DispatchText never block, a full queue drops the record.
// Each path is drained by its own goroutine so the paths never wait on
// each other. Dispatch, DispatchText, Configure and Close must be called
// from one goroutine.
type Dispatcher struct {
	opts    Options
	metrics *metrics.Metrics

	save chan SaveRecord
	live chan *rda.DecimatedFrame

	saveCols []int
	liveCols []int

	wg     sync.WaitGroup
	closed bool
}

// New creates a dispatcher and starts the consumers of the enabled paths.
// A path is enabled when its selection is not none and its sink is not nil.
func New(opts Options, save SaveSink, live LiveSink, m *metrics.Metrics) *Dispatcher {
	d := &Dispatcher{opts: opts, metrics: m}
	if save != nil && opts.Save.Enabled() {
		d.save = make(chan SaveRecord, queueSize(opts.SaveQueueSize))
		d.wg.Add(1)
		go d.drainSave(save)
	} else if save != nil {
		save.Close()
	}
	if live != nil && opts.Live.Enabled() {
		d.live = make(chan *rda.DecimatedFrame, queueSize(opts.LiveQueueSize))
		d.wg.Add(1)
		go d.drainLive(live)
	} else if live != nil {
		live.Close()
	}
	return d
}

func queueSize(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Configure resolves both selections against a new channel table.
// It is called on every start message.
func (d *Dispatcher) Configure(table *rda.ChannelTable) error {
	saveCols, err := d.opts.Save.Resolve(table)
	if err != nil {
		return err
	}
	liveCols, err := d.opts.Live.Resolve(table)
	if err != nil {
		return err
	}
	d.saveCols, d.liveCols = saveCols, liveCols
	log.Debug("Save channels %v, live channels %v", saveCols, liveCols)
	return nil
}

// Dispatch takes a frame holding all channels of the table in table order
// and queues its selected columns to each path.
func (d *Dispatcher) Dispatch(frame *rda.DecimatedFrame) {
	if d.closed {
		return
	}
	if d.save != nil && len(d.saveCols) > 0 {
		if sub, err := frame.Select(d.saveCols); err != nil {
			log.Error("Save path: %s", err)
		} else {
			d.sendSave(FrameRecord(sub))
		}
	}
	if d.live != nil && len(d.liveCols) > 0 {
		sub, err := frame.Select(d.liveCols)
		if err != nil {
			log.Error("Live path: %s", err)
			return
		}
		select {
		case d.live <- sub:
			d.metrics.FramesDispatched.WithLabelValues(PathLive).Inc()
		default:
			d.dropped(PathLive, frame.AcquisitionIndex)
		}
		d.metrics.QueueDepth.WithLabelValues(PathLive).Set(float64(len(d.live)))
	}
}

// DispatchText queues a text record to the save path
func (d *Dispatcher) DispatchText(text string) {
	if d.closed || d.save == nil {
		return
	}
	d.sendSave(TextRecord(text))
}

func (d *Dispatcher) sendSave(rec SaveRecord) {
	select {
	case d.save <- rec:
		d.metrics.FramesDispatched.WithLabelValues(PathSave).Inc()
	default:
		var index uint64
		if rec.Index != nil {
			index = *rec.Index
		}
		d.dropped(PathSave, index)
	}
	d.metrics.QueueDepth.WithLabelValues(PathSave).Set(float64(len(d.save)))
}

func (d *Dispatcher) dropped(path string, index uint64) {
	d.metrics.FramesDropped.WithLabelValues(path).Inc()
	log.Warning("%s queue is full, dropped frame %d", path, index)
}

// Close closes the queues and waits until the consumers have drained them
// and closed their sinks. Frames dispatched after Close are ignored.
func (d *Dispatcher) Close() {
	if d.closed {
		return
	}
	d.closed = true
	if d.save != nil {
		close(d.save)
	}
	if d.live != nil {
		close(d.live)
	}
	d.wg.Wait()
}

func (d *Dispatcher) drainSave(sink SaveSink) {
	defer d.wg.Done()
	for rec := range d.save {
		d.metrics.QueueDepth.WithLabelValues(PathSave).Set(float64(len(d.save)))
		if err := sink.Save(rec); err != nil {
			d.metrics.SinkErrors.WithLabelValues(PathSave).Inc()
			log.Error("Failed to save record: %s", err)
		}
	}
	if err := sink.Close(); err != nil {
		log.Error("Failed to close save sink: %s", err)
	}
}

func (d *Dispatcher) drainLive(sink LiveSink) {
	defer d.wg.Done()
	for frame := range d.live {
		d.metrics.QueueDepth.WithLabelValues(PathLive).Set(float64(len(d.live)))
		if err := sink.Live(frame); err != nil {
			d.metrics.SinkErrors.WithLabelValues(PathLive).Inc()
			log.Warning("Live sink: %s", err)
		}
	}
	if err := sink.Close(); err != nil {
		log.Error("Failed to close live sink: %s", err)
	}
}
