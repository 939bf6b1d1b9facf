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

package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"jinr.ru/greenlab/go-rda/pkg/log"
	"jinr.ru/greenlab/go-rda/pkg/rda"
)

// DefaultChannelNames is the usual 32 channel cap including ECG
var DefaultChannelNames = []string{
	"Fp1", "Fp2", "F3", "F4", "C3", "C4", "P3", "P4", "O1", "O2", "F7", "F8", "T7", "T8", "P7", "P8",
	"Fz", "Cz", "Pz", "Oz", "FC1", "FC2", "CP1", "CP2", "FC5", "FC6", "CP5", "CP6", "TP9", "TP10", "POz", "ECG",
}

type Options struct {
	ChannelNames       []string
	Resolution         float64
	SamplingIntervalUs float64
	PointsPerBlock     int
	// Blocks to send before the stop message, zero streams until canceled
	Blocks int
	// Realtime paces blocks at the sampling rate, otherwise they are sent back to back
	Realtime bool
	// GapEvery skips one block id every n blocks, zero never skips
	GapEvery int
	// MarkerEvery attaches a stimulus marker every n blocks, zero never
	MarkerEvery int
	SineHz      float64
	// AmplitudeUV is the sine amplitude in microvolts
	AmplitudeUV float64
}

func DefaultOptions() Options {
	return Options{
		ChannelNames:       DefaultChannelNames,
		Resolution:         0.1,
		SamplingIntervalUs: 200,
		PointsPerBlock:     100,
		Realtime:           true,
		SineHz:             10,
		AmplitudeUV:        50,
	}
}

func (o Options) validate() error {
	if len(o.ChannelNames) == 0 {
		return errors.New("simulator needs at least one channel")
	}
	if o.Resolution <= 0 || o.SamplingIntervalUs <= 0 || o.PointsPerBlock < 1 {
		return fmt.Errorf("invalid simulator options: resolution %g, interval %g us, %d points",
			o.Resolution, o.SamplingIntervalUs, o.PointsPerBlock)
	}
	return nil
}

// Simulator is a synthetic RDA server
type Simulator struct {
	opts  Options
	table *rda.ChannelTable
}

func New(opts Options) (*Simulator, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	res := make([]float64, len(opts.ChannelNames))
	for i := range res {
		res[i] = opts.Resolution
	}
	table, err := rda.NewChannelTable(opts.SamplingIntervalUs, res, opts.ChannelNames)
	if err != nil {
		return nil, err
	}
	return &Simulator{opts: opts, table: table}, nil
}

func (s *Simulator) Table() *rda.ChannelTable {
	return s.table
}

// Block builds the raw block with the given sequence number. Channel c
// carries a sine shifted by c/channels of a period.
func (s *Simulator) Block(seq int) *rda.RawBlock {
	channels := int(s.table.ChannelCount)
	points := s.opts.PointsPerBlock
	b := &rda.RawBlock{
		BlockID:          uint32(seq + 1),
		PointsPerChannel: uint32(points),
		Samples:          make([]float32, points*channels),
	}
	dt := s.opts.SamplingIntervalUs * 1e-6
	for p := 0; p < points; p++ {
		t := float64(seq*points+p) * dt
		for c := 0; c < channels; c++ {
			phase := 2 * math.Pi * float64(c) / float64(channels)
			uv := s.opts.AmplitudeUV * math.Sin(2*math.Pi*s.opts.SineHz*t+phase)
			b.Samples[p*channels+c] = float32(uv / s.opts.Resolution)
		}
	}
	if s.opts.MarkerEvery > 0 && seq%s.opts.MarkerEvery == 0 {
		b.Markers = []rda.Marker{{
			Position:    0,
			Points:      1,
			Channel:     -1,
			Kind:        "Stimulus",
			Description: fmt.Sprintf("S%3d", seq/s.opts.MarkerEvery%256),
		}}
	}
	return b
}

// Serve streams one acquisition to w: start, data blocks, stop. On
// cancellation the stream ends without a stop message.
func (s *Simulator) Serve(ctx context.Context, w io.Writer) error {
	msg, err := rda.EncodeStart(s.table)
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}

	var tick <-chan time.Time
	if s.opts.Realtime {
		interval := time.Duration(float64(s.opts.PointsPerBlock) * s.opts.SamplingIntervalUs * float64(time.Microsecond))
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	seq := 0
	for sent := 0; s.opts.Blocks == 0 || sent < s.opts.Blocks; sent++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if s.opts.GapEvery > 0 && sent > 0 && sent%s.opts.GapEvery == 0 {
			log.Debug("Simulated gap at block %d", seq+1)
			seq++
		}
		msg, err := rda.EncodeData(s.table.ChannelCount, s.Block(seq))
		if err != nil {
			return err
		}
		if _, err := w.Write(msg); err != nil {
			return err
		}
		seq++
	}

	msg, err = rda.EncodeStop()
	if err != nil {
		return err
	}
	_, err = w.Write(msg)
	return err
}

// ListenAndServe accepts RDA clients until the context is done. Every
// client gets its own acquisition.
func (s *Simulator) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	log.Info("Simulated RDA server listening on %s", l.Addr())
	return s.ServeListener(ctx, l)
}

func (s *Simulator) ServeListener(ctx context.Context, l net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	go func() {
		<-ctx.Done()
		l.Close()
	}()
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			// unblock writes when the server is stopped
			stop := context.AfterFunc(ctx, func() { conn.Close() })
			defer stop()
			log.Info("RDA client connected: %s", conn.RemoteAddr())
			if err := s.Serve(ctx, conn); err != nil && ctx.Err() == nil {
				log.Warning("RDA client %s: %s", conn.RemoteAddr(), err)
			}
		}()
	}
}
