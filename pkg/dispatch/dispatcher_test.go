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
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gonum.org/v1/gonum/mat"

	"jinr.ru/greenlab/go-rda/pkg/metrics"
	"jinr.ru/greenlab/go-rda/pkg/rda"
)

type recordingSink struct {
	mu      sync.Mutex
	records []SaveRecord
	frames  []*rda.DecimatedFrame
	closed  bool
	block   chan struct{}
}

func (s *recordingSink) Save(rec SaveRecord) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingSink) Live(frame *rda.DecimatedFrame) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func fourChannelTable(t *testing.T) *rda.ChannelTable {
	t.Helper()
	table, err := rda.NewChannelTable(200, []float64{1, 1, 1, 1}, []string{"C3", "C4", "Cz", "Pz"})
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func fullFrame(index uint64) *rda.DecimatedFrame {
	return &rda.DecimatedFrame{
		AcquisitionIndex: index,
		ReceivedAt:       time.Unix(1700000000, 500000000),
		Channels:         []int{0, 1, 2, 3},
		Names:            []string{"C3", "C4", "Cz", "Pz"},
		Data:             mat.NewDense(2, 4, []float64{0, 1, 2, 3, 10, 11, 12, 13}),
	}
}

func TestDispatchSelections(t *testing.T) {
	save := &recordingSink{}
	live := &recordingSink{}
	d := New(Options{
		Save:          rda.SelectionAll,
		Live:          rda.SubsetIndexes(0, 2),
		SaveQueueSize: 8,
		LiveQueueSize: 8,
	}, save, live, metrics.NewMetrics())
	if err := d.Configure(fourChannelTable(t)); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	d.DispatchText("header\n")
	d.Dispatch(fullFrame(0))
	d.Close()

	if len(live.frames) != 1 {
		t.Fatalf("live got %d frames", len(live.frames))
	}
	lf := live.frames[0]
	if lf.Cols() != 2 || !reflect.DeepEqual(lf.Channels, []int{0, 2}) {
		t.Fatalf("live columns %v", lf.Channels)
	}
	if !reflect.DeepEqual(lf.Row(0), []float64{0, 2}) || !reflect.DeepEqual(lf.Row(1), []float64{10, 12}) {
		t.Errorf("live rows %v %v", lf.Row(0), lf.Row(1))
	}

	if len(save.records) != 2 {
		t.Fatalf("save got %d records", len(save.records))
	}
	if text := save.records[0]; text.Text != "header\n" || text.Index != nil || text.Time != nil {
		t.Errorf("unexpected text record %+v", text)
	}
	rec := save.records[1]
	if rec.Index == nil || *rec.Index != 0 || rec.Time == nil || *rec.Time != 1700000000.5 {
		t.Errorf("unexpected frame record %+v", rec)
	}
	if rec.Frame.Cols() != 4 {
		t.Errorf("save columns %d, want 4", rec.Frame.Cols())
	}
	if !save.closed || !live.closed {
		t.Error("sinks not closed")
	}
}

func TestDispatchDropsWhenFull(t *testing.T) {
	m := metrics.NewMetrics()
	save := &recordingSink{block: make(chan struct{})}
	live := &recordingSink{}
	d := New(Options{
		Save:          rda.SelectionAll,
		Live:          rda.SelectionAll,
		SaveQueueSize: 1,
		LiveQueueSize: 16,
	}, save, live, m)
	if err := d.Configure(fourChannelTable(t)); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		for i := uint64(0); i < 10; i++ {
			d.Dispatch(fullFrame(i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a stalled save sink")
	}

	// the live path is not held back by the save path
	deadline := time.Now().Add(time.Second)
	for {
		live.mu.Lock()
		n := len(live.frames)
		live.mu.Unlock()
		if n == 10 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("live got %d frames, want 10", n)
		}
		time.Sleep(time.Millisecond)
	}

	close(save.block)
	d.Close()

	dropped := testutil.ToFloat64(m.FramesDropped.WithLabelValues(PathSave))
	if dropped < 8 || int(dropped)+len(save.records) != 10 {
		t.Errorf("dropped %v, saved %d", dropped, len(save.records))
	}
	for i := 1; i < len(save.records); i++ {
		if *save.records[i].Index <= *save.records[i-1].Index {
			t.Errorf("save order broken: %d after %d", *save.records[i].Index, *save.records[i-1].Index)
		}
	}
}

func TestDispatchAfterClose(t *testing.T) {
	save := &recordingSink{}
	live := &recordingSink{}
	d := New(Options{Save: rda.SelectionAll, Live: rda.SelectionAll}, save, live, metrics.NewMetrics())
	if err := d.Configure(fourChannelTable(t)); err != nil {
		t.Fatal(err)
	}
	d.Dispatch(fullFrame(0))
	d.Close()
	d.Dispatch(fullFrame(1))
	d.DispatchText("late")
	d.Close()

	if len(save.records) != 1 || len(live.frames) != 1 {
		t.Errorf("got %d save records and %d live frames after close", len(save.records), len(live.frames))
	}
}

func TestDispatchDisabledPath(t *testing.T) {
	save := &recordingSink{}
	live := &recordingSink{}
	d := New(Options{Save: rda.SelectionNone, Live: rda.Subset("Pz")}, save, live, metrics.NewMetrics())
	if !save.closed {
		t.Error("disabled save sink not closed")
	}
	if err := d.Configure(fourChannelTable(t)); err != nil {
		t.Fatal(err)
	}
	d.DispatchText("ignored")
	d.Dispatch(fullFrame(0))
	d.Close()

	if len(save.records) != 0 {
		t.Errorf("disabled path got %d records", len(save.records))
	}
	if len(live.frames) != 1 || !reflect.DeepEqual(live.frames[0].Names, []string{"Pz"}) {
		t.Errorf("live frames %+v", live.frames)
	}
}

func TestConfigureUnknownChannel(t *testing.T) {
	d := New(Options{Save: rda.Subset("Fp1")}, &recordingSink{}, nil, metrics.NewMetrics())
	defer d.Close()
	if err := d.Configure(fourChannelTable(t)); err == nil {
		t.Fatal("unknown channel accepted")
	}
}
