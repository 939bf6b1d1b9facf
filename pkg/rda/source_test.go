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

package rda

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"net"
	"testing"
	"time"

	"jinr.ru/greenlab/go-rda/pkg/layers"
)

func rawMessage(msgType uint32, payload []byte) []byte {
	msg := make([]byte, layers.RDAHeaderSize, layers.RDAHeaderSize+len(payload))
	guid := []int32{layers.RDAGUID1, layers.RDAGUID2, layers.RDAGUID3, layers.RDAGUID4}
	for i, word := range guid {
		binary.LittleEndian.PutUint32(msg[i*4:i*4+4], uint32(word))
	}
	binary.LittleEndian.PutUint32(msg[16:20], uint32(layers.RDAHeaderSize+len(payload)))
	binary.LittleEndian.PutUint32(msg[20:24], msgType)
	return append(msg, payload...)
}

func mustTable(t *testing.T, interval float64, res []float64, names []string) *ChannelTable {
	t.Helper()
	table, err := NewChannelTable(interval, res, names)
	if err != nil {
		t.Fatalf("NewChannelTable: %v", err)
	}
	return table
}

func mustEncode(t *testing.T) func(msg []byte, err error) []byte {
	return func(msg []byte, err error) []byte {
		t.Helper()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return msg
	}
}

func sequentialSamples(n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(i)
	}
	return samples
}

func newTestSource(stream ...[]byte) *Source {
	return NewSource(io.NopCloser(bytes.NewReader(bytes.Join(stream, nil))), WithGUIDCheck(true))
}

func TestSourceStartDataStop(t *testing.T) {
	table := mustTable(t, 200, []float64{1.0, 0.5}, []string{"C3", "C4"})
	block := &RawBlock{
		BlockID:          1,
		PointsPerChannel: 10,
		Samples:          sequentialSamples(20),
		Markers: []Marker{
			{Position: 3, Points: 1, Channel: -1, Kind: "Stimulus", Description: "S  1"},
		},
	}
	src := newTestSource(
		mustEncode(t)(EncodeStart(table)),
		mustEncode(t)(EncodeData(2, block)),
		mustEncode(t)(EncodeStop()),
	)

	msg, err := src.DecodeNext()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	start, ok := msg.(*StartMessage)
	if !ok {
		t.Fatalf("got %T, want *StartMessage", msg)
	}
	if start.Table.ChannelCount != 2 || start.Table.SamplingIntervalUs != 200 {
		t.Errorf("unexpected table %+v", start.Table)
	}
	if idx, ok := start.Table.Index("C4"); !ok || idx != 1 {
		t.Errorf("Index(C4) = %d, %v", idx, ok)
	}

	msg, err = src.DecodeNext()
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	data, ok := msg.(*DataMessage)
	if !ok {
		t.Fatalf("got %T, want *DataMessage", msg)
	}
	if data.Block.BlockID != 1 || data.Block.PointsPerChannel != 10 || len(data.Block.Samples) != 20 {
		t.Errorf("unexpected block %+v", data.Block)
	}
	if len(data.Block.Markers) != 1 || data.Block.Markers[0] != block.Markers[0] {
		t.Errorf("markers = %+v, want %+v", data.Block.Markers, block.Markers)
	}

	d, _ := NewDecimator(5)
	frame, err := d.Decimate(start.Table, data.Block, []int{0, 1})
	if err != nil {
		t.Fatalf("Decimate: %v", err)
	}
	want := [][]float64{
		{float64(data.Block.Samples[0]) * 1.0, float64(data.Block.Samples[1]) * 0.5},
		{float64(data.Block.Samples[10]) * 1.0, float64(data.Block.Samples[11]) * 0.5},
	}
	if frame.Rows() != 2 || frame.Cols() != 2 {
		t.Fatalf("frame shape %dx%d, want 2x2", frame.Rows(), frame.Cols())
	}
	for i := range want {
		for j := range want[i] {
			if frame.At(i, j) != want[i][j] {
				t.Errorf("frame[%d][%d] = %v, want %v", i, j, frame.At(i, j), want[i][j])
			}
		}
	}

	msg, err = src.DecodeNext()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, ok := msg.(*StopMessage); !ok {
		t.Fatalf("got %T, want *StopMessage", msg)
	}
}

func TestSourceStartRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		res   []float64
		names []string
	}{
		{"single", []float64{0.1}, []string{"Fp1"}},
		{"empty name", []float64{0.1, 10}, []string{"", "EOG"}},
		{"unicode", []float64{0.5, 0.5, 0.049}, []string{"C3", "Cz", "µV"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := mustTable(t, 1000, tt.res, tt.names)
			msg, err := newTestSource(mustEncode(t)(EncodeStart(table))).DecodeNext()
			if err != nil {
				t.Fatalf("DecodeNext: %v", err)
			}
			got := msg.(*StartMessage).Table
			if got.ChannelCount != table.ChannelCount {
				t.Errorf("count = %d, want %d", got.ChannelCount, table.ChannelCount)
			}
			for i := range tt.res {
				if got.Resolutions[i] != tt.res[i] || got.ChannelNames[i] != tt.names[i] {
					t.Errorf("channel %d = %v %q, want %v %q", i, got.Resolutions[i], got.ChannelNames[i], tt.res[i], tt.names[i])
				}
			}
		})
	}
}

func TestSourceDataBeforeStart(t *testing.T) {
	block := &RawBlock{BlockID: 1, PointsPerChannel: 1, Samples: []float32{1}}
	_, err := newTestSource(mustEncode(t)(EncodeData(1, block))).DecodeNext()
	var missing ErrChannelTableMissing
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want ErrChannelTableMissing", err)
	}
	if !IsFatal(err) {
		t.Error("missing channel table must be fatal")
	}
}

func TestSourceSkipsUnknownType(t *testing.T) {
	table := mustTable(t, 200, []float64{1}, []string{"C3"})
	src := newTestSource(
		rawMessage(10000, []byte{1, 2, 3, 4, 5}),
		mustEncode(t)(EncodeStart(table)),
	)
	msg, err := src.DecodeNext()
	var unknown ErrUnknownMessageType
	if !errors.As(err, &unknown) || msg != nil {
		t.Fatalf("got %v, %v, want ErrUnknownMessageType", msg, err)
	}
	if unknown.Type != 10000 || unknown.Size != layers.RDAHeaderSize+5 {
		t.Errorf("unexpected error %+v", unknown)
	}
	if IsFatal(err) {
		t.Error("unknown message type must not be fatal")
	}
	msg, err = src.DecodeNext()
	if err != nil {
		t.Fatalf("after unknown: %v", err)
	}
	if _, ok := msg.(*StartMessage); !ok {
		t.Fatalf("got %T, want *StartMessage", msg)
	}
}

func dataPayload(blockID, points, markerCount uint32, samples []float32, markers ...[]byte) []byte {
	payload := make([]byte, 12)
	binary.LittleEndian.PutUint32(payload[0:4], blockID)
	binary.LittleEndian.PutUint32(payload[4:8], points)
	binary.LittleEndian.PutUint32(payload[8:12], markerCount)
	for _, v := range samples {
		payload = binary.LittleEndian.AppendUint32(payload, math.Float32bits(v))
	}
	for _, m := range markers {
		payload = append(payload, m...)
	}
	return payload
}

func markerRecord(size uint32, strs string) []byte {
	rec := make([]byte, 16)
	binary.LittleEndian.PutUint32(rec[0:4], size)
	binary.LittleEndian.PutUint32(rec[12:16], math.MaxUint32)
	return append(rec, strs...)
}

func TestSourceMalformed(t *testing.T) {
	start := mustEncode(t)(EncodeStart(mustTable(t, 200, []float64{1}, []string{"C3"})))
	tests := []struct {
		name   string
		stream [][]byte
		header bool
	}{
		{
			name:   "marker record shorter than fixed part",
			stream: [][]byte{start, rawMessage(4, dataPayload(1, 1, 1, []float32{1}, markerRecord(8, "ab\x00cd\x00")))},
		},
		{
			name:   "marker record size past strings",
			stream: [][]byte{start, rawMessage(4, dataPayload(1, 1, 1, []float32{1}, markerRecord(30, "ab\x00cd\x00")))},
		},
		{
			name:   "marker without second string",
			stream: [][]byte{start, rawMessage(4, dataPayload(1, 1, 1, []float32{1}, markerRecord(19, "ab\x00")))},
		},
		{
			name:   "samples cut short",
			stream: [][]byte{start, rawMessage(4, dataPayload(1, 4, 0, []float32{1, 2}))},
		},
		{
			name:   "trailing bytes",
			stream: [][]byte{start, rawMessage(4, append(dataPayload(1, 1, 0, []float32{1}), 0xff))},
		},
		{
			name:   "empty data payload",
			stream: [][]byte{start, rawMessage(4, nil)},
		},
		{
			name:   "zero channels",
			stream: [][]byte{rawMessage(1, make([]byte, 12))},
		},
		{
			name:   "message size below header size",
			stream: [][]byte{func() []byte { m := rawMessage(3, nil); binary.LittleEndian.PutUint32(m[16:20], 10); return m }()},
			header: true,
		},
		{
			name:   "message size near 4 GiB",
			stream: [][]byte{func() []byte { m := rawMessage(4, nil); binary.LittleEndian.PutUint32(m[16:20], 0xfffffff0); return m }()},
			header: true,
		},
		{
			name:   "foreign GUID",
			stream: [][]byte{func() []byte { m := rawMessage(3, nil); m[0] ^= 0xff; return m }()},
			header: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newTestSource(tt.stream...)
			var err error
			for i := 0; i < len(tt.stream) && err == nil; i++ {
				_, err = src.DecodeNext()
			}
			if tt.header {
				var want ErrMalformedHeader
				if !errors.As(err, &want) {
					t.Fatalf("err = %v, want ErrMalformedHeader", err)
				}
			} else {
				var want ErrMalformedPayload
				if !errors.As(err, &want) {
					t.Fatalf("err = %v, want ErrMalformedPayload", err)
				}
			}
			if !IsFatal(err) {
				t.Error("malformed message must be fatal")
			}
		})
	}
}

func TestSourceConnectionBroken(t *testing.T) {
	stop := mustEncode(t)(EncodeStop())
	tests := []struct {
		name   string
		stream []byte
	}{
		{"empty stream", nil},
		{"short header", stop[:10]},
		{"short payload", rawMessage(10000, []byte{1, 2, 3})[:26]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestSource(tt.stream).DecodeNext()
			var broken ErrConnectionBroken
			if !errors.As(err, &broken) {
				t.Fatalf("err = %v, want ErrConnectionBroken", err)
			}
			if !IsFatal(err) {
				t.Error("broken connection must be fatal")
			}
		})
	}
}

func TestSourceReadTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	src := NewSource(client, WithReadTimeout(20*time.Millisecond))
	defer src.Close()

	_, err := src.DecodeNext()
	if !IsTimeout(err) {
		t.Fatalf("err = %v, want a timeout", err)
	}
}

func TestSourceCloseUnblocks(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	src := NewSource(client)

	errc := make(chan error, 1)
	go func() {
		_, err := src.DecodeNext()
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	src.Close()

	select {
	case err := <-errc:
		var broken ErrConnectionBroken
		if !errors.As(err, &broken) {
			t.Fatalf("err = %v, want ErrConnectionBroken", err)
		}
	case <-time.After(time.Second):
		t.Fatal("DecodeNext did not return after Close")
	}
}
