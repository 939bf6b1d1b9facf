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
	"time"

	"gonum.org/v1/gonum/mat"
)

// DecimatedFrame holds scaled samples of one block, a row per time sample
// and a column per selected channel. Data is nil when the block had fewer
// points than the decimation stride.
type DecimatedFrame struct {
	AcquisitionIndex uint64
	BlockID          uint32
	ReceivedAt       time.Time
	Channels         []int
	Names            []string
	Data             *mat.Dense
}

func (f *DecimatedFrame) Rows() int {
	if f.Data == nil {
		return 0
	}
	r, _ := f.Data.Dims()
	return r
}

func (f *DecimatedFrame) Cols() int {
	return len(f.Channels)
}

func (f *DecimatedFrame) At(row, col int) float64 {
	return f.Data.At(row, col)
}

// Row copies one time sample of all columns
func (f *DecimatedFrame) Row(i int) []float64 {
	return mat.Row(nil, i, f.Data)
}

// Select returns a frame with the given columns of f, in the given order.
// Columns index f's columns, not amplifier channels.
func (f *DecimatedFrame) Select(cols []int) (*DecimatedFrame, error) {
	out := &DecimatedFrame{
		AcquisitionIndex: f.AcquisitionIndex,
		BlockID:          f.BlockID,
		ReceivedAt:       f.ReceivedAt,
		Channels:         make([]int, len(cols)),
		Names:            make([]string, len(cols)),
	}
	for j, c := range cols {
		if c < 0 || c >= f.Cols() {
			return nil, ErrChannelOutOfRange{Channel: c, Count: f.Cols()}
		}
		out.Channels[j] = f.Channels[c]
		if c < len(f.Names) {
			out.Names[j] = f.Names[c]
		}
	}
	rows := f.Rows()
	if rows == 0 || len(cols) == 0 {
		return out, nil
	}
	out.Data = mat.NewDense(rows, len(cols), nil)
	for j, c := range cols {
		for i := 0; i < rows; i++ {
			out.Data.Set(i, j, f.Data.At(i, c))
		}
	}
	return out, nil
}

// Record is the wire form of a frame for live consumers (JSON, msgpack)
type Record struct {
	Index    uint64      `json:"index" msgpack:"index"`
	BlockID  uint32      `json:"block_id" msgpack:"block_id"`
	Time     float64     `json:"time" msgpack:"time"`
	Channels []string    `json:"channels" msgpack:"channels"`
	Samples  [][]float64 `json:"samples" msgpack:"samples"`
}

func (f *DecimatedFrame) Record() Record {
	rows := f.Rows()
	samples := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		samples[i] = f.Row(i)
	}
	return Record{
		Index:    f.AcquisitionIndex,
		BlockID:  f.BlockID,
		Time:     UnixSeconds(f.ReceivedAt),
		Channels: f.Names,
		Samples:  samples,
	}
}

// UnixSeconds is the wall clock time format of save records
func UnixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}
