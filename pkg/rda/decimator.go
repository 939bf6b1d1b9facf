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
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Decimator subsamples raw blocks by a fixed stride. There is no low pass
// filter, so content above the new Nyquist frequency aliases. Points past
// the last full stride are dropped.
type Decimator struct {
	stride int
}

func NewDecimator(stride int) (*Decimator, error) {
	if stride < 1 {
		return nil, fmt.Errorf("decimation stride must be positive, got %d", stride)
	}
	return &Decimator{stride: stride}, nil
}

// StrideFor derives the stride from an input and a target output rate,
// e.g. 5000 Hz to 500 Hz is 10. It never returns less than 1.
func StrideFor(inputHz, outputHz float64) int {
	if outputHz <= 0 || inputHz <= outputHz {
		return 1
	}
	return int(inputHz / outputHz)
}

func (d *Decimator) Stride() int {
	return d.stride
}

// Decimate scales every stride-th sample of the selected channels.
// Rows of the result are time samples and columns follow the order of channels.
func (d *Decimator) Decimate(table *ChannelTable, block *RawBlock, channels []int) (*DecimatedFrame, error) {
	count := int(table.ChannelCount)
	points := int(block.PointsPerChannel)
	if len(block.Samples) != points*count {
		return nil, ErrMalformedPayload{What: fmt.Sprintf("%d samples for %d points of %d channels", len(block.Samples), points, count)}
	}
	frame := &DecimatedFrame{
		BlockID:  block.BlockID,
		Channels: make([]int, len(channels)),
		Names:    make([]string, len(channels)),
	}
	for j, c := range channels {
		if c < 0 || c >= count {
			return nil, ErrChannelOutOfRange{Channel: c, Count: count}
		}
		frame.Channels[j] = c
		frame.Names[j] = table.ChannelNames[c]
	}
	rows := points / d.stride
	if rows == 0 || len(channels) == 0 {
		return frame, nil
	}
	data := make([]float64, rows*len(channels))
	for i := 0; i < rows; i++ {
		for j, c := range channels {
			data[i*len(channels)+j] = float64(block.Sample(i*d.stride, c, table.ChannelCount)) * table.Resolutions[c]
		}
	}
	frame.Data = mat.NewDense(rows, len(channels), data)
	return frame, nil
}

// DecimateAt is Decimate plus the acquisition index and receive time
func (d *Decimator) DecimateAt(table *ChannelTable, block *RawBlock, channels []int, index uint64, at time.Time) (*DecimatedFrame, error) {
	frame, err := d.Decimate(table, block, channels)
	if err != nil {
		return nil, err
	}
	frame.AcquisitionIndex = index
	frame.ReceivedAt = at
	return frame, nil
}
