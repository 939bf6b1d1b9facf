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
	"errors"
	"fmt"
	"testing"
)

func TestDecimate(t *testing.T) {
	const (
		points   = 100
		channels = 32
		stride   = 10
	)
	res := make([]float64, channels)
	names := make([]string, channels)
	for c := range res {
		res[c] = 0.1 * float64(c+1)
		names[c] = fmt.Sprintf("Ch%d", c+1)
	}
	table := mustTable(t, 200, res, names)
	block := &RawBlock{BlockID: 7, PointsPerChannel: points, Samples: sequentialSamples(points * channels)}
	all, _ := SelectionAll.Resolve(table)

	d, err := NewDecimator(stride)
	if err != nil {
		t.Fatal(err)
	}
	frame, err := d.Decimate(table, block, all)
	if err != nil {
		t.Fatalf("Decimate: %v", err)
	}
	if frame.Rows() != points/stride || frame.Cols() != channels {
		t.Fatalf("shape %dx%d, want %dx%d", frame.Rows(), frame.Cols(), points/stride, channels)
	}
	for i := 0; i < points/stride; i++ {
		for c := 0; c < channels; c++ {
			want := float64(block.Samples[stride*i*channels+c]) * res[c]
			if got := frame.At(i, c); got != want {
				t.Fatalf("frame[%d][%d] = %v, want %v", i, c, got, want)
			}
		}
	}
	if frame.BlockID != 7 || frame.Names[31] != "Ch32" {
		t.Errorf("frame metadata %d %q", frame.BlockID, frame.Names[31])
	}
}

func TestDecimateShapes(t *testing.T) {
	table := mustTable(t, 200, []float64{1, 2, 3}, []string{"a", "b", "c"})
	tests := []struct {
		name     string
		points   uint32
		stride   int
		channels []int
		rows     int
	}{
		{"tail dropped", 25, 10, []int{0, 1, 2}, 2},
		{"stride one", 4, 1, []int{2}, 4},
		{"fewer points than stride", 3, 10, []int{0}, 0},
		{"no channels", 20, 10, nil, 0},
		{"reordered", 20, 10, []int{2, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := NewDecimator(tt.stride)
			block := &RawBlock{PointsPerChannel: tt.points, Samples: sequentialSamples(int(tt.points) * 3)}
			frame, err := d.Decimate(table, block, tt.channels)
			if err != nil {
				t.Fatalf("Decimate: %v", err)
			}
			if frame.Rows() != tt.rows || frame.Cols() != len(tt.channels) {
				t.Fatalf("shape %dx%d, want %dx%d", frame.Rows(), frame.Cols(), tt.rows, len(tt.channels))
			}
			for i := 0; i < frame.Rows(); i++ {
				for j, c := range tt.channels {
					want := float64(block.Samples[i*tt.stride*3+c]) * table.Resolutions[c]
					if frame.At(i, j) != want {
						t.Errorf("frame[%d][%d] = %v, want %v", i, j, frame.At(i, j), want)
					}
				}
			}
		})
	}
}

func TestDecimateErrors(t *testing.T) {
	table := mustTable(t, 200, []float64{1, 2}, []string{"a", "b"})
	d, _ := NewDecimator(2)

	_, err := d.Decimate(table, &RawBlock{PointsPerChannel: 4, Samples: sequentialSamples(7)}, []int{0})
	var malformed ErrMalformedPayload
	if !errors.As(err, &malformed) {
		t.Errorf("sample count mismatch: err = %v", err)
	}

	_, err = d.Decimate(table, &RawBlock{PointsPerChannel: 4, Samples: sequentialSamples(8)}, []int{2})
	var outOfRange ErrChannelOutOfRange
	if !errors.As(err, &outOfRange) {
		t.Errorf("channel out of range: err = %v", err)
	}

	if _, err := NewDecimator(0); err == nil {
		t.Error("zero stride accepted")
	}
}

func TestStrideFor(t *testing.T) {
	tests := []struct {
		in, out float64
		want    int
	}{
		{5000, 500, 10},
		{1000, 250, 4},
		{500, 500, 1},
		{250, 500, 1},
		{1000, 0, 1},
		{1000, 300, 3},
	}
	for _, tt := range tests {
		if got := StrideFor(tt.in, tt.out); got != tt.want {
			t.Errorf("StrideFor(%v, %v) = %d, want %d", tt.in, tt.out, got, tt.want)
		}
	}
}
