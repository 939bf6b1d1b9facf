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
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		in      string
		want    ChannelSelection
		wantErr bool
	}{
		{"all", SelectionAll, false},
		{" ALL ", SelectionAll, false},
		{"", SelectionNone, false},
		{"None", SelectionNone, false},
		{"0,2", Subset("0", "2"), false},
		{"C3, Cz ,3", Subset("C3", "Cz", "3"), false},
		{"#0,#2", SubsetIndexes(0, 2), false},
		{"Cz,#1", ChannelSelection{Kind: SelectSubset, Subset: []string{"Cz"}, Indexes: []int{1}}, false},
		{"C3,,C4", ChannelSelection{}, true},
		{"#x", ChannelSelection{}, true},
	}
	for _, tt := range tests {
		got, err := ParseSelection(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSelection(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseSelection(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestResolveSelection(t *testing.T) {
	table := mustTable(t, 200, []float64{1, 1, 1, 1}, []string{"C3", "C4", "Cz", "2"})
	tests := []struct {
		name    string
		sel     ChannelSelection
		want    []int
		wantErr bool
	}{
		{"all", SelectionAll, []int{0, 1, 2, 3}, false},
		{"none", SelectionNone, nil, false},
		{"indexes", SubsetIndexes(0, 2), []int{0, 2}, false},
		{"names", Subset("Cz", "C3"), []int{2, 0}, false},
		{"index ignores numeric name", SubsetIndexes(2, 3), []int{2, 3}, false},
		{"name before index", Subset("2"), []int{3}, false},
		{"unknown name", Subset("Fp1"), nil, true},
		{"out of range", SubsetIndexes(4), nil, true},
		{"negative", SubsetIndexes(-1), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.sel.Resolve(table)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectionString(t *testing.T) {
	tests := []struct {
		sel  ChannelSelection
		want string
	}{
		{SelectionAll, "all"},
		{SelectionNone, "none"},
		{Subset("C3", "Cz"), "C3,Cz"},
		{SubsetIndexes(0, 2), "#0,#2"},
	}
	for _, tt := range tests {
		if got := tt.sel.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFrameSelect(t *testing.T) {
	frame := &DecimatedFrame{
		AcquisitionIndex: 3,
		Channels:         []int{0, 1, 2, 3},
		Names:            []string{"a", "b", "c", "d"},
		Data:             mat.NewDense(2, 4, []float64{0, 1, 2, 3, 10, 11, 12, 13}),
	}
	sub, err := frame.Select([]int{0, 2})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sub.Cols() != 2 || sub.Rows() != 2 {
		t.Fatalf("shape %dx%d, want 2x2", sub.Rows(), sub.Cols())
	}
	want := [][]float64{{0, 2}, {10, 12}}
	for i := range want {
		if got := sub.Row(i); !reflect.DeepEqual(got, want[i]) {
			t.Errorf("row %d = %v, want %v", i, got, want[i])
		}
	}
	if !reflect.DeepEqual(sub.Names, []string{"a", "c"}) || sub.AcquisitionIndex != 3 {
		t.Errorf("unexpected metadata %+v", sub)
	}

	_, err = frame.Select([]int{4})
	var outOfRange ErrChannelOutOfRange
	if !errors.As(err, &outOfRange) {
		t.Errorf("err = %v, want ErrChannelOutOfRange", err)
	}

	empty := &DecimatedFrame{Channels: []int{0, 1}, Names: []string{"a", "b"}}
	sub, err = empty.Select([]int{1})
	if err != nil || sub.Rows() != 0 || sub.Cols() != 1 {
		t.Errorf("empty select %+v, %v", sub, err)
	}
}
