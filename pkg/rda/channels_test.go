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
	"strings"
	"testing"
)

func TestNewChannelTable(t *testing.T) {
	tests := []struct {
		name  string
		res   []float64
		names []string
	}{
		{"zero channels", nil, nil},
		{"missing names", []float64{1, 1}, []string{"C3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChannelTable(200, tt.res, tt.names)
			var malformed ErrMalformedPayload
			if !errors.As(err, &malformed) {
				t.Errorf("err = %v, want ErrMalformedPayload", err)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	table := mustTable(t, 200, []float64{0.1, 1, 0.0000001}, []string{"C3", "C4", "Cz"})
	got := table.Describe(SubjectInfo{Name: "S01", ExperimentNumber: "3"}, 10)
	want := []string{
		"Subject Name,\tS01",
		"Subject Tracking Number,\tNone",
		"Experiment Number,\t3",
		"Number of channels,\t3",
		"Sampling interval,\t200 microseconds (0.0002 seconds)",
		"Original Sampling Frequency,\t5000 Hz",
		"Downsampled Sampling Frequency,\t500 Hz",
		"Resolutions,\t,\t[0.1, 1.0, 1e-07]",
		"Channel Names,\t,\t['C3', 'C4', 'Cz']",
		"",
	}
	if lines := strings.Split(got, "\n"); strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("got\n%s\nwant\n%s", got, strings.Join(want, "\n"))
	}
}
