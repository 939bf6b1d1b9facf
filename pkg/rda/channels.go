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
	"strconv"
	"strings"
)

// ChannelTable is built once from a start message and is read only after that.
type ChannelTable struct {
	ChannelCount       uint32    `json:"channel_count"`
	SamplingIntervalUs float64   `json:"sampling_interval_us"`
	Resolutions        []float64 `json:"resolutions"`
	ChannelNames       []string  `json:"channel_names"`

	index map[string]int
}

func NewChannelTable(samplingIntervalUs float64, resolutions []float64, names []string) (*ChannelTable, error) {
	if len(resolutions) == 0 {
		return nil, ErrMalformedPayload{What: "start message declares zero channels"}
	}
	if len(resolutions) != len(names) {
		return nil, ErrMalformedPayload{What: fmt.Sprintf("%d resolutions for %d channel names", len(resolutions), len(names))}
	}
	t := &ChannelTable{
		ChannelCount:       uint32(len(resolutions)),
		SamplingIntervalUs: samplingIntervalUs,
		Resolutions:        append([]float64(nil), resolutions...),
		ChannelNames:       append([]string(nil), names...),
		index:              make(map[string]int, len(names)),
	}
	for i, name := range names {
		// the first channel wins for duplicated names
		if _, ok := t.index[name]; !ok {
			t.index[name] = i
		}
	}
	return t, nil
}

// Index returns the channel index by name
func (t *ChannelTable) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// SamplingRateHz is the amplifier output rate
func (t *ChannelTable) SamplingRateHz() float64 {
	if t.SamplingIntervalUs <= 0 {
		return 0
	}
	return 1e6 / t.SamplingIntervalUs
}

// Describe renders the acquisition metadata which goes to the head of a save file.
func (t *ChannelTable) Describe(subject SubjectInfo, stride int) string {
	intervalSec := t.SamplingIntervalUs / 1e6
	rate := t.SamplingRateHz()
	var b strings.Builder
	fmt.Fprintf(&b, "Subject Name,\t%s\n", orNone(subject.Name))
	fmt.Fprintf(&b, "Subject Tracking Number,\t%s\n", orNone(subject.TrackingNumber))
	fmt.Fprintf(&b, "Experiment Number,\t%s\n", orNone(subject.ExperimentNumber))
	fmt.Fprintf(&b, "Number of channels,\t%d\n", t.ChannelCount)
	fmt.Fprintf(&b, "Sampling interval,\t%g microseconds (%g seconds)\n", t.SamplingIntervalUs, intervalSec)
	fmt.Fprintf(&b, "Original Sampling Frequency,\t%g Hz\n", rate)
	if stride > 0 {
		fmt.Fprintf(&b, "Downsampled Sampling Frequency,\t%g Hz\n", rate/float64(stride))
	}
	fmt.Fprintf(&b, "Resolutions,\t,\t%s\n", floatList(t.Resolutions))
	fmt.Fprintf(&b, "Channel Names,\t,\t%s\n", quotedList(t.ChannelNames))
	return b.String()
}

// floatList renders values the way existing save file readers expect them:
// [0.1, 1.0]
func floatList(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		f := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(f, ".eIN") {
			f += ".0"
		}
		parts[i] = f
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// quotedList renders names as ['C3', 'C4']
func quotedList(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = "'" + v + "'"
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// SubjectInfo is free form experiment metadata written with the channel table
type SubjectInfo struct {
	Name             string
	TrackingNumber   string
	ExperimentNumber string
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
