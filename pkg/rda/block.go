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

// Marker is an annotated event at a sample position of a block
type Marker struct {
	Position    uint32 `json:"position"`
	Points      uint32 `json:"points"`
	Channel     int32  `json:"channel"` // -1 applies to all channels
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// AllChannels reports whether the marker is not bound to a single channel
func (m Marker) AllChannels() bool {
	return m.Channel < 0
}

// RawBlock is the content of one data message. Samples are laid out
// sample index outer, channel index inner.
type RawBlock struct {
	BlockID          uint32
	PointsPerChannel uint32
	Samples          []float32
	Markers          []Marker
}

// Sample returns the raw value of a channel at a point
func (b *RawBlock) Sample(point, channel int, channelCount uint32) float32 {
	return b.Samples[point*int(channelCount)+channel]
}
