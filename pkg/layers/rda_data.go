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

package layers

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	rdaDataFixedSize = 12
	// record size, position, points, channel
	RDAMarkerFixedSize = 16
)

// RDAMarker is an annotated event inside a data message
type RDAMarker struct {
	Position    uint32
	Points      uint32
	Channel     int32 // -1 applies to all channels
	Kind        string
	Description string
}

// RecordSize is the on-wire size of the marker record
func (m *RDAMarker) RecordSize() int {
	return RDAMarkerFixedSize + len(m.Kind) + 1 + len(m.Description) + 1
}

// RDAData is a block of samples, sample index outer, channel index inner.
// ChannelCount is not on the wire, it must be set from the start message
// before decoding.
type RDAData struct {
	layers.BaseLayer
	ChannelCount uint32

	BlockID     uint32
	Points      uint32
	MarkerCount uint32
	Samples     []float32
	Markers     []RDAMarker
}

func (d *RDAData) LayerType() gopacket.LayerType {
	return RDADataLayerType
}

func (d *RDAData) CanDecode() gopacket.LayerClass {
	return RDADataLayerType
}

func (d *RDAData) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func malformedData(format string, v ...interface{}) error {
	return ErrMalformed{Layer: "RDA data", What: fmt.Sprintf(format, v...)}
}

func decodeMarker(data []byte) (RDAMarker, int, error) {
	if len(data) < 4 {
		return RDAMarker{}, 0, malformedData("marker record size truncated: %d bytes left", len(data))
	}
	size := binary.LittleEndian.Uint32(data[0:4])
	if size < RDAMarkerFixedSize {
		return RDAMarker{}, 0, malformedData("marker record size %d is less than %d", size, RDAMarkerFixedSize)
	}
	if uint64(size) > uint64(len(data)) {
		return RDAMarker{}, 0, malformedData("marker record size %d exceeds %d bytes left", size, len(data))
	}
	m := RDAMarker{
		Position: binary.LittleEndian.Uint32(data[4:8]),
		Points:   binary.LittleEndian.Uint32(data[8:12]),
		Channel:  int32(binary.LittleEndian.Uint32(data[12:16])),
	}
	// kind and description must fill the rest of the record exactly
	strs := data[RDAMarkerFixedSize:size]
	kindEnd := bytes.IndexByte(strs, 0)
	if kindEnd < 0 {
		return RDAMarker{}, 0, malformedData("marker type is not terminated within record size %d", size)
	}
	descEnd := bytes.IndexByte(strs[kindEnd+1:], 0)
	if descEnd < 0 {
		return RDAMarker{}, 0, malformedData("marker description is not terminated within record size %d", size)
	}
	if kindEnd+1+descEnd+1 != len(strs) {
		return RDAMarker{}, 0, malformedData("marker record size %d, strings occupy %d bytes",
			size, kindEnd+1+descEnd+1)
	}
	m.Kind = string(strs[:kindEnd])
	m.Description = string(strs[kindEnd+1 : kindEnd+1+descEnd])
	return m, int(size), nil
}

func (d *RDAData) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if d.ChannelCount == 0 {
		return ErrChannelCountUnset{}
	}
	if len(data) < rdaDataFixedSize {
		df.SetTruncated()
		return malformedData("%d bytes, need at least %d", len(data), rdaDataFixedSize)
	}
	blockID := binary.LittleEndian.Uint32(data[0:4])
	points := binary.LittleEndian.Uint32(data[4:8])
	markerCount := binary.LittleEndian.Uint32(data[8:12])

	sampleCount := uint64(points) * uint64(d.ChannelCount)
	markersOffset := uint64(rdaDataFixedSize) + 4*sampleCount
	if uint64(len(data)) < markersOffset {
		df.SetTruncated()
		return malformedData("%d points x %d channels do not fit into %d bytes", points, d.ChannelCount, len(data))
	}

	samples := make([]float32, sampleCount)
	for i := range samples {
		offset := rdaDataFixedSize + 4*i
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset : offset+4]))
	}

	// marker count is bounded by the remaining bytes, each record has at least 16
	rest := data[markersOffset:]
	if uint64(markerCount)*RDAMarkerFixedSize > uint64(len(rest)) {
		return malformedData("%d markers do not fit into %d bytes", markerCount, len(rest))
	}
	markers := make([]RDAMarker, 0, markerCount)
	for i := uint32(0); i < markerCount; i++ {
		m, n, err := decodeMarker(rest)
		if err != nil {
			return err
		}
		markers = append(markers, m)
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return malformedData("%d trailing bytes after %d markers", len(rest), markerCount)
	}

	d.BlockID = blockID
	d.Points = points
	d.MarkerCount = markerCount
	d.Samples = samples
	d.Markers = markers
	d.BaseLayer = layers.BaseLayer{Contents: data, Payload: nil}
	return nil
}

func (d *RDAData) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if opts.FixLengths {
		d.MarkerCount = uint32(len(d.Markers))
	}
	if uint64(len(d.Samples)) != uint64(d.Points)*uint64(d.ChannelCount) {
		return malformedData("%d samples for %d points x %d channels", len(d.Samples), d.Points, d.ChannelCount)
	}
	if int(d.MarkerCount) != len(d.Markers) {
		return malformedData("marker count %d, have %d markers", d.MarkerCount, len(d.Markers))
	}

	size := rdaDataFixedSize + 4*len(d.Samples)
	for i := range d.Markers {
		size += d.Markers[i].RecordSize()
	}
	out, err := b.PrependBytes(size)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(out[0:4], d.BlockID)
	binary.LittleEndian.PutUint32(out[4:8], d.Points)
	binary.LittleEndian.PutUint32(out[8:12], d.MarkerCount)
	offset := rdaDataFixedSize
	for _, v := range d.Samples {
		binary.LittleEndian.PutUint32(out[offset:offset+4], math.Float32bits(v))
		offset += 4
	}
	for i := range d.Markers {
		m := &d.Markers[i]
		binary.LittleEndian.PutUint32(out[offset:offset+4], uint32(m.RecordSize()))
		binary.LittleEndian.PutUint32(out[offset+4:offset+8], m.Position)
		binary.LittleEndian.PutUint32(out[offset+8:offset+12], m.Points)
		binary.LittleEndian.PutUint32(out[offset+12:offset+16], uint32(m.Channel))
		offset += RDAMarkerFixedSize
		offset += copy(out[offset:], m.Kind)
		out[offset] = 0
		offset++
		offset += copy(out[offset:], m.Description)
		out[offset] = 0
		offset++
	}
	return nil
}

// DataDecoder returns a decoder for data layers of an acquisition with
// the given number of channels.
func DataDecoder(channelCount uint32) gopacket.Decoder {
	return gopacket.DecodeFunc(func(data []byte, p gopacket.PacketBuilder) error {
		d := &RDAData{ChannelCount: channelCount}
		if err := d.DecodeFromBytes(data, p); err != nil {
			return err
		}
		p.AddLayer(d)
		return nil
	})
}
