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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const rdaStartFixedSize = 12

// RDAStart carries the channel metadata of an acquisition
type RDAStart struct {
	layers.BaseLayer
	ChannelCount       uint32
	SamplingIntervalUs float64
	Resolutions        []float64
	ChannelNames       []string
}

func (s *RDAStart) LayerType() gopacket.LayerType {
	return RDAStartLayerType
}

func (s *RDAStart) CanDecode() gopacket.LayerClass {
	return RDAStartLayerType
}

func (s *RDAStart) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func (s *RDAStart) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < rdaStartFixedSize {
		df.SetTruncated()
		return ErrMalformed{Layer: "RDA start", What: fmt.Sprintf("%d bytes, need at least %d", len(data), rdaStartFixedSize)}
	}
	count := binary.LittleEndian.Uint32(data[0:4])
	namesOffset := uint64(rdaStartFixedSize) + 8*uint64(count)
	if uint64(len(data)) < namesOffset {
		df.SetTruncated()
		return ErrMalformed{Layer: "RDA start", What: fmt.Sprintf("%d channels do not fit into %d bytes", count, len(data))}
	}

	resolutions := make([]float64, count)
	for c := range resolutions {
		offset := rdaStartFixedSize + 8*c
		resolutions[c] = math.Float64frombits(binary.LittleEndian.Uint64(data[offset : offset+8]))
	}

	names := splitStrings(data[namesOffset:])
	if uint64(len(names)) < uint64(count) {
		return ErrMalformed{Layer: "RDA start", What: fmt.Sprintf("%d channel names for %d channels", len(names), count)}
	}

	s.ChannelCount = count
	s.SamplingIntervalUs = math.Float64frombits(binary.LittleEndian.Uint64(data[4:12]))
	s.Resolutions = resolutions
	s.ChannelNames = names[:count]
	s.BaseLayer = layers.BaseLayer{Contents: data, Payload: nil}
	return nil
}

func (s *RDAStart) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if opts.FixLengths {
		s.ChannelCount = uint32(len(s.Resolutions))
	}
	if int(s.ChannelCount) != len(s.Resolutions) || int(s.ChannelCount) != len(s.ChannelNames) {
		return ErrMalformed{Layer: "RDA start", What: fmt.Sprintf("channel count %d, %d resolutions, %d names",
			s.ChannelCount, len(s.Resolutions), len(s.ChannelNames))}
	}

	var names []byte
	for _, name := range s.ChannelNames {
		names = appendString(names, name)
	}

	bytes, err := b.PrependBytes(rdaStartFixedSize + 8*len(s.Resolutions) + len(names))
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(bytes[0:4], s.ChannelCount)
	binary.LittleEndian.PutUint64(bytes[4:12], math.Float64bits(s.SamplingIntervalUs))
	for c, r := range s.Resolutions {
		offset := rdaStartFixedSize + 8*c
		binary.LittleEndian.PutUint64(bytes[offset:offset+8], math.Float64bits(r))
	}
	copy(bytes[rdaStartFixedSize+8*len(s.Resolutions):], names)
	return nil
}

func decodeRDAStart(data []byte, p gopacket.PacketBuilder) error {
	s := &RDAStart{}
	if err := s.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(s)
	return nil
}
