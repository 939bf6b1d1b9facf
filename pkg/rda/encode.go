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
	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-rda/pkg/layers"
)

var serializeOptions = gopacket.SerializeOptions{FixLengths: true}

func serialize(msgType layers.MessageType, payload ...gopacket.SerializableLayer) ([]byte, error) {
	header := &layers.RDAHeader{Type: msgType}
	header.SetGUID()
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, serializeOptions, append([]gopacket.SerializableLayer{header}, payload...)...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeStart builds a complete start message for the table
func EncodeStart(t *ChannelTable) ([]byte, error) {
	return serialize(layers.MessageTypeStart, &layers.RDAStart{
		ChannelCount:       t.ChannelCount,
		SamplingIntervalUs: t.SamplingIntervalUs,
		Resolutions:        t.Resolutions,
		ChannelNames:       t.ChannelNames,
	})
}

// EncodeData builds a complete data message. channelCount must match the
// sample layout of the block.
func EncodeData(channelCount uint32, b *RawBlock) ([]byte, error) {
	data := &layers.RDAData{
		ChannelCount: channelCount,
		BlockID:      b.BlockID,
		Points:       b.PointsPerChannel,
		MarkerCount:  uint32(len(b.Markers)),
		Samples:      b.Samples,
	}
	for _, m := range b.Markers {
		data.Markers = append(data.Markers, layers.RDAMarker{
			Position:    m.Position,
			Points:      m.Points,
			Channel:     m.Channel,
			Kind:        m.Kind,
			Description: m.Description,
		})
	}
	return serialize(layers.MessageTypeData, data)
}

func EncodeStop() ([]byte, error) {
	return serialize(layers.MessageTypeStop)
}
