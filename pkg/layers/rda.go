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

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// RDAHeaderLayerNum identifies the layer
	RDAHeaderLayerNum = 2100
	RDAStartLayerNum  = 2101
	RDADataLayerNum   = 2102
	RDAStopLayerNum   = 2103
	// RDAUnknownLayerNum is the next layer of a header with unsupported message type
	RDAUnknownLayerNum = 2104

	// RDAHeaderSize is the size of the fixed message header. MsgSize counts it.
	RDAHeaderSize = 24
	// RDAMaxMessageSize bounds MsgSize so a corrupt header can not make the
	// reader allocate gigabytes before any payload arrives.
	RDAMaxMessageSize = 64 << 20
)

// RDA GUID {4358458E-C996-4C86-AF4A-98BBF6C91450} read as four little endian int32.
const (
	RDAGUID1 int32 = 0x4358458E
	RDAGUID2 int32 = 0x4C86C996
	RDAGUID3 int32 = -0x4467B551 // 0xBB984AAF
	RDAGUID4 int32 = 0x5014C9F6
)

type MessageType uint32

const (
	MessageTypeStart MessageType = 1
	MessageTypeStop  MessageType = 3
	MessageTypeData  MessageType = 4
)

var (
	RDAHeaderLayerType = gopacket.RegisterLayerType(RDAHeaderLayerNum,
		gopacket.LayerTypeMetadata{Name: "RDAHeader", Decoder: gopacket.DecodeFunc(decodeRDAHeader)})
	RDAStartLayerType = gopacket.RegisterLayerType(RDAStartLayerNum,
		gopacket.LayerTypeMetadata{Name: "RDAStart", Decoder: gopacket.DecodeFunc(decodeRDAStart)})
	RDADataLayerType = gopacket.RegisterLayerType(RDADataLayerNum,
		gopacket.LayerTypeMetadata{Name: "RDAData", Decoder: DataDecoder(0)})
	RDAStopLayerType = gopacket.RegisterLayerType(RDAStopLayerNum,
		gopacket.LayerTypeMetadata{Name: "RDAStop", Decoder: gopacket.DecodeFunc(decodeRDAStop)})
	RDAUnknownLayerType = gopacket.RegisterLayerType(RDAUnknownLayerNum,
		gopacket.LayerTypeMetadata{Name: "RDAUnknown", Decoder: gopacket.DecodePayload})
)

var messageTypeMetadata = map[MessageType]layers.EnumMetadata{
	MessageTypeStart: {Name: "Start", LayerType: RDAStartLayerType},
	MessageTypeStop:  {Name: "Stop", LayerType: RDAStopLayerType},
	MessageTypeData:  {Name: "Data", LayerType: RDADataLayerType},
}

// Known reports whether the message type has a payload layer.
func (t MessageType) Known() bool {
	_, ok := messageTypeMetadata[t]
	return ok
}

// LayerType returns the payload layer type for the message type
func (t MessageType) LayerType() gopacket.LayerType {
	if m, ok := messageTypeMetadata[t]; ok {
		return m.LayerType
	}
	return RDAUnknownLayerType
}

func (t MessageType) String() string {
	if m, ok := messageTypeMetadata[t]; ok {
		return m.Name
	}
	return fmt.Sprintf("Unknown(%d)", uint32(t))
}

// ErrMalformed returned when the byte layout of a layer contradicts its declared sizes
type ErrMalformed struct {
	Layer string
	What  string
}

func (e ErrMalformed) Error() string {
	return fmt.Sprintf("Malformed %s: %s", e.Layer, e.What)
}

// ErrChannelCountUnset returned when a data layer is decoded before the
// channel count from the start message is known
type ErrChannelCountUnset struct{}

func (e ErrChannelCountUnset) Error() string {
	return "Data layer can not be decoded w/o channel count"
}

type RDAHeader struct {
	layers.BaseLayer
	ID1, ID2, ID3, ID4 int32
	MsgSize            uint32
	Type               MessageType
}

// LayerType returns the type of the RDA header layer in the layer catalog
func (h *RDAHeader) LayerType() gopacket.LayerType {
	return RDAHeaderLayerType
}

func (h *RDAHeader) CanDecode() gopacket.LayerClass {
	return RDAHeaderLayerType
}

func (h *RDAHeader) NextLayerType() gopacket.LayerType {
	return h.Type.LayerType()
}

// ValidGUID reports whether the four identification words carry the RDA GUID
func (h *RDAHeader) ValidGUID() bool {
	return h.ID1 == RDAGUID1 && h.ID2 == RDAGUID2 && h.ID3 == RDAGUID3 && h.ID4 == RDAGUID4
}

// SetGUID fills the identification words with the RDA GUID
func (h *RDAHeader) SetGUID() {
	h.ID1, h.ID2, h.ID3, h.ID4 = RDAGUID1, RDAGUID2, RDAGUID3, RDAGUID4
}

// PayloadSize is the number of bytes which follow the header
func (h *RDAHeader) PayloadSize() int {
	return int(h.MsgSize) - RDAHeaderSize
}

// DecodeHeaderFields decodes the fixed 24 bytes w/o looking at the payload.
// It is used when the payload has not been read from the wire yet.
func (h *RDAHeader) DecodeHeaderFields(data []byte) error {
	if len(data) < RDAHeaderSize {
		return ErrMalformed{Layer: "RDA header", What: fmt.Sprintf("%d bytes, need %d", len(data), RDAHeaderSize)}
	}
	h.ID1 = int32(binary.LittleEndian.Uint32(data[0:4]))
	h.ID2 = int32(binary.LittleEndian.Uint32(data[4:8]))
	h.ID3 = int32(binary.LittleEndian.Uint32(data[8:12]))
	h.ID4 = int32(binary.LittleEndian.Uint32(data[12:16]))
	h.MsgSize = binary.LittleEndian.Uint32(data[16:20])
	h.Type = MessageType(binary.LittleEndian.Uint32(data[20:24]))
	if h.MsgSize < RDAHeaderSize {
		return ErrMalformed{Layer: "RDA header", What: fmt.Sprintf("message size %d is less than header size", h.MsgSize)}
	}
	if h.MsgSize > RDAMaxMessageSize {
		return ErrMalformed{Layer: "RDA header", What: fmt.Sprintf("message size %d exceeds %d", h.MsgSize, RDAMaxMessageSize)}
	}
	return nil
}

// DecodeFromBytes decodes the header of a complete message (header and payload)
func (h *RDAHeader) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < RDAHeaderSize {
		df.SetTruncated()
	}
	if err := h.DecodeHeaderFields(data); err != nil {
		return err
	}
	if uint64(len(data)) < uint64(h.MsgSize) {
		df.SetTruncated()
		return ErrMalformed{Layer: "RDA header", What: fmt.Sprintf("message size %d, have %d bytes", h.MsgSize, len(data))}
	}
	h.BaseLayer = layers.BaseLayer{
		Contents: data[:RDAHeaderSize],
		Payload:  data[RDAHeaderSize:h.MsgSize],
	}
	return nil
}

// SerializeTo prepends the header. With FixLengths MsgSize covers everything
// already in the buffer plus the header itself.
func (h *RDAHeader) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	payloadLen := len(b.Bytes())
	bytes, err := b.PrependBytes(RDAHeaderSize)
	if err != nil {
		return err
	}
	if opts.FixLengths {
		h.MsgSize = uint32(RDAHeaderSize + payloadLen)
	}
	binary.LittleEndian.PutUint32(bytes[0:4], uint32(h.ID1))
	binary.LittleEndian.PutUint32(bytes[4:8], uint32(h.ID2))
	binary.LittleEndian.PutUint32(bytes[8:12], uint32(h.ID3))
	binary.LittleEndian.PutUint32(bytes[12:16], uint32(h.ID4))
	binary.LittleEndian.PutUint32(bytes[16:20], h.MsgSize)
	binary.LittleEndian.PutUint32(bytes[20:24], uint32(h.Type))
	return nil
}

func decodeRDAHeader(data []byte, p gopacket.PacketBuilder) error {
	h := &RDAHeader{}
	if err := h.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(h)
	if len(h.Payload) == 0 {
		return nil
	}
	return p.NextDecoder(h.NextLayerType())
}

// RDAStop is the empty payload of a stop message
type RDAStop struct {
	layers.BaseLayer
}

func (s *RDAStop) LayerType() gopacket.LayerType {
	return RDAStopLayerType
}

func (s *RDAStop) CanDecode() gopacket.LayerClass {
	return RDAStopLayerType
}

func (s *RDAStop) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

func (s *RDAStop) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	s.BaseLayer = layers.BaseLayer{Contents: []byte{}, Payload: data}
	return nil
}

func (s *RDAStop) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	return nil
}

func decodeRDAStop(data []byte, p gopacket.PacketBuilder) error {
	s := &RDAStop{}
	if err := s.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(s)
	return nil
}

// splitStrings splits a block of NUL terminated strings. Bytes after the
// last NUL do not form a string.
func splitStrings(raw []byte) []string {
	var result []string
	start := 0
	for i, c := range raw {
		if c == 0 {
			result = append(result, string(raw[start:i]))
			start = i + 1
		}
	}
	return result
}

func appendString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	return append(buf, 0)
}
