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
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-rda/pkg/layers"
	"jinr.ru/greenlab/go-rda/pkg/log"
)

// Source decodes RDA messages off a byte stream. It must be used from
// a single goroutine except for Close.
type Source struct {
	conn      io.ReadCloser
	reader    *FrameReader
	checkGUID bool

	table *ChannelTable

	header  layers.RDAHeader
	start   layers.RDAStart
	data    layers.RDAData
	stop    layers.RDAStop
	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
	buf     []byte
}

type SourceOption func(*Source)

// WithReadTimeout sets a deadline for every read. Default is no timeout.
func WithReadTimeout(timeout time.Duration) SourceOption {
	return func(s *Source) {
		s.reader.timeout = timeout
	}
}

// WithGUIDCheck makes the source reject headers without the RDA GUID
func WithGUIDCheck(check bool) SourceOption {
	return func(s *Source) {
		s.checkGUID = check
	}
}

var _ ProtocolSource = &Source{}

func NewSource(conn io.ReadCloser, opts ...SourceOption) *Source {
	s := &Source{
		conn:    conn,
		reader:  NewFrameReader(conn, 0),
		decoded: make([]gopacket.LayerType, 0, 2),
	}
	s.parser = gopacket.NewDecodingLayerParser(layers.RDAHeaderLayerType, &s.header, &s.start, &s.data, &s.stop)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to an RDA server, e.g. localhost:51244
func Dial(ctx context.Context, addr string, opts ...SourceOption) (*Source, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	log.Info("Connected to RDA server %s", addr)
	return NewSource(conn, opts...), nil
}

// Table is the channel table of the last start message, nil before it
func (s *Source) Table() *ChannelTable {
	return s.table
}

func (s *Source) Close() error {
	return s.conn.Close()
}

// DecodeNext reads and decodes one message. An unknown message type is
// returned as ErrUnknownMessageType with a nil message, its payload is
// consumed so decoding can go on.
func (s *Source) DecodeNext() (Message, error) {
	if cap(s.buf) < layers.RDAHeaderSize {
		s.buf = make([]byte, layers.RDAHeaderSize, 4096)
	}
	s.buf = s.buf[:layers.RDAHeaderSize]
	if err := s.reader.Fill(s.buf); err != nil {
		return nil, err
	}
	if err := s.header.DecodeHeaderFields(s.buf); err != nil {
		return nil, ErrMalformedHeader{What: err.Error()}
	}
	if s.checkGUID && !s.header.ValidGUID() {
		return nil, ErrMalformedHeader{What: fmt.Sprintf("unexpected GUID %08x %08x %08x %08x",
			uint32(s.header.ID1), uint32(s.header.ID2), uint32(s.header.ID3), uint32(s.header.ID4))}
	}

	size := int(s.header.MsgSize)
	if cap(s.buf) < size {
		grown := make([]byte, size)
		copy(grown, s.buf)
		s.buf = grown
	}
	s.buf = s.buf[:size]
	if err := s.reader.Fill(s.buf[layers.RDAHeaderSize:]); err != nil {
		return nil, err
	}

	msgType := s.header.Type
	log.Debug("RDA message %s, size %d", msgType, size)
	switch msgType {
	case layers.MessageTypeStop:
		return &StopMessage{}, nil
	case layers.MessageTypeData:
		if s.table == nil {
			return nil, ErrChannelTableMissing{}
		}
		s.data.ChannelCount = s.table.ChannelCount
	case layers.MessageTypeStart:
	default:
		return nil, ErrUnknownMessageType{Type: uint32(msgType), Size: s.header.MsgSize}
	}

	if err := s.parser.DecodeLayers(s.buf, &s.decoded); err != nil {
		return nil, decodeError(err)
	}
	if len(s.decoded) < 2 {
		return nil, ErrMalformedPayload{What: fmt.Sprintf("empty %s payload", msgType)}
	}

	switch msgType {
	case layers.MessageTypeStart:
		table, err := NewChannelTable(s.start.SamplingIntervalUs, s.start.Resolutions, s.start.ChannelNames)
		if err != nil {
			return nil, err
		}
		s.table = table
		return &StartMessage{Table: table}, nil
	default:
		return &DataMessage{Block: s.block()}, nil
	}
}

// block copies the data layer out, the layer is reused for the next message
func (s *Source) block() *RawBlock {
	b := &RawBlock{
		BlockID:          s.data.BlockID,
		PointsPerChannel: s.data.Points,
		Samples:          s.data.Samples,
	}
	if len(s.data.Markers) > 0 {
		b.Markers = make([]Marker, len(s.data.Markers))
		for i, m := range s.data.Markers {
			b.Markers[i] = Marker{
				Position:    m.Position,
				Points:      m.Points,
				Channel:     m.Channel,
				Kind:        m.Kind,
				Description: m.Description,
			}
		}
	}
	return b
}

func decodeError(err error) error {
	var malformed layers.ErrMalformed
	if !errors.As(err, &malformed) {
		return ErrMalformedPayload{What: err.Error()}
	}
	if malformed.Layer == "RDA header" {
		return ErrMalformedHeader{What: malformed.What}
	}
	return ErrMalformedPayload{What: malformed.Layer + ": " + malformed.What}
}
