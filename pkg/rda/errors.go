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
)

// ErrConnectionBroken returned when the transport closes before a read is complete
type ErrConnectionBroken struct {
	Want int
	Got  int
	Err  error
}

func (e ErrConnectionBroken) Error() string {
	return fmt.Sprintf("Connection broken: read %d of %d bytes: %v", e.Got, e.Want, e.Err)
}

func (e ErrConnectionBroken) Unwrap() error {
	return e.Err
}

// ErrMalformedHeader returned when the message header contradicts itself
type ErrMalformedHeader struct {
	What string
}

func (e ErrMalformedHeader) Error() string {
	return fmt.Sprintf("Malformed RDA header: %s", e.What)
}

// ErrMalformedPayload returned when a payload is inconsistent with its declared sizes
type ErrMalformedPayload struct {
	What string
}

func (e ErrMalformedPayload) Error() string {
	return fmt.Sprintf("Malformed RDA payload: %s", e.What)
}

// ErrUnknownMessageType returned for message types other than start, data and stop.
// The payload has already been consumed, so the stream is still in sync.
type ErrUnknownMessageType struct {
	Type uint32
	Size uint32
}

func (e ErrUnknownMessageType) Error() string {
	return fmt.Sprintf("Unknown RDA message type %d (size %d)", e.Type, e.Size)
}

// ErrSequenceGap reports lost blocks between two data messages
type ErrSequenceGap struct {
	Last    uint32
	Current uint32
	Lost    uint32
}

func (e ErrSequenceGap) Error() string {
	return fmt.Sprintf("Sequence gap: block %d after %d, %d blocks lost", e.Current, e.Last, e.Lost)
}

// ErrChannelTableMissing returned for a data message received before any start message
type ErrChannelTableMissing struct{}

func (e ErrChannelTableMissing) Error() string {
	return "Data message received before start message, channel table is missing"
}

// IsFatal tells whether the session must end after the error.
// Decode errors are fatal because framing can not be trusted after them.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var unknown ErrUnknownMessageType
	var gap ErrSequenceGap
	return !errors.As(err, &unknown) && !errors.As(err, &gap)
}
