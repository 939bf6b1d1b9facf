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
	"io"
	"net"
	"time"
)

// FrameReader reads exact byte counts off the transport.
// It keeps no buffer of its own, callers ask for sizes taken from headers.
type FrameReader struct {
	r       io.Reader
	timeout time.Duration
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// NewFrameReader wraps a transport. A positive timeout is applied to every
// read if the transport supports deadlines, zero blocks forever.
func NewFrameReader(r io.Reader, timeout time.Duration) *FrameReader {
	return &FrameReader{r: r, timeout: timeout}
}

// Fill reads exactly len(dst) bytes.
func (fr *FrameReader) Fill(dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	if fr.timeout > 0 {
		if d, ok := fr.r.(deadliner); ok {
			if err := d.SetReadDeadline(time.Now().Add(fr.timeout)); err != nil {
				return ErrConnectionBroken{Want: len(dst), Err: err}
			}
		}
	}
	n, err := io.ReadFull(fr.r, dst)
	if err != nil {
		return ErrConnectionBroken{Want: len(dst), Got: n, Err: err}
	}
	return nil
}

// IsTimeout reports whether a broken connection was caused by the read timeout
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
