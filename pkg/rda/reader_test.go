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
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

func TestFrameReader(t *testing.T) {
	payload := []byte("0123456789")
	fr := NewFrameReader(iotest.OneByteReader(bytes.NewReader(payload)), 0)

	buf := make([]byte, 4)
	if err := fr.Fill(buf); err != nil || string(buf) != "0123" {
		t.Fatalf("Fill(4) = %q, %v", buf, err)
	}
	if err := fr.Fill(nil); err != nil {
		t.Fatalf("Fill(0) = %v", err)
	}
	err := fr.Fill(make([]byte, 10))
	var broken ErrConnectionBroken
	if !errors.As(err, &broken) {
		t.Fatalf("err = %v, want ErrConnectionBroken", err)
	}
	if broken.Want != 10 || broken.Got != 6 || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("unexpected error %+v", broken)
	}
	if IsTimeout(err) {
		t.Error("EOF reported as timeout")
	}
}
