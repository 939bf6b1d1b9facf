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

package dispatch

import (
	"errors"

	"jinr.ru/greenlab/go-rda/pkg/rda"
)

// SaveRecord is a unit of the save path. Text records (acquisition
// metadata) have neither index nor time.
type SaveRecord struct {
	Index *uint64
	Time  *float64
	Text  string
	Frame *rda.DecimatedFrame
}

func TextRecord(text string) SaveRecord {
	return SaveRecord{Text: text}
}

func FrameRecord(frame *rda.DecimatedFrame) SaveRecord {
	index := frame.AcquisitionIndex
	t := rda.UnixSeconds(frame.ReceivedAt)
	return SaveRecord{Index: &index, Time: &t, Frame: frame}
}

// SaveSink consumes save records on the save goroutine. It may block on disk I/O.
type SaveSink interface {
	Save(rec SaveRecord) error
	Close() error
}

// LiveSink consumes decimated frames on the live goroutine
type LiveSink interface {
	Live(frame *rda.DecimatedFrame) error
	Close() error
}

// LiveSinks fans a frame out to several live sinks
type LiveSinks []LiveSink

func (s LiveSinks) Live(frame *rda.DecimatedFrame) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Live(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s LiveSinks) Close() error {
	var errs []error
	for _, sink := range s {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
