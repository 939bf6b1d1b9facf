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

package sink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"jinr.ru/greenlab/go-rda/pkg/dispatch"
	"jinr.ru/greenlab/go-rda/pkg/log"
)

const timestampLayout = "20060102_150405"

// CSVSink writes save records one line per decimated row:
// index,time,ch1,ch2,... Text records are written as they are with
// exactly one trailing newline. With no file open records are discarded.
type CSVSink struct {
	mu       sync.Mutex
	file     *os.File
	w        *bufio.Writer
	filename string
	// last text record, repeated at the head of every new file
	header string
	line   []byte
	now    func() time.Time
}

func NewCSVSink() *CSVSink {
	return &CSVSink{now: time.Now}
}

// PersistFilename builds <dir>/<prefix>_<timestamp>.csv
func PersistFilename(dir, prefix string, t time.Time) string {
	filename := fmt.Sprintf("%s.csv", t.UTC().Format(timestampLayout))
	if prefix != "" {
		filename = fmt.Sprintf("%s_%s", prefix, filename)
	}
	return filepath.Join(dir, filename)
}

// Persist closes the current file, if any, and starts a new one
func (s *CSVSink) Persist(dir, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	filename := PersistFilename(dir, prefix, s.now())
	if err := s.closeFile(); err != nil {
		log.Error("Error while closing file: %s", s.filename)
	}
	file, err := os.Create(filename)
	if err != nil {
		log.Error("Error while creating file: %s", filename)
		return "", err
	}
	log.Info("Persist save data: %s", filename)
	s.file = file
	s.filename = filename
	s.w = bufio.NewWriter(file)
	if s.header != "" {
		if err := s.writeText(s.header); err != nil {
			return filename, err
		}
	}
	return filename, nil
}

// Flush closes the current file. Records are discarded until the next Persist.
func (s *CSVSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file != nil {
		log.Info("Flush save data: %s", s.filename)
	}
	return s.closeFile()
}

// Filename is the file being written, empty if none
func (s *CSVSink) Filename() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filename
}

func (s *CSVSink) closeFile() error {
	if s.file == nil {
		return nil
	}
	err := s.w.Flush()
	if syncErr := s.file.Sync(); err == nil {
		err = syncErr
	}
	if closeErr := s.file.Close(); err == nil {
		err = closeErr
	}
	s.file = nil
	s.w = nil
	s.filename = ""
	return err
}

func (s *CSVSink) Save(rec dispatch.SaveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Frame == nil {
		s.header = rec.Text
	}
	if s.file == nil {
		return nil
	}
	if rec.Frame == nil {
		if err := s.writeText(rec.Text); err != nil {
			return err
		}
		return s.w.Flush()
	}

	var prefix []byte
	if rec.Index != nil {
		prefix = strconv.AppendUint(prefix, *rec.Index, 10)
		prefix = append(prefix, ',')
	}
	if rec.Time != nil {
		prefix = strconv.AppendFloat(prefix, *rec.Time, 'f', 6, 64)
		prefix = append(prefix, ',')
	}
	frame := rec.Frame
	for i := 0; i < frame.Rows(); i++ {
		s.line = append(s.line[:0], prefix...)
		for j := 0; j < frame.Cols(); j++ {
			if j > 0 {
				s.line = append(s.line, ',')
			}
			s.line = strconv.AppendFloat(s.line, frame.At(i, j), 'g', -1, 64)
		}
		s.line = append(s.line, '\n')
		if _, err := s.w.Write(s.line); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

func (s *CSVSink) writeText(text string) error {
	if _, err := s.w.WriteString(text); err != nil {
		return err
	}
	if !strings.HasSuffix(text, "\n") {
		return s.w.WriteByte('\n')
	}
	return nil
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeFile()
}
