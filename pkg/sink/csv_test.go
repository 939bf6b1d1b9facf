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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"jinr.ru/greenlab/go-rda/pkg/dispatch"
	"jinr.ru/greenlab/go-rda/pkg/rda"
)

func testFrame(index uint64) *rda.DecimatedFrame {
	return &rda.DecimatedFrame{
		AcquisitionIndex: index,
		ReceivedAt:       time.Unix(1700000000, 250000000),
		Channels:         []int{0, 1},
		Names:            []string{"C3", "C4"},
		Data:             mat.NewDense(2, 2, []float64{1, -0.5, 2.25, 3}),
	}
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return string(b)
}

func TestCSVSink(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSink()
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }

	// discarded, but remembered as the header
	if err := s.Save(dispatch.TextRecord("Number of channels,\t2")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(dispatch.FrameRecord(testFrame(0))); err != nil {
		t.Fatal(err)
	}

	filename, err := s.Persist(dir, "subject1")
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if want := filepath.Join(dir, "subject1_20240301_123000.csv"); filename != want {
		t.Errorf("filename %s, want %s", filename, want)
	}
	if err := s.Save(dispatch.FrameRecord(testFrame(1))); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(dispatch.SaveRecord{Text: "already terminated\n"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if s.Filename() != "" {
		t.Errorf("file still open after flush: %s", s.Filename())
	}
	// discarded after flush
	if err := s.Save(dispatch.FrameRecord(testFrame(2))); err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"Number of channels,\t2",
		"1,1700000000.250000,1,-0.5",
		"1,1700000000.250000,2.25,3",
		"already terminated",
		"",
	}, "\n")
	if got := readFile(t, filename); got != want {
		t.Errorf("file content:\n%q\nwant:\n%q", got, want)
	}
}

func TestCSVSinkRotate(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVSink()
	calls := 0
	s.now = func() time.Time {
		calls++
		return time.Date(2024, 3, 1, 12, 30, calls, 0, time.UTC)
	}
	first, err := s.Persist(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(dispatch.TextRecord("meta")); err != nil {
		t.Fatal(err)
	}
	second, err := s.Persist(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if first == second || filepath.Base(first) != "20240301_123001.csv" {
		t.Fatalf("filenames %s %s", first, second)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, first); got != "meta\n" {
		t.Errorf("first file %q", got)
	}
	if got := readFile(t, second); got != "meta\n" {
		t.Errorf("header not repeated in rotated file: %q", got)
	}
}
