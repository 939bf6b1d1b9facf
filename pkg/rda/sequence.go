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

type ObservationKind int

const (
	ObservedFirst ObservationKind = iota
	ObservedNominal
	ObservedGap
	ObservedAnomaly
)

func (k ObservationKind) String() string {
	switch k {
	case ObservedFirst:
		return "first"
	case ObservedNominal:
		return "nominal"
	case ObservedGap:
		return "gap"
	case ObservedAnomaly:
		return "anomaly"
	}
	return "unknown"
}

// Observation is the result of feeding one block id to the guard
type Observation struct {
	Kind    ObservationKind
	Last    int64
	Current uint32
	// Lost is the number of missing blocks for a gap, zero otherwise
	Lost uint32
}

// Err returns ErrSequenceGap for a gap and nil for everything else
func (o Observation) Err() error {
	if o.Kind != ObservedGap {
		return nil
	}
	return ErrSequenceGap{Last: uint32(o.Last), Current: o.Current, Lost: o.Lost}
}

// SequenceGuard tracks block ids of data messages. It is owned by the
// reader goroutine and is not safe for concurrent use.
type SequenceGuard struct {
	last      int64
	processed uint64
	gaps      uint64
	lost      uint64
	anomalies uint64
}

func NewSequenceGuard() *SequenceGuard {
	return &SequenceGuard{last: -1}
}

// Reset returns the guard to the unseen state. The count of processed
// messages is kept because the acquisition index spans reconnects.
func (g *SequenceGuard) Reset() {
	g.last = -1
}

// Observe records a block id. The guard always moves to the new id.
func (g *SequenceGuard) Observe(blockID uint32) Observation {
	o := Observation{Last: g.last, Current: blockID}
	current := int64(blockID)
	switch {
	case g.last < 0:
		o.Kind = ObservedFirst
	case current-g.last == 1:
		o.Kind = ObservedNominal
	case current-g.last > 1:
		o.Kind = ObservedGap
		o.Lost = uint32(current - g.last - 1)
		g.gaps++
		g.lost += uint64(o.Lost)
	default:
		o.Kind = ObservedAnomaly
		g.anomalies++
	}
	g.last = current
	g.processed++
	return o
}

// LastBlockID is -1 before the first block
func (g *SequenceGuard) LastBlockID() int64 {
	return g.last
}

// Processed is the number of data messages observed so far
func (g *SequenceGuard) Processed() uint64 {
	return g.processed
}

func (g *SequenceGuard) Gaps() uint64 {
	return g.gaps
}

func (g *SequenceGuard) Lost() uint64 {
	return g.lost
}

func (g *SequenceGuard) Anomalies() uint64 {
	return g.anomalies
}
