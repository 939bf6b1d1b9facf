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
	"sync"
	"sync/atomic"
)

// Index locates a point of the acquisition stream. Acquisition counts data
// messages from zero and spans reconnects. LastBlockID is -1 before the first block.
type Index struct {
	Acquisition uint64 `json:"acquisition_index"`
	LastBlockID int64  `json:"last_block_id"`
	Valid       bool   `json:"valid"`
}

// Publisher shares the current acquisition index with other goroutines.
// There is one writer, the session reader. Subscribers get the latest value
// only, a slow subscriber never holds the writer back.
type Publisher struct {
	current atomic.Pointer[Index]

	mu   sync.Mutex
	subs map[uint64]chan Index
	next uint64
}

// DefaultPublisher is updated by sessions unless they are given their own publisher
var DefaultPublisher = NewPublisher()

func NewPublisher() *Publisher {
	p := &Publisher{subs: make(map[uint64]chan Index)}
	p.current.Store(&Index{LastBlockID: -1})
	return p
}

// Load returns the last published index
func (p *Publisher) Load() Index {
	return *p.current.Load()
}

// Publish stores idx and notifies subscribers
func (p *Publisher) Publish(idx Index) {
	idx.Valid = true
	p.current.Store(&idx)

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- idx:
		default:
			// replace the stale value
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- idx:
			default:
			}
		}
	}
}

// Subscribe returns a channel with the newest index and a cancel func which
// closes it.
func (p *Publisher) Subscribe() (<-chan Index, func()) {
	ch := make(chan Index, 1)
	p.mu.Lock()
	id := p.next
	p.next++
	p.subs[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
			close(ch)
		})
	}
}
