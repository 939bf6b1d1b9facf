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

package state

import (
	"sync"

	"jinr.ru/greenlab/go-rda/pkg/log"
	"jinr.ru/greenlab/go-rda/pkg/rda"
)

type journalEntry struct {
	gap   *GapRecord
	table *rda.ChannelTable
}

// Journal moves state writes off the reader goroutine. Writes are queued
// and dropped with a warning if the queue is full.
type Journal struct {
	state *State
	queue chan journalEntry
	wg    sync.WaitGroup
	once  sync.Once
}

func NewJournal(s *State, size int) *Journal {
	if size < 1 {
		size = 1
	}
	j := &Journal{state: s, queue: make(chan journalEntry, size)}
	j.wg.Add(1)
	go j.run()
	return j
}

func (j *Journal) run() {
	defer j.wg.Done()
	for e := range j.queue {
		var err error
		if e.gap != nil {
			err = j.state.AddGap(e.gap)
		} else {
			err = j.state.SetChannelTable(e.table)
		}
		if err != nil {
			log.Error("State journal: %s", err)
		}
	}
}

func (j *Journal) push(e journalEntry) bool {
	select {
	case j.queue <- e:
		return true
	default:
		log.Warning("State journal queue is full, entry dropped")
		return false
	}
}

func (j *Journal) Gap(g *GapRecord) bool {
	return j.push(journalEntry{gap: g})
}

func (j *Journal) ChannelTable(t *rda.ChannelTable) bool {
	return j.push(journalEntry{table: t})
}

// Close writes the queued entries and stops the journal. The state is left open.
func (j *Journal) Close() {
	j.once.Do(func() {
		close(j.queue)
	})
	j.wg.Wait()
}
