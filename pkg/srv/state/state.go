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
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-rda/pkg/log"
	"jinr.ru/greenlab/go-rda/pkg/rda"
)

const (
	SessionBucket   = "session"
	GapsBucket      = "gaps"
	ChannelTableKey = "channel_table"
	StartedAtKey    = "started_at"
)

// ErrNotFound returned when a key has never been stored
type ErrNotFound struct {
	What string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("Not found: %s", e.What)
}

// GapRecord is a journal entry for a sequence gap
type GapRecord struct {
	Time             time.Time `json:"time"`
	AcquisitionIndex uint64    `json:"acquisition_index"`
	LastBlockID      uint32    `json:"last_block_id"`
	BlockID          uint32    `json:"block_id"`
	Lost             uint32    `json:"lost"`
}

// channelTable is the stored form of rda.ChannelTable
type channelTable struct {
	SamplingIntervalUs float64   `json:"sampling_interval_us"`
	Resolutions        []float64 `json:"resolutions"`
	ChannelNames       []string  `json:"channel_names"`
}

type State struct {
	context.Context
	DB *bbolt.DB
}

func NewState(ctx context.Context, path string) (*State, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{SessionBucket, GapsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &State{
		Context: ctx,
		DB:      db,
	}, nil
}

// Close ...
func (s *State) Close() error {
	return s.DB.Close()
}

func uint64ToByte(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func (s *State) put(bucket, key string, value interface{}) error {
	valueBytes, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return ErrNotFound{What: "bucket " + bucket}
		}
		return b.Put([]byte(key), valueBytes)
	})
}

func (s *State) get(bucket, key string, value interface{}) error {
	return s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return ErrNotFound{What: "bucket " + bucket}
		}
		valueBytes := b.Get([]byte(key))
		if valueBytes == nil {
			return ErrNotFound{What: key}
		}
		return yaml.Unmarshal(valueBytes, value)
	})
}

// SetChannelTable stores the channel table of the current acquisition
func (s *State) SetChannelTable(t *rda.ChannelTable) error {
	log.Debug("Storing channel table: %d channels", t.ChannelCount)
	if err := s.put(SessionBucket, ChannelTableKey, &channelTable{
		SamplingIntervalUs: t.SamplingIntervalUs,
		Resolutions:        t.Resolutions,
		ChannelNames:       t.ChannelNames,
	}); err != nil {
		return err
	}
	return s.put(SessionBucket, StartedAtKey, time.Now().UTC())
}

// GetChannelTable returns the last stored channel table and when it was stored
func (s *State) GetChannelTable() (*rda.ChannelTable, time.Time, error) {
	var stored channelTable
	if err := s.get(SessionBucket, ChannelTableKey, &stored); err != nil {
		return nil, time.Time{}, err
	}
	var startedAt time.Time
	if err := s.get(SessionBucket, StartedAtKey, &startedAt); err != nil {
		return nil, time.Time{}, err
	}
	t, err := rda.NewChannelTable(stored.SamplingIntervalUs, stored.Resolutions, stored.ChannelNames)
	if err != nil {
		return nil, time.Time{}, err
	}
	return t, startedAt, nil
}

// AddGap appends a record to the gap journal
func (s *State) AddGap(g *GapRecord) error {
	log.Debug("Journal gap: block %d after %d", g.BlockID, g.LastBlockID)
	valueBytes, err := yaml.Marshal(g)
	if err != nil {
		return err
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(GapsBucket))
		if b == nil {
			return ErrNotFound{What: "bucket " + GapsBucket}
		}
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(uint64ToByte(id), valueBytes)
	})
}

// GetGaps returns the journal in insertion order. A positive limit keeps
// only the newest records.
func (s *State) GetGaps(limit int) ([]*GapRecord, error) {
	var gaps []*GapRecord
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(GapsBucket))
		if b == nil {
			return ErrNotFound{What: "bucket " + GapsBucket}
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(gaps) == limit {
				break
			}
			g := &GapRecord{}
			if err := yaml.Unmarshal(v, g); err != nil {
				log.Error("Error while unmarshalling gap record %s", err)
				return err
			}
			gaps = append(gaps, g)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	for i, j := 0, len(gaps)-1; i < j; i, j = i+1, j-1 {
		gaps[i], gaps[j] = gaps[j], gaps[i]
	}
	return gaps, nil
}

// BeginRun prepares the store for a new stream run. The gap journal only
// covers the current run because acquisition indexes restart at zero.
// The channel table is kept until the next start message replaces it.
func (s *State) BeginRun() error {
	log.Debug("Clearing gap journal of the previous run")
	return s.ClearGaps()
}

// ClearGaps empties the journal
func (s *State) ClearGaps() error {
	return s.DB.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(GapsBucket)); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket([]byte(GapsBucket))
		return err
	})
}
