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
	"fmt"
	"strconv"
	"strings"
)

type SelectionKind int

const (
	SelectNone SelectionKind = iota
	SelectAll
	SelectSubset
)

// ChannelSelection picks the channels of an output path. Subset entries are
// channel names or indexes as typed by the user, Indexes are channel
// positions and never looked up by name.
type ChannelSelection struct {
	Kind    SelectionKind
	Subset  []string
	Indexes []int
}

var (
	SelectionNone = ChannelSelection{Kind: SelectNone}
	SelectionAll  = ChannelSelection{Kind: SelectAll}
)

func Subset(channels ...string) ChannelSelection {
	return ChannelSelection{Kind: SelectSubset, Subset: channels}
}

func SubsetIndexes(indexes ...int) ChannelSelection {
	return ChannelSelection{Kind: SelectSubset, Indexes: indexes}
}

// ErrInvalidSelection returned when a selection can not be parsed or resolved
type ErrInvalidSelection struct {
	What string
}

func (e ErrInvalidSelection) Error() string {
	return fmt.Sprintf("Invalid channel selection: %s", e.What)
}

// ErrChannelOutOfRange returned when a channel index is not in the table
type ErrChannelOutOfRange struct {
	Channel int
	Count   int
}

func (e ErrChannelOutOfRange) Error() string {
	return fmt.Sprintf("Channel %d out of range, have %d channels", e.Channel, e.Count)
}

// ParseSelection accepts "all", "none" (or empty), or a comma separated
// list of channel names and indexes. An entry "#n" is channel n by
// position only, its column follows the other entries.
func ParseSelection(s string) (ChannelSelection, error) {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "", "none":
		return SelectionNone, nil
	case "all":
		return SelectionAll, nil
	}
	var channels []string
	var indexes []int
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return ChannelSelection{}, ErrInvalidSelection{What: fmt.Sprintf("empty entry in %q", s)}
		}
		if strings.HasPrefix(part, "#") {
			idx, err := strconv.Atoi(part[1:])
			if err != nil {
				return ChannelSelection{}, ErrInvalidSelection{What: fmt.Sprintf("bad index %q", part)}
			}
			indexes = append(indexes, idx)
			continue
		}
		channels = append(channels, part)
	}
	sel := SubsetIndexes(indexes...)
	sel.Subset = channels
	return sel, nil
}

func (s ChannelSelection) Enabled() bool {
	return s.Kind != SelectNone
}

func (s ChannelSelection) String() string {
	switch s.Kind {
	case SelectAll:
		return "all"
	case SelectSubset:
		parts := append([]string(nil), s.Subset...)
		for _, idx := range s.Indexes {
			parts = append(parts, "#"+strconv.Itoa(idx))
		}
		return strings.Join(parts, ",")
	default:
		return "none"
	}
}

// Resolve maps the selection to channel indexes of the table. A Subset
// entry is looked up as a name first, so a channel literally named "3" wins
// over index 3. Indexes are taken as is.
func (s ChannelSelection) Resolve(t *ChannelTable) ([]int, error) {
	switch s.Kind {
	case SelectNone:
		return nil, nil
	case SelectAll:
		all := make([]int, t.ChannelCount)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	if len(s.Subset) == 0 && len(s.Indexes) == 0 {
		return nil, ErrInvalidSelection{What: "empty subset"}
	}
	count := int(t.ChannelCount)
	result := make([]int, 0, len(s.Subset)+len(s.Indexes))
	for _, ch := range s.Subset {
		if idx, ok := t.Index(ch); ok {
			result = append(result, idx)
			continue
		}
		idx, err := strconv.Atoi(ch)
		if err != nil {
			return nil, ErrInvalidSelection{What: fmt.Sprintf("unknown channel %q", ch)}
		}
		if idx < 0 || idx >= count {
			return nil, ErrChannelOutOfRange{Channel: idx, Count: count}
		}
		result = append(result, idx)
	}
	for _, idx := range s.Indexes {
		if idx < 0 || idx >= count {
			return nil, ErrChannelOutOfRange{Channel: idx, Count: count}
		}
		result = append(result, idx)
	}
	return result, nil
}
