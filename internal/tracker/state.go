package tracker

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Layouts accepted when reading timestamps. Older state files were written
// without a zone designator; those are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

type PriceObservation struct {
	Timestamp time.Time
	Price     int
}

type observationJSON struct {
	Timestamp string `json:"timestamp"`
	Price     int    `json:"price"`
}

func (o PriceObservation) MarshalJSON() ([]byte, error) {
	return json.Marshal(observationJSON{
		Timestamp: o.Timestamp.UTC().Format(time.RFC3339),
		Price:     o.Price,
	})
}

func (o *PriceObservation) UnmarshalJSON(data []byte) error {
	var raw observationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return err
	}

	o.Timestamp = ts
	o.Price = raw.Price
	return nil
}

func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// PriceHistory maps a listing id to its observations, oldest first.
type PriceHistory map[string][]PriceObservation

func (h PriceHistory) Last(id string) (PriceObservation, bool) {
	obs := h[id]
	if len(obs) == 0 {
		return PriceObservation{}, false
	}
	return obs[len(obs)-1], true
}

// SeenSet holds ids that were already announced as new.
type SeenSet map[string]struct{}

func (s SeenSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s SeenSet) Add(id string) {
	s[id] = struct{}{}
}

// IDs returns the members sorted, for stable output.
func (s SeenSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// State is the persisted tracking state of one run. It only grows: ids are
// never removed from Seen and observations are only appended to History.
type State struct {
	Seen    SeenSet
	History PriceHistory

	dirty bool
}

func NewState() *State {
	return &State{
		Seen:    make(SeenSet),
		History: make(PriceHistory),
	}
}

// Dirty reports whether anything was changed since the state was loaded.
func (s *State) Dirty() bool {
	return s.dirty
}

func (s *State) Apply(id string, d Decision) {
	if d.Append != nil {
		s.History[id] = append(s.History[id], *d.Append)
		s.dirty = true
	}
	if d.MarkSeen && !s.Seen.Has(id) {
		s.Seen.Add(id)
		s.dirty = true
	}
}
