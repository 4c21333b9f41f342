package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"otomoto-watcher/internal/tracker"
)

// FileStore keeps the seen set and the price history in two JSON files.
type FileStore struct {
	SeenPath    string
	HistoryPath string

	// Now supplies the timestamp given to migrated legacy entries.
	Now func() time.Time

	// unreadable holds history entries from the last Load that could not be
	// decoded at all. Save writes them back untouched.
	unreadable map[string]json.RawMessage
}

func NewFileStore(seenPath, historyPath string) *FileStore {
	return &FileStore{
		SeenPath:    seenPath,
		HistoryPath: historyPath,
		Now:         time.Now,
	}
}

func (f *FileStore) Load(ctx context.Context) (*tracker.State, error) {
	s := tracker.NewState()

	var ids []string
	if readJSON(f.SeenPath, &ids) {
		for _, id := range ids {
			s.Seen.Add(id)
		}
	}

	f.unreadable = nil
	var raw map[string]json.RawMessage
	if readJSON(f.HistoryPath, &raw) {
		now := f.Now().UTC().Truncate(time.Second)
		for id, entry := range raw {
			obs, err := decodeHistoryEntry(id, entry, now)
			if err != nil {
				log.Printf("⚠️ Keeping unreadable history entry %s as is: %v", id, err)
				if f.unreadable == nil {
					f.unreadable = make(map[string]json.RawMessage)
				}
				f.unreadable[id] = entry
				continue
			}
			s.History[id] = obs
		}
	}

	return s, nil
}

// decodeHistoryEntry accepts the current list of observations and the
// legacy bare price, which becomes a single observation stamped now.
// Observations that fail to decode are dropped one by one.
func decodeHistoryEntry(id string, entry json.RawMessage, now time.Time) ([]tracker.PriceObservation, error) {
	var items []json.RawMessage
	err := json.Unmarshal(entry, &items)
	if err == nil {
		obs := make([]tracker.PriceObservation, 0, len(items))
		for i, item := range items {
			var o tracker.PriceObservation
			if err := json.Unmarshal(item, &o); err != nil {
				log.Printf("⚠️ Skipping observation %d of %s: %v", i, id, err)
				continue
			}
			obs = append(obs, o)
		}
		if len(obs) == 0 && len(items) > 0 {
			return nil, errors.New("no readable observations")
		}
		return obs, nil
	}

	var price int
	if legacyErr := json.Unmarshal(entry, &price); legacyErr == nil {
		return []tracker.PriceObservation{{Timestamp: now, Price: price}}, nil
	}
	return nil, err
}

// readJSON reports whether path held valid JSON for v.
func readJSON(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("⚠️ Failed to read %s, starting empty: %v", path, err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("⚠️ %s is not valid JSON, starting empty: %v", path, err)
		return false
	}
	return true
}

func (f *FileStore) Save(ctx context.Context, s *tracker.State) error {
	if err := writeJSON(f.SeenPath, s.Seen.IDs()); err != nil {
		return fmt.Errorf("failed to save seen listings: %w", err)
	}
	if err := writeJSON(f.HistoryPath, f.historyForSave(s.History)); err != nil {
		return fmt.Errorf("failed to save price history: %w", err)
	}
	return nil
}

// historyForSave merges entries that could not be read back into the
// history so that saving never drops a listing from the file.
func (f *FileStore) historyForSave(history tracker.PriceHistory) any {
	if len(f.unreadable) == 0 {
		return history
	}

	out := make(map[string]any, len(history)+len(f.unreadable))
	for id, entry := range f.unreadable {
		out[id] = entry
	}
	for id, obs := range history {
		out[id] = obs
	}
	return out
}

// writeJSON replaces path through a temporary file in the same directory so
// a crash never leaves a half-written file behind.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
