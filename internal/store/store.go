// Package store persists word records and allocates their identities.
//
// Two backends share one on-disk record encoding: FileStore keeps one
// word_<id>.json file per record, BoltStore keeps the same bytes under
// word_<id> keys in a bbolt bucket. Both serialize writers per identity and
// publish each record atomically, so LoadAll never observes a partial write.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/wordrules/internal/model"
	"github.com/ppiankov/wordrules/internal/parse"
)

var (
	// ErrNotFound is returned when no record matches
	ErrNotFound = errors.New("record not found")

	// ErrCorrupt marks a stored record that lacks the required structure
	ErrCorrupt = errors.New("corrupt record")
)

// Store is the record persistence contract
type Store interface {
	// Find returns the first record whose word equals word, scanning in storage-key order
	Find(word string) (*Entry, error)

	// NextID returns the smallest positive id with no stored record
	NextID() (int, error)

	// Save writes a record. id 0 allocates a new identity; a positive id is
	// overwritten unconditionally. It returns the record location.
	Save(word string, verdicts []model.Verdict, id int) (string, error)

	// Load returns the record stored under id
	Load(id int) (*Entry, error)

	// LoadAll returns every structurally valid record in storage-key order
	LoadAll() ([]Entry, error)

	// IDs lists stored identities in ascending order
	IDs() ([]int, error)

	Close() error
}

// Entry is a decoded record plus the identity it was stored under
type Entry struct {
	Record   model.WordRecord
	SourceID int
}

// RowID is the identity shown for the entry: the stored id field, else the storage id
func (e Entry) RowID() string {
	if e.Record.ID != "" {
		return e.Record.ID
	}
	return strconv.Itoa(e.SourceID)
}

// Open returns the backend selected by cfg
func Open(cfg model.StoreConfig, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "file":
		return NewFileStore(cfg.Dir, logger)
	case "bolt", "bbolt":
		return NewBoltStore(cfg.BoltPath, logger)
	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: file, bolt)", cfg.Backend)
	}
}

const namePrefix = "word_"

// recordName is the storage key for id, without any file extension
func recordName(id int) string {
	return namePrefix + strconv.Itoa(id)
}

// parseRecordName extracts the id from a word_<id> key
func parseRecordName(name string) (int, bool) {
	if !strings.HasPrefix(name, namePrefix) {
		return 0, false
	}
	id, err := strconv.Atoi(name[len(namePrefix):])
	if err != nil || id <= 0 || strconv.Itoa(id) != name[len(namePrefix):] {
		return 0, false
	}
	return id, true
}

// IDFromLocation recovers the record id from a location returned by Save
func IDFromLocation(location string) (int, bool) {
	name := location
	if i := strings.LastIndex(name, "#"); i >= 0 {
		name = name[i+1:]
	} else {
		name = strings.TrimSuffix(filepath.Base(name), fileExt)
	}
	return parseRecordName(name)
}

// smallestFree returns the smallest positive integer not in ids
func smallestFree(ids []int) int {
	used := make(map[int]bool, len(ids))
	for _, id := range ids {
		used[id] = true
	}
	next := 1
	for used[next] {
		next++
	}
	return next
}

// Densify returns exactly model.RuleCount verdicts in rule order.
// Out-of-range rule ids are dropped, later duplicates win, and absent
// rules get the default unanswered verdict.
func Densify(verdicts []model.Verdict) []model.Verdict {
	dense := parse.Defaults()
	for _, v := range verdicts {
		if !model.ValidRuleID(v.RuleID) {
			continue
		}
		dense[v.RuleID-1] = v
	}
	return dense
}

func newRecord(id int, word string, verdicts []model.Verdict) model.WordRecord {
	return model.WordRecord{
		ID:        strconv.Itoa(id),
		Word:      word,
		Questions: Densify(verdicts),
	}
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
