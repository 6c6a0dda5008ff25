package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ppiankov/wordrules/internal/model"
)

var bucketWords = []byte("words")

var errStop = errors.New("stop")

// BoltStore keeps encoded records under word_<id> keys in a bbolt bucket.
// bbolt admits one write transaction at a time, which serializes writers.
type BoltStore struct {
	db     *bolt.DB
	path   string
	logger *slog.Logger
}

// NewBoltStore opens (or creates) the database at path
func NewBoltStore(path string, logger *slog.Logger) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketWords)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{db: db, path: path, logger: loggerOrDefault(logger)}, nil
}

// Close closes the underlying database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) location(id int) string {
	return s.path + "#" + recordName(id)
}

func bucketIDs(b *bolt.Bucket) []int {
	var ids []int
	_ = b.ForEach(func(k, _ []byte) error {
		if id, ok := parseRecordName(string(k)); ok {
			ids = append(ids, id)
		}
		return nil
	})
	sort.Ints(ids)
	return ids
}

// IDs lists stored identities in ascending order
func (s *BoltStore) IDs() ([]int, error) {
	var ids []int
	err := s.db.View(func(tx *bolt.Tx) error {
		ids = bucketIDs(tx.Bucket(bucketWords))
		return nil
	})
	return ids, err
}

// NextID returns the smallest positive id without a key
func (s *BoltStore) NextID() (int, error) {
	ids, err := s.IDs()
	if err != nil {
		return 0, err
	}
	return smallestFree(ids), nil
}

// Load returns the record stored under id
func (s *BoltStore) Load(id int) (*Entry, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketWords).Get([]byte(recordName(id))); v != nil {
			// bbolt slices are only valid inside the transaction
			data = bytes.Clone(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%s: %w", recordName(id), ErrNotFound)
	}
	rec, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", recordName(id), err)
	}
	return &Entry{Record: *rec, SourceID: id}, nil
}

// scan visits valid records in key order; corrupt ones are logged and skipped
func (s *BoltStore) scan(visit func(Entry) bool) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketWords).ForEach(func(k, v []byte) error {
			id, ok := parseRecordName(string(k))
			if !ok {
				return nil
			}
			rec, err := Decode(v)
			if err != nil {
				s.logger.Warn("store: skipping record", "source", string(k), "error", err)
				return nil
			}
			if !visit(Entry{Record: *rec, SourceID: id}) {
				return errStop
			}
			return nil
		})
	})
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

// Find returns the first record whose word matches exactly
func (s *BoltStore) Find(word string) (*Entry, error) {
	var found *Entry
	err := s.scan(func(e Entry) bool {
		if e.Record.Word == word {
			found = &e
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("word %q: %w", word, ErrNotFound)
	}
	return found, nil
}

// LoadAll returns every valid record in key order
func (s *BoltStore) LoadAll() ([]Entry, error) {
	var entries []Entry
	err := s.scan(func(e Entry) bool {
		entries = append(entries, e)
		return true
	})
	return entries, err
}

// Save writes the record in a single transaction, allocating an id when id is 0
func (s *BoltStore) Save(word string, verdicts []model.Verdict, id int) (string, error) {
	if id < 0 {
		return "", fmt.Errorf("invalid record id: %d", id)
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketWords)
		if id == 0 {
			id = smallestFree(bucketIDs(b))
		}
		return b.Put([]byte(recordName(id)), Encode(newRecord(id, word, verdicts)))
	})
	if err != nil {
		return "", fmt.Errorf("write %s: %w", recordName(id), err)
	}
	return s.location(id), nil
}
