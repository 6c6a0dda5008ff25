package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ppiankov/wordrules/internal/model"
)

const fileExt = ".json"

// FileStore keeps one word_<id>.json file per record in a directory
type FileStore struct {
	dir     string
	logger  *slog.Logger
	locks   *KeyedMutex[int]
	allocMu sync.Mutex
}

// NewFileStore creates the directory if needed and returns a store over it
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create words dir: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: loggerOrDefault(logger),
		locks:  NewKeyedMutex[int](),
	}, nil
}

// Dir returns the directory the store reads and writes
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file backing id
func (s *FileStore) Path(id int) string {
	return filepath.Join(s.dir, recordName(id)+fileExt)
}

// names returns record file names in lexicographic order
func (s *FileStore) names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read words dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := parseFileName(e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// parseFileName extracts the id from word_<id>.json
func parseFileName(name string) (int, bool) {
	if !strings.HasSuffix(name, fileExt) {
		return 0, false
	}
	return parseRecordName(strings.TrimSuffix(name, fileExt))
}

// IDs lists stored identities in ascending order
func (s *FileStore) IDs() ([]int, error) {
	names, err := s.names()
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(names))
	for _, name := range names {
		id, _ := parseFileName(name)
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// NextID returns the smallest positive id without a file
func (s *FileStore) NextID() (int, error) {
	ids, err := s.IDs()
	if err != nil {
		return 0, err
	}
	return smallestFree(ids), nil
}

// Load reads the record stored under id
func (s *FileStore) Load(id int) (*Entry, error) {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", recordName(id), ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", recordName(id), err)
	}
	rec, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", recordName(id), err)
	}
	return &Entry{Record: *rec, SourceID: id}, nil
}

// scan decodes every record in key order, calling visit until it returns false.
// Unreadable or corrupt records are logged and skipped.
func (s *FileStore) scan(visit func(Entry) bool) error {
	names, err := s.names()
	if err != nil {
		return err
	}
	for _, name := range names {
		id, _ := parseFileName(name)
		entry, err := s.Load(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue // removed since listing
			}
			s.logger.Warn("store: skipping record", "source", name, "error", err)
			continue
		}
		if !visit(*entry) {
			return nil
		}
	}
	return nil
}

// Find returns the first record whose word matches exactly
func (s *FileStore) Find(word string) (*Entry, error) {
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

// LoadAll returns every valid record in file-name order
func (s *FileStore) LoadAll() ([]Entry, error) {
	var entries []Entry
	err := s.scan(func(e Entry) bool {
		entries = append(entries, e)
		return true
	})
	return entries, err
}

// Save writes the record, allocating an id when id is 0
func (s *FileStore) Save(word string, verdicts []model.Verdict, id int) (string, error) {
	if id < 0 {
		return "", fmt.Errorf("invalid record id: %d", id)
	}

	if id == 0 {
		return s.saveNew(word, verdicts)
	}

	unlock := s.locks.Lock(id)
	defer unlock()
	return s.publish(id, word, verdicts)
}

// saveNew allocates the smallest free id and publishes under it. Explicit-id
// saves do not take allocMu, so the chosen id is re-checked under its own lock
// and skipped if a record appeared there since NextID listed the directory.
func (s *FileStore) saveNew(word string, verdicts []model.Verdict) (string, error) {
	s.allocMu.Lock()
	defer s.allocMu.Unlock()

	for {
		id, err := s.NextID()
		if err != nil {
			return "", fmt.Errorf("allocate id: %w", err)
		}

		unlock := s.locks.Lock(id)
		_, err = os.Stat(s.Path(id))
		switch {
		case err == nil:
			unlock()
			continue
		case !errors.Is(err, fs.ErrNotExist):
			unlock()
			return "", fmt.Errorf("allocate id: %w", err)
		}

		path, err := s.publish(id, word, verdicts)
		unlock()
		return path, err
	}
}

// publish writes the record for id; the caller holds the id lock
func (s *FileStore) publish(id int, word string, verdicts []model.Verdict) (string, error) {
	path := s.Path(id)
	if err := writeAtomic(s.dir, path, Encode(newRecord(id, word, verdicts))); err != nil {
		return "", fmt.Errorf("write %s: %w", recordName(id), err)
	}
	return path, nil
}

// Close is a no-op for the file backend
func (s *FileStore) Close() error {
	return nil
}

// writeAtomic writes data to a hidden temp file in dir and renames it over path
func writeAtomic(dir, path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, ".word-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
