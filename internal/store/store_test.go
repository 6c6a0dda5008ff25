package store

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/ppiankov/wordrules/internal/model"
	"github.com/ppiankov/wordrules/internal/parse"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backends runs fn against a fresh store of each kind
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("file", func(t *testing.T) {
		s, err := NewFileStore(t.TempDir(), discardLogger())
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
	t.Run("bolt", func(t *testing.T) {
		s, err := NewBoltStore(filepath.Join(t.TempDir(), "words.db"), discardLogger())
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
}

func alternating() []model.Verdict {
	verdicts := make([]model.Verdict, model.RuleCount)
	for i := range verdicts {
		verdicts[i] = model.Verdict{RuleID: i + 1, Result: i%2 == 0, Reason: fmt.Sprintf("r%d", i+1)}
	}
	return verdicts
}

func TestNextID_EmptyStore(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		id, err := s.NextID()
		require.NoError(t, err)
		assert.Equal(t, 1, id)
	})
}

func TestNextID_ReusesGaps(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		for _, id := range []int{1, 2, 4} {
			_, err := s.Save(fmt.Sprintf("w%d", id), nil, id)
			require.NoError(t, err)
		}

		id, err := s.NextID()
		require.NoError(t, err)
		assert.Equal(t, 3, id)

		_, err = s.Save("fresh", nil, 0)
		require.NoError(t, err)
		entry, err := s.Find("fresh")
		require.NoError(t, err)
		assert.Equal(t, 3, entry.SourceID)
		assert.Equal(t, "3", entry.Record.ID)

		ids, err := s.IDs()
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4}, ids)
	})
}

func TestFind(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.Save("苹果", alternating(), 0)
		require.NoError(t, err)
		_, err = s.Save("香蕉", nil, 0)
		require.NoError(t, err)

		entry, err := s.Find("苹果")
		require.NoError(t, err)
		assert.Equal(t, "苹果", entry.Record.Word)
		assert.Equal(t, 1, entry.SourceID)

		_, err = s.Find("苹")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Find("橙子")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSave_RoundTripsParsedVerdicts(t *testing.T) {
	var b strings.Builder
	for id := 1; id <= model.RuleCount; id += 3 {
		fmt.Fprintf(&b, "ruleId: %d, result: %t, reason: has a \"quoted\" part\n", id, id%2 == 1)
	}
	parsed := parse.Parse(b.String())

	backends(t, func(t *testing.T, s Store) {
		_, err := s.Save("词", parsed, 0)
		require.NoError(t, err)

		entry, err := s.Load(1)
		require.NoError(t, err)
		require.Len(t, entry.Record.Questions, model.RuleCount)
		for i, v := range entry.Record.Questions {
			assert.Equal(t, parsed[i].RuleID, v.RuleID)
			assert.Equal(t, parsed[i].Result, v.Result)
			assert.NotContains(t, v.Reason, `"`)
		}
		assert.Equal(t, "has a 'quoted' part", entry.Record.Questions[0].Reason)
		assert.Equal(t, parse.DefaultReason(2), entry.Record.Questions[1].Reason)
	})
}

func TestSave_StoresSingleLineReasons(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.Save("w", []model.Verdict{{RuleID: 1, Result: true, Reason: "a\nb\tc"}}, 1)
		require.NoError(t, err)

		entry, err := s.Load(1)
		require.NoError(t, err)
		assert.Equal(t, "a b c", entry.Record.Questions[0].Reason)
	})
}

func TestSave_OverwriteReplacesVerdicts(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.Save("词", alternating(), 0)
		require.NoError(t, err)

		_, err = s.Save("词", []model.Verdict{{RuleID: 2, Result: true, Reason: "only one"}}, 1)
		require.NoError(t, err)

		entry, err := s.Load(1)
		require.NoError(t, err)
		assert.Equal(t, parse.DefaultReason(1), entry.Record.Questions[0].Reason, "previous verdicts are not merged")
		assert.Equal(t, "only one", entry.Record.Questions[1].Reason)
		assert.Equal(t, 1, parse.Answered(entry.Record.Questions))
	})
}

func TestSave_RejectsNegativeID(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.Save("x", nil, -2)
		assert.Error(t, err)
	})
}

func TestLoad_Missing(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.Load(9)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFileStore_SkipsCorruptRecords(t *testing.T) {
	dir := t.TempDir()
	var logs bytes.Buffer
	s, err := NewFileStore(dir, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "word_1.json"), []byte(`{"id": "1", "word": "坏"`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "word_2.json"), []byte(`{"id": "2", "word": "空", "questions": []}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644))
	_, err = s.Save("好", alternating(), 3)
	require.NoError(t, err)

	entries, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "好", entries[0].Record.Word)

	entry, err := s.Find("好")
	require.NoError(t, err)
	assert.Equal(t, 3, entry.SourceID)
	assert.Contains(t, logs.String(), "word_1.json")
	assert.Contains(t, logs.String(), "word_2.json")

	// corrupt files still occupy their identity
	next, err := s.NextID()
	require.NoError(t, err)
	assert.Equal(t, 4, next)
}

func TestBoltStore_SkipsCorruptRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.db")
	s, err := NewBoltStore(path, discardLogger())
	require.NoError(t, err)
	defer s.Close()

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketWords).Put([]byte("word_1"), []byte("not json"))
	})
	require.NoError(t, err)
	_, err = s.Save("好", nil, 2)
	require.NoError(t, err)

	entries, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].SourceID)
}

func TestLoadAll_LexicographicOrder(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		for _, id := range []int{2, 10, 1} {
			_, err := s.Save(fmt.Sprintf("w%d", id), nil, id)
			require.NoError(t, err)
		}
		entries, err := s.LoadAll()
		require.NoError(t, err)

		var order []int
		for _, e := range entries {
			order = append(order, e.SourceID)
		}
		assert.Equal(t, []int{1, 10, 2}, order)
	})
}

func TestFileStore_ConcurrentAllocationsAreDistinct(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), discardLogger())
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Save(fmt.Sprintf("w%d", i), nil, 0)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	ids, err := s.IDs()
	require.NoError(t, err)
	assert.Len(t, ids, n)
	assert.Equal(t, 1, ids[0])
	assert.Equal(t, n, ids[n-1])

	matches, err := filepath.Glob(filepath.Join(s.Dir(), ".word-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temp files are renamed away")
}

func TestFileStore_AllocationNeverReplacesExplicitSave(t *testing.T) {
	for i := 0; i < 100; i++ {
		s, err := NewFileStore(t.TempDir(), discardLogger())
		require.NoError(t, err)

		var (
			wg        sync.WaitGroup
			allocPath string
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			var err error
			allocPath, err = s.Save("alloc", nil, 0)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.Save("explicit", nil, 1)
			assert.NoError(t, err)
		}()
		wg.Wait()

		entry, err := s.Load(1)
		require.NoError(t, err)
		require.Equal(t, "explicit", entry.Record.Word, "iteration %d", i)

		// Either the allocator ran first and was then overwritten by the
		// explicit save, or it saw id 1 taken and moved on to id 2.
		if allocPath != s.Path(1) {
			require.Equal(t, s.Path(2), allocPath, "iteration %d", i)
			alloc, err := s.Load(2)
			require.NoError(t, err)
			require.Equal(t, "alloc", alloc.Record.Word)
		}
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(model.StoreConfig{Backend: "file", Dir: filepath.Join(dir, "words")}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	b, err := Open(model.StoreConfig{Backend: "bolt", BoltPath: filepath.Join(dir, "w.db")}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &BoltStore{}, b)
	require.NoError(t, b.Close())

	_, err = Open(model.StoreConfig{Backend: "s3"}, discardLogger())
	assert.Error(t, err)
}

func TestParseRecordName(t *testing.T) {
	tests := []struct {
		in   string
		id   int
		want bool
	}{
		{"word_1", 1, true},
		{"word_42", 42, true},
		{"word_0", 0, false},
		{"word_-1", 0, false},
		{"word_01", 0, false},
		{"word_x", 0, false},
		{"words_1", 0, false},
	}
	for _, tt := range tests {
		id, ok := parseRecordName(tt.in)
		assert.Equal(t, tt.want, ok, tt.in)
		assert.Equal(t, tt.id, id, tt.in)
	}
}

func TestEntryRowID(t *testing.T) {
	assert.Equal(t, "7", Entry{Record: model.WordRecord{ID: "7"}, SourceID: 3}.RowID())
	assert.Equal(t, "3", Entry{SourceID: 3}.RowID())
}

func TestIDFromLocation(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		_, err := s.Save("一", nil, 4)
		require.NoError(t, err)
		loc, err := s.Save("二", nil, 0)
		require.NoError(t, err)

		id, ok := IDFromLocation(loc)
		require.True(t, ok, loc)
		assert.Equal(t, 1, id)
	})

	_, ok := IDFromLocation("/tmp/notes.txt")
	assert.False(t, ok)
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := NewKeyedMutex[string]()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("same")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, k.locks)
}
