package matrix

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/ppiankov/wordrules/internal/model"
	"github.com/ppiankov/wordrules/internal/store"
)

func entry(id int, word string, result func(ruleID int) (bool, bool)) store.Entry {
	rec := model.WordRecord{ID: "", Word: word}
	for r := 1; r <= model.RuleCount; r++ {
		if v, ok := result(r); ok {
			rec.Questions = append(rec.Questions, model.Verdict{RuleID: r, Result: v})
		}
	}
	return store.Entry{Record: rec, SourceID: id}
}

func allTrue(int) (bool, bool)  { return true, true }
func allFalse(int) (bool, bool) { return false, true }
func alternate(r int) (bool, bool) {
	return r%2 == 1, true
}

func TestBuild_Empty(t *testing.T) {
	m := Build(nil)
	assert.Empty(t, m.Rows)
	require.Len(t, m.Columns, model.RuleCount)
	assert.Equal(t, 1, m.Columns[0])
	assert.Equal(t, model.RuleCount, m.Columns[model.RuleCount-1])
}

func TestBuild_SummaryFlags(t *testing.T) {
	m := Build([]store.Entry{
		entry(1, "all-true", allTrue),
		entry(2, "alternating", alternate),
		entry(3, "all-false", allFalse),
	})

	require.Len(t, m.Rows, 3)

	assert.True(t, m.Rows[0].HasTrue)
	assert.False(t, m.Rows[0].HasFalse)
	assert.False(t, m.Rows[0].HasDiff)
	assert.True(t, m.Rows[0].AllTrue())

	assert.True(t, m.Rows[1].HasTrue)
	assert.True(t, m.Rows[1].HasFalse)
	assert.True(t, m.Rows[1].HasDiff)

	assert.True(t, m.Rows[2].AllFalse())
	assert.False(t, m.Rows[2].HasDiff)
}

func TestBuild_MissingCellsDoNotBreakDiffScan(t *testing.T) {
	// true at 1, missing 2..149, true at 150: no adjacent difference
	sparseSame := entry(1, "sparse-same", func(r int) (bool, bool) {
		return true, r == 1 || r == model.RuleCount
	})
	// true at 1, missing in between, false at 150: differs across the gap
	sparseDiff := entry(2, "sparse-diff", func(r int) (bool, bool) {
		return r == 1, r == 1 || r == model.RuleCount
	})

	m := Build([]store.Entry{sparseSame, sparseDiff})

	assert.Equal(t, CellTrue, m.Rows[0].Cell(1))
	assert.Equal(t, CellMissing, m.Rows[0].Cell(2))
	assert.False(t, m.Rows[0].HasDiff)
	assert.True(t, m.Rows[1].HasDiff)
	assert.Equal(t, CellMissing, m.Rows[0].Cell(0))
	assert.Equal(t, CellMissing, m.Rows[0].Cell(151))
}

func TestBuild_KeepsLoadOrderAndIdentity(t *testing.T) {
	e := entry(10, "十", allTrue)
	e.Record.ID = "10"
	m := Build([]store.Entry{e, entry(2, "二", allFalse)})

	assert.Equal(t, "10", m.Rows[0].ID)
	assert.Equal(t, "2", m.Rows[1].ID, "falls back to the storage id")
	assert.Equal(t, "二", m.Rows[1].Word)
}

func TestBuild_IgnoresOutOfRangeRuleIDs(t *testing.T) {
	e := store.Entry{SourceID: 1, Record: model.WordRecord{Word: "w", Questions: []model.Verdict{
		{RuleID: 0, Result: true}, {RuleID: 999, Result: true}, {RuleID: 5, Result: false},
	}}}
	m := Build([]store.Entry{e})

	assert.Equal(t, CellFalse, m.Rows[0].Cell(5))
	assert.False(t, m.Rows[0].HasTrue)
}

func TestFilter_Apply(t *testing.T) {
	m := Build([]store.Entry{
		entry(1, "Apple", allTrue),
		entry(2, "banana", alternate),
		entry(3, "cherry", allFalse),
	})

	v := Filter{}.Apply(m)
	assert.Len(t, v.Rows, 3)
	assert.Len(t, v.Columns, model.RuleCount)

	v = Filter{HideAllTrue: true}.Apply(m)
	assert.Equal(t, []string{"banana", "cherry"}, words(v))

	v = Filter{HideAllFalse: true}.Apply(m)
	assert.Equal(t, []string{"Apple", "banana"}, words(v))

	v = Filter{Search: "APP"}.Apply(m)
	assert.Equal(t, []string{"Apple"}, words(v))

	v = Filter{Search: "3"}.Apply(m)
	assert.Equal(t, []string{"cherry"}, words(v))

	v = Filter{HiddenCategories: []model.Category{model.CategoryContext, model.CategoryWording}}.Apply(m)
	require.Len(t, v.Columns, 50)
	assert.Equal(t, 51, v.Columns[0])
	assert.Equal(t, 100, v.Columns[49])
}

func words(v View) []string {
	var out []string
	for _, r := range v.Rows {
		out = append(out, r.Word)
	}
	return out
}

func TestWriteCSV(t *testing.T) {
	sparse := entry(2, "with,comma", func(r int) (bool, bool) { return true, r == 51 })
	m := Build([]store.Entry{entry(1, "a", alternate), sparse})
	v := Filter{HiddenCategories: []model.Category{model.CategoryContext, model.CategoryWording}}.Apply(m)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, v))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"ID", "Word", "51", "52"}, records[0][:4])
	assert.Len(t, records[0], 52)
	assert.Equal(t, []string{"1", "a", "true", "false"}, records[1][:4])
	assert.Equal(t, []string{"2", "with,comma", "true", "-"}, records[2][:4])
}

type fakeQuestions map[int]string

func (f fakeQuestions) QuestionFor(id int) string {
	if q, ok := f[id]; ok {
		return q
	}
	return "unknown question"
}

func TestWriteHTML(t *testing.T) {
	m := Build([]store.Entry{
		entry(1, "<b>apple</b>", allTrue),
		entry(2, "banana", alternate),
	})

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, m, fakeQuestions{1: "Is it a fruit?"}))
	page := buf.String()
	assert.NotContains(t, page, "<b>apple</b>", "words are escaped")
	assert.Contains(t, page, "Is it a fruit?")
	assert.Contains(t, page, "unknown question")

	doc, err := html.Parse(strings.NewReader(page))
	require.NoError(t, err)

	var bodyRows []*html.Node
	var headerCells int
	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "tbody":
				inBody = true
			case "tr":
				if inBody {
					bodyRows = append(bodyRows, n)
				}
			case "th":
				if attr(n, "data-category") != "" {
					headerCells++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
	}
	walk(doc, false)

	require.Len(t, bodyRows, 2)
	assert.Equal(t, "row-has-true", attr(bodyRows[0], "class"))
	assert.Equal(t, "row-has-true row-has-false has-diff", attr(bodyRows[1], "class"))
	assert.Equal(t, 2*model.RuleCount, headerCells)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
