package matrix

import (
	"strings"

	"github.com/ppiankov/wordrules/internal/model"
)

// Filter mirrors the interactive table controls
type Filter struct {
	HideAllTrue      bool
	HideAllFalse     bool
	HiddenCategories []model.Category
	Search           string // case-insensitive substring of row id or word
}

// View is the visible subset of a matrix
type View struct {
	Columns []int
	Rows    []Row
}

// Apply selects the rows and columns the filter leaves visible
func (f Filter) Apply(m *Matrix) View {
	hidden := make(map[model.Category]bool, len(f.HiddenCategories))
	for _, c := range f.HiddenCategories {
		hidden[c] = true
	}

	v := View{}
	for _, col := range m.Columns {
		if !hidden[model.CategoryOf(col)] {
			v.Columns = append(v.Columns, col)
		}
	}

	term := strings.ToLower(f.Search)
	for i := range m.Rows {
		row := &m.Rows[i]
		if f.HideAllTrue && row.AllTrue() {
			continue
		}
		if f.HideAllFalse && row.AllFalse() {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(row.Word), term) &&
			!strings.Contains(strings.ToLower(row.ID), term) {
			continue
		}
		v.Rows = append(v.Rows, *row)
	}
	return v
}
