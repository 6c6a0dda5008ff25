package matrix

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/ppiankov/wordrules/internal/model"
)

//go:embed table.html.tmpl
var tableTemplate string

var tableTmpl = template.Must(template.New("table").Parse(tableTemplate))

// QuestionSource supplies column header text
type QuestionSource interface {
	QuestionFor(ruleID int) string
}

type columnView struct {
	ID       int
	Category model.Category
	Question string
}

type cellView struct {
	Class    string
	Text     string
	Category model.Category
}

type rowView struct {
	ID      string
	Word    string
	Classes string
	Cells   []cellView
}

type tableView struct {
	Title      string
	Categories []model.Category
	Columns    []columnView
	Rows       []rowView
}

// WriteHTML renders the interactive table. The page can hide all-true and
// all-false rows, dim rows without differences, toggle each category, search
// by id or word, and download the visible cells as CSV.
func WriteHTML(w io.Writer, m *Matrix, questions QuestionSource) error {
	tv := tableView{
		Title:      "Word Rules Table",
		Categories: model.Categories,
		Columns:    make([]columnView, 0, len(m.Columns)),
		Rows:       make([]rowView, 0, len(m.Rows)),
	}

	for _, col := range m.Columns {
		tv.Columns = append(tv.Columns, columnView{
			ID:       col,
			Category: model.CategoryOf(col),
			Question: questions.QuestionFor(col),
		})
	}

	for i := range m.Rows {
		row := &m.Rows[i]
		rv := rowView{
			ID:      row.ID,
			Word:    row.Word,
			Classes: rowClasses(row),
			Cells:   make([]cellView, 0, len(m.Columns)),
		}
		for _, col := range m.Columns {
			c := row.Cell(col)
			cv := cellView{Text: c.String(), Category: model.CategoryOf(col)}
			if c != CellMissing {
				cv.Class = c.String()
			}
			rv.Cells = append(rv.Cells, cv)
		}
		tv.Rows = append(tv.Rows, rv)
	}

	if err := tableTmpl.Execute(w, tv); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}

func rowClasses(row *Row) string {
	var classes []string
	if row.HasTrue {
		classes = append(classes, "row-has-true")
	}
	if row.HasFalse {
		classes = append(classes, "row-has-false")
	}
	if row.HasDiff {
		classes = append(classes, "has-diff")
	}
	return strings.Join(classes, " ")
}
