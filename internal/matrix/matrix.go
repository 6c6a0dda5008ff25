// Package matrix aggregates stored word records into a word x rule table.
package matrix

import (
	"github.com/ppiankov/wordrules/internal/model"
	"github.com/ppiankov/wordrules/internal/store"
)

// Cell is one word/rule intersection
type Cell int8

const (
	CellMissing Cell = iota
	CellFalse
	CellTrue
)

// String renders the cell as it appears in exports
func (c Cell) String() string {
	switch c {
	case CellTrue:
		return "true"
	case CellFalse:
		return "false"
	default:
		return "-"
	}
}

// CellOf converts a verdict result to a cell
func CellOf(result bool) Cell {
	if result {
		return CellTrue
	}
	return CellFalse
}

// Row is one record's cells plus summary flags
type Row struct {
	ID       string
	Word     string
	SourceID int
	Cells    [model.RuleCount]Cell

	HasTrue  bool // at least one true cell
	HasFalse bool // at least one false cell
	HasDiff  bool // two consecutive non-missing cells (by rule id) differ
}

// Cell returns the cell for ruleID, CellMissing when out of range
func (r *Row) Cell(ruleID int) Cell {
	if !model.ValidRuleID(ruleID) {
		return CellMissing
	}
	return r.Cells[ruleID-1]
}

// AllTrue reports a row whose answered cells are all true
func (r *Row) AllTrue() bool {
	return r.HasTrue && !r.HasFalse
}

// AllFalse reports a row whose answered cells are all false
func (r *Row) AllFalse() bool {
	return r.HasFalse && !r.HasTrue
}

// Matrix is the aggregate view. It is derived on every build and never persisted.
type Matrix struct {
	Columns []int
	Rows    []Row
}

// Columns returns the declared rule ids 1..RuleCount
func Columns() []int {
	cols := make([]int, model.RuleCount)
	for i := range cols {
		cols[i] = i + 1
	}
	return cols
}

// Build turns records into rows, keeping the order they were loaded in.
// Rule ids a record does not supply stay CellMissing.
func Build(entries []store.Entry) *Matrix {
	m := &Matrix{
		Columns: Columns(),
		Rows:    make([]Row, 0, len(entries)),
	}
	for _, e := range entries {
		m.Rows = append(m.Rows, buildRow(e))
	}
	return m
}

func buildRow(e store.Entry) Row {
	row := Row{
		ID:       e.RowID(),
		Word:     e.Record.Word,
		SourceID: e.SourceID,
	}
	for _, v := range e.Record.Questions {
		if model.ValidRuleID(v.RuleID) {
			row.Cells[v.RuleID-1] = CellOf(v.Result)
		}
	}
	summarize(&row)
	return row
}

func summarize(row *Row) {
	prev := CellMissing
	for _, c := range row.Cells {
		if c == CellMissing {
			continue
		}
		if c == CellTrue {
			row.HasTrue = true
		} else {
			row.HasFalse = true
		}
		if prev != CellMissing && prev != c {
			row.HasDiff = true
		}
		prev = c
	}
}
