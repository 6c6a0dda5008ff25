package matrix

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV exports the visible rows and columns, one row per word
func WriteCSV(w io.Writer, v View) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(v.Columns)+2)
	header = append(header, "ID", "Word")
	for _, col := range v.Columns {
		header = append(header, strconv.Itoa(col))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := range v.Rows {
		row := &v.Rows[i]
		record := make([]string, 0, len(header))
		record = append(record, row.ID, row.Word)
		for _, col := range v.Columns {
			record = append(record, row.Cell(col).String())
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", row.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
