package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/wordrules/internal/matrix"
	"github.com/ppiankov/wordrules/internal/model"
)

var (
	tableCSV          string
	tableHideTrue     bool
	tableHideFalse    bool
	tableHideCategory []string
	tableSearch       string
)

// tableCmd represents the table command
var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Build the word x rule table from all stored records",
	Long: `Table loads every stored record and renders an interactive HTML table
with one row per word and one column per rule. In the browser you can hide
all-true or all-false rows, highlight rows whose verdicts change, toggle
rule categories, search by id or word, and download the visible cells as CSV.

--csv writes the same export directly, honoring the filter flags.

Example:
  wordrules table
  wordrules table --out review.html
  wordrules table --csv export.csv --hide-true --hide-category wording`,
	Args: cobra.NoArgs,
	RunE: runTable,
}

func init() {
	rootCmd.AddCommand(tableCmd)

	tableCmd.Flags().String("out", "", "output HTML path (default from config)")
	tableCmd.Flags().StringVar(&tableCSV, "csv", "", "also write a CSV export to this path")
	tableCmd.Flags().BoolVar(&tableHideTrue, "hide-true", false, "CSV: drop rows where every rule is true")
	tableCmd.Flags().BoolVar(&tableHideFalse, "hide-false", false, "CSV: drop rows where every rule is false")
	tableCmd.Flags().StringSliceVar(&tableHideCategory, "hide-category", nil, "CSV: drop rule columns of these categories")
	tableCmd.Flags().StringVar(&tableSearch, "search", "", "CSV: keep rows whose id or word contains this text")
}

func runTable(cmd *cobra.Command, args []string) error {
	if f := cmd.Flags().Lookup("out"); f.Changed {
		_ = viper.BindPFlag("output.table", f)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	filter := matrix.Filter{
		HideAllTrue:  tableHideTrue,
		HideAllFalse: tableHideFalse,
		Search:       tableSearch,
	}
	for _, name := range tableHideCategory {
		c, ok := model.ParseCategory(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return fmt.Errorf("unknown category %q (expected context, property or wording)", name)
		}
		filter.HiddenCategories = append(filter.HiddenCategories, c)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.store.LoadAll()
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	m := matrix.Build(entries)

	if err := writeFile(cfg.Output.Table, func(w *bufio.Writer) error {
		return matrix.WriteHTML(w, m, a.catalog)
	}); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote table: %s (%d words)\n", cfg.Output.Table, len(m.Rows))

	if tableCSV != "" {
		view := filter.Apply(m)
		if err := writeFile(tableCSV, func(w *bufio.Writer) error {
			return matrix.WriteCSV(w, view)
		}); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote CSV: %s (%d rows, %d rules)\n", tableCSV, len(view.Rows), len(view.Columns))
	}

	return nil
}

func writeFile(path string, render func(w *bufio.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	w := bufio.NewWriter(f)
	if err := render(w); err != nil {
		return err
	}
	return w.Flush()
}
