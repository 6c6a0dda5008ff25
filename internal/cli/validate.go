package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wordrules/internal/model"
	"github.com/ppiankov/wordrules/internal/pipeline"
)

var (
	validateForce   bool
	validateWordID  int
	validateTimeout time.Duration
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [word]",
	Short: "Ask the oracle about one word and store its 150 verdicts",
	Long: `Validate sends the full rule catalog and a word to the oracle, parses the
reply into 150 verdicts and stores them as a word record.

A word that already has a record is left untouched unless --force is given,
in which case its existing record is overwritten under the same id.
--word-id re-validates the word stored under that id.

Example:
  wordrules validate 苹果
  wordrules validate 苹果 --force
  wordrules validate --word-id 12
  wordrules validate 苹果 --provider anthropic --no-cache`,
	Args: cobra.RangeArgs(0, 1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateForce, "force", false, "overwrite an existing record for the word")
	validateCmd.Flags().IntVar(&validateWordID, "word-id", 0, "re-validate the record stored under this id")
	validateCmd.Flags().DurationVar(&validateTimeout, "timeout", 0, "overall timeout (0 = none)")
	addOracleFlags(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	var word string
	if len(args) == 1 {
		word = args[0]
	}
	if word == "" && validateWordID == 0 {
		return fmt.Errorf("a word or --word-id is required")
	}

	bindOracleFlags(cmd)
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	noCache, _ := cmd.Flags().GetBool("no-cache")
	v, err := a.validator(noCache, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if validateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, validateTimeout)
		defer cancel()
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Rules loaded: %d/%d\n", a.catalog.Len(), model.RuleCount)
		fmt.Fprintf(os.Stderr, "Oracle: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintln(os.Stderr)
	}

	outcome, err := v.Validate(ctx, word, pipeline.Options{Force: validateForce, WordID: validateWordID})
	if errors.Is(err, pipeline.ErrWordExists) {
		fmt.Fprintf(os.Stderr, "Word %q already exists (id %d); use --force to overwrite\n", outcome.Word, outcome.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if outcome.Cached {
		fmt.Fprintf(os.Stderr, "✓ Oracle reply served from cache\n")
	}
	fmt.Fprintf(os.Stderr, "✓ Saved %q as id %d: %s\n", outcome.Word, outcome.ID, outcome.Location)
	fmt.Printf("Validation complete: %d/%d rules answered\n", outcome.Answered, model.RuleCount)

	return nil
}
