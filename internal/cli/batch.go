package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/wordrules/internal/llm"
	"github.com/ppiankov/wordrules/internal/model"
	"github.com/ppiankov/wordrules/internal/pipeline"
	"github.com/ppiankov/wordrules/internal/worker"
)

var (
	batchForce     bool
	batchTimeout   time.Duration
	batchSkipCheck bool
)

const availabilityTimeout = 15 * time.Second

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Validate many words from a file in parallel",
	Long: `Batch validates every word listed in a file (one per line):
- Blank lines and lines starting with # are skipped, repeats are dropped
- Words are validated concurrently with a configurable worker count
- Oracle calls are rate limited per provider
- A failing word is reported and never stops the batch

Example:
  wordrules batch words.txt
  wordrules batch words.txt --concurrency 8 --force
  wordrules batch words.txt --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "overwrite existing records")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for batch processing")
	batchCmd.Flags().Float64("rps", 0, "oracle requests per second (default from config)")
	batchCmd.Flags().BoolVar(&batchSkipCheck, "skip-check", false, "skip the oracle availability probe")
	addOracleFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	bindOracleFlags(cmd)
	if f := cmd.Flags().Lookup("concurrency"); f.Changed {
		_ = viper.BindPFlag("concurrency.workers", f)
	}
	if f := cmd.Flags().Lookup("rps"); f.Changed {
		_ = viper.BindPFlag("rate_limiting.requests_per_second", f)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	printBanner("Wordrules Batch Validation")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	limiter := worker.NewLimiter(cfg.RateLimiting)
	if limit := limiter.Limit(llm.CanonicalName(cfg.LLM.Provider)); limit.RequestsPerSecond > 0 {
		fmt.Fprintf(os.Stderr, "  Rate limit:   %.2f req/s (burst %d)\n", limit.RequestsPerSecond, limit.BurstSize)
	} else {
		fmt.Fprintf(os.Stderr, "  Rate limit:   none\n")
	}
	fmt.Fprintf(os.Stderr, "  Oracle:       %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	noCache, _ := cmd.Flags().GetBool("no-cache")
	v, err := a.validator(noCache, limiter)
	if err != nil {
		return err
	}

	if !batchSkipCheck {
		checkCtx, cancelCheck := context.WithTimeout(ctx, availabilityTimeout)
		err := v.Ready(checkCtx)
		cancelCheck()
		if err != nil {
			return fmt.Errorf("oracle not available (use --skip-check to proceed anyway): %w", err)
		}
	}

	processor := worker.NewBatchProcessor(v, cfg.Concurrency.Workers, pipeline.Options{Force: batchForce})

	fmt.Fprintf(os.Stderr, "⚙️  Validating words...\n\n")
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	var success, skipped, failed int
	for _, r := range results {
		switch {
		case r.Error == nil:
			success++
			fmt.Fprintf(os.Stderr, "✓ %s (id %d): %d/%d rules answered\n", r.Word, r.Outcome.ID, r.Outcome.Answered, model.RuleCount)
		case isWordExists(r.Error):
			skipped++
			fmt.Fprintf(os.Stderr, "- %s: already exists\n", r.Word)
		default:
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Word, r.Error)
		}
	}

	printBanner("Batch Complete")
	fmt.Fprintf(os.Stderr, "  Total:     %d words\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", success)
	fmt.Fprintf(os.Stderr, "  Existing:  %d\n", skipped)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failed)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
