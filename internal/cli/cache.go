package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wordrules/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the oracle reply cache",
	Long: `Maintain the oracle reply cache.

Replies are keyed by provider, model, rule catalog fingerprint and word, so
editing a rule file never reuses a reply to the old catalog.`,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p, ok := cache.Open(cfg.Cache).(cache.Pruner)
		if !ok {
			fmt.Println("Nothing to prune: no disk cache configured")
			return nil
		}
		removed, err := p.Prune()
		if err != nil {
			return fmt.Errorf("prune cache: %w", err)
		}
		fmt.Printf("✓ Removed %d expired entries from %s\n", removed, cfg.Cache.Dir)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		cfg.Cache.Enabled = true
		if err := cache.Open(cfg.Cache).Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Println("✓ Cache cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
