package main

import (
	"fmt"

	"github.com/kakapo-ai/kakapo/pkg/cache"
	"github.com/kakapo-ai/kakapo/pkg/config"
	"github.com/spf13/cobra"
)

func newCacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the answer cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := openSharedCache(c.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = ch.Close() }()

			stats, err := ch.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Backend:  %s\nEntries:  %d\nHits:     %d\nMisses:   %d\n",
				stats.Backend, stats.Entries, stats.Hits, stats.Misses)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := openSharedCache(c.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = ch.Close() }()

			if err := ch.Clear(cmd.Context(), expiredOnly); err != nil {
				return err
			}
			if expiredOnly {
				fmt.Println("Expired cache entries cleared.")
			} else {
				fmt.Println("All cache entries cleared.")
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

// openSharedCache opens a backend that outlives the server process.
func openSharedCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.CacheRedis, config.CacheSQLite:
		return cache.Open(cfg.Cache)
	default:
		return nil, fmt.Errorf("cache backend %q is not shared across processes; use redis or sqlite", cfg.Cache.Backend)
	}
}
