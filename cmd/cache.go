package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the API response cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("cache"); err != nil {
			return err
		}

		cache, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer cache.Close() //nolint:errcheck

		n, err := cache.Prune(ctx)
		if err != nil {
			return err
		}
		left, err := cache.Count(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("cache pruned", zap.Int("removed", n), zap.Int("remaining", left))
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries, %d remaining\n", n, left)
		return err
	},
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how many responses are cached",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("cache"); err != nil {
			return err
		}

		cache, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer cache.Close() //nolint:errcheck

		n, err := cache.Count(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d cached responses (enabled=%t, ttl=%s)\n",
			cfg.Cache.Path, n, cfg.Cache.Enabled, cfg.Cache.TTL())
		return err
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd, cacheStatusCmd)
	rootCmd.AddCommand(cacheCmd)
}
