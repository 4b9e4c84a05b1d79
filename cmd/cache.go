package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached AI results",
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove cached AI results older than seven days",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		removed, err := env.Cache.CleanupExpired(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("cache cleanup complete", zap.Int("removed", removed))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached AI results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		removed, err := env.Cache.Clear(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("cache cleared", zap.Int("removed", removed))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheCleanupCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
