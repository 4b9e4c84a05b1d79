package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show successful API calls per day and model",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		stats := env.Limiter.Stats(ctx)
		if len(stats) == 0 {
			fmt.Println("No API usage recorded.")
			return nil
		}

		days := make([]string, 0, len(stats))
		for day := range stats {
			days = append(days, day)
		}
		sort.Strings(days)

		for _, day := range days {
			fmt.Println(day)
			models := make([]string, 0, len(stats[day]))
			for m := range stats[day] {
				models = append(models, m)
			}
			sort.Strings(models)
			for _, m := range models {
				fmt.Printf("  %-28s %d\n", m, stats[day][m])
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
}
