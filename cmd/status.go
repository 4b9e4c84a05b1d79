package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/leads-cli/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current export run status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		st, err := env.Coordinator.Status(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Status: %s\n", st.State)
		if st.State == model.StatusProcessing {
			fmt.Printf("Run ID: %s\n", st.RunID)
			fmt.Printf("Folder: %s\n", st.Folder)
			fmt.Printf("Started: %s\n", time.UnixMilli(st.StartedAt).Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
