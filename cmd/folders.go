package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List imported folders",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		contactFolders, err := env.Folders.ListContactFolders(ctx)
		if err != nil {
			return err
		}
		companyFolders, err := env.Folders.ListCompanyFolders(ctx)
		if err != nil {
			return err
		}

		fmt.Println("Contact folders:")
		if len(contactFolders) == 0 {
			fmt.Println("  (none)")
		}
		for _, f := range contactFolders {
			fmt.Printf("  %-30s %d contacts\n", f.Name, f.Count)
		}

		fmt.Println("Company folders:")
		if len(companyFolders) == 0 {
			fmt.Println("  (none)")
		}
		for _, f := range companyFolders {
			fmt.Printf("  %-30s %d companies\n", f.Name, f.Count)
		}
		return nil
	},
}

var linkCmd = &cobra.Command{
	Use:   "link <company-folder> <contact-folder>",
	Short: "Link a company folder to a contact folder for enrichment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Folders.Link(ctx, args[0], args[1]); err != nil {
			return err
		}

		zap.L().Info("folders linked",
			zap.String("company_folder", args[0]),
			zap.String("contact_folder", args[1]),
		)
		return nil
	},
}

func init() {
	foldersCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(foldersCmd)
}
