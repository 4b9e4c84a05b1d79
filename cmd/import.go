package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leads-cli/internal/ingest"
)

var (
	importFile   string
	importFolder string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import scraped records into a folder",
}

var importContactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Import contacts from a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		contacts, err := ingest.ReadContacts(importFile)
		if err != nil {
			return err
		}
		if len(contacts) == 0 {
			return eris.Errorf("no contacts found in %s", importFile)
		}

		if err := env.Folders.SaveContacts(ctx, importFolder, contacts); err != nil {
			return err
		}

		zap.L().Info("contacts imported",
			zap.String("folder", importFolder),
			zap.Int("contacts", len(contacts)),
			zap.String("file", importFile),
		)
		return nil
	},
}

var importCompaniesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Import companies from a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		companies, err := ingest.ReadCompanies(importFile)
		if err != nil {
			return err
		}
		if len(companies) == 0 {
			return eris.Errorf("no companies found in %s", importFile)
		}

		if err := env.Folders.SaveCompanies(ctx, importFolder, companies); err != nil {
			return err
		}

		zap.L().Info("companies imported",
			zap.String("folder", importFolder),
			zap.Int("companies", len(companies)),
			zap.String("file", importFile),
		)
		return nil
	},
}

func init() {
	importCmd.PersistentFlags().StringVar(&importFile, "file", "", "path to CSV or XLSX file (required)")
	importCmd.PersistentFlags().StringVar(&importFolder, "folder", "", "destination folder name (required)")
	_ = importCmd.MarkPersistentFlagRequired("file")
	_ = importCmd.MarkPersistentFlagRequired("folder")

	importCmd.AddCommand(importContactsCmd)
	importCmd.AddCommand(importCompaniesCmd)
	rootCmd.AddCommand(importCmd)
}
