package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leads-cli/internal/enrich"
)

var (
	exportFolder      string
	exportModel       string
	exportOutput      string
	exportFindDomains bool
	exportSplitNames  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Enrich a contact folder and export it to XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "export")
		if err != nil {
			return err
		}
		defer env.Close()

		contacts, err := env.Folders.Contacts(ctx, exportFolder)
		if err != nil {
			return err
		}
		companies, err := env.Folders.LinkedCompanies(ctx, exportFolder)
		if err != nil {
			return err
		}

		if exportModel == "" {
			exportModel = cfg.Gemini.Model
		}
		if exportOutput == "" {
			exportOutput = cfg.Export.OutputDir
		}

		result, err := env.Coordinator.Run(ctx, enrich.Options{
			Folder:      exportFolder,
			Contacts:    contacts,
			Companies:   companies,
			FindDomains: exportFindDomains,
			SplitNames:  exportSplitNames,
			Model:       exportModel,
			OutputDir:   exportOutput,
		})
		if err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("run_id", result.RunID),
			zap.String("path", result.ContactsPath),
			zap.Int("contacts", len(contacts)),
			zap.Int("domains_resolved", result.DomainsResolved),
			zap.Int("names_split", result.NamesSplit),
			zap.Int("companies_matched", result.CompaniesMatched),
		)
		return nil
	},
}

var exportCompaniesCmd = &cobra.Command{
	Use:   "export-companies",
	Short: "Export a company folder to XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "local")
		if err != nil {
			return err
		}
		defer env.Close()

		companies, err := env.Folders.Companies(ctx, exportFolder)
		if err != nil {
			return err
		}

		if exportOutput == "" {
			exportOutput = cfg.Export.OutputDir
		}

		path, err := env.Coordinator.ExportCompanies(ctx, exportFolder, companies, exportOutput)
		if err != nil {
			return err
		}

		zap.L().Info("company export complete",
			zap.String("path", path),
			zap.Int("companies", len(companies)),
		)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, exportCompaniesCmd} {
		c.Flags().StringVar(&exportFolder, "folder", "", "folder to export (required)")
		c.Flags().StringVar(&exportOutput, "output", "", "output directory (default from config)")
		_ = c.MarkFlagRequired("folder")
	}
	exportCmd.Flags().StringVar(&exportModel, "model", "", "gemini model (default from config)")
	exportCmd.Flags().BoolVar(&exportFindDomains, "find-domains", true, "resolve company website domains")
	exportCmd.Flags().BoolVar(&exportSplitNames, "split-names", true, "split person names into first/last/title")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(exportCompaniesCmd)
}
