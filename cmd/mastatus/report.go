package main

import (
	"errors"
	"fmt"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var reportXLSX string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rebuild the results files from stored verdicts",
	Long: `Reads every verdict stored in the database, in input order, and writes the
results CSV, the summary JSON and, when configured, the Excel workbook. No
website is contacted.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportXLSX, "xlsx", "", "Also write an Excel workbook to this path (overrides xlsx_path)")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if reportXLSX != "" {
		cfg.XLSXPath = reportXLSX
	}

	store, err := storage.NewStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	verdicts, err := store.LoadVerdicts()
	if err != nil {
		return err
	}
	if len(verdicts) == 0 {
		return errors.New("no stored verdicts: run the check command first")
	}
	logrus.Infof("Loaded %d stored verdicts from %s", len(verdicts), cfg.DBPath)

	summary, err := writeOutputs(cfg, verdicts)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), summary.Render())
	return nil
}
