// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshintel/fiscal-engine/internal/report"
	"github.com/meshintel/fiscal-engine/internal/store"
	"github.com/meshintel/fiscal-engine/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a monthly fiscal report for a user",
	Long: `Report aggregates a user's processed documents for one month, persists
the aggregate, and writes a Markdown rendering to the report directory.`,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")
	monthNum, _ := cmd.Flags().GetInt("month")
	year, _ := cmd.Flags().GetInt("year")

	if monthNum < 1 || monthNum > 12 {
		return fmt.Errorf("invalid month %d: must be 1-12", monthNum)
	}
	if year < 2000 {
		return fmt.Errorf("invalid year %d", year)
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = viper.GetString("storage.data_dir")
	}
	st, err := store.Open(types.StorageConfig{DataDir: dataDir})
	if err != nil {
		return err
	}
	defer st.Close()

	outDir, _ := cmd.Flags().GetString("output-dir")
	if outDir == "" {
		outDir = viper.GetString("report.output_dir")
	}

	summary, err := report.Generate(context.Background(), st, userID,
		time.Month(monthNum), year, types.ReportConfig{OutputDir: outDir}, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Printf("%04d-%02d: %d document(s), R$ %.2f total\n",
		year, monthNum, summary.TotalDocuments, summary.TotalValue)
	return nil
}

func init() {
	now := time.Now()
	reportCmd.Flags().String("user", "default", "user to report on")
	reportCmd.Flags().Int("month", int(now.Month()), "report month (1-12)")
	reportCmd.Flags().Int("year", now.Year(), "report year")
	reportCmd.Flags().String("data-dir", "", "base directory for the document store (default: data)")
	reportCmd.Flags().String("output-dir", "", "directory for rendered reports (default: output/reports)")

	rootCmd.AddCommand(reportCmd)
}
