// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show the effective jurisdiction rates for a document profile",
	Long: `Rates prints the ICMS and ISS rates that the calculator would apply for
a state, operation type, municipality, and service code, after rate-table
overrides and fallbacks.`,
	RunE: runRates,
}

func runRates(cmd *cobra.Command, args []string) error {
	state, _ := cmd.Flags().GetString("state")
	operation, _ := cmd.Flags().GetString("operation")
	municipality, _ := cmd.Flags().GetString("municipality")
	serviceCode, _ := cmd.Flags().GetString("service-code")

	tables, err := loadRateTables(cmd)
	if err != nil {
		return err
	}

	icms := tables.ICMS(state, operation)
	fmt.Printf("ICMS %s/%s: standard %.2f%%, reduced %.2f%%\n",
		state, operation, icms.Standard, icms.Reduced)
	fmt.Printf("ISS %s (service %s): %.2f%%\n",
		municipality, serviceCode, tables.ISS(municipality, serviceCode))
	return nil
}

func init() {
	ratesCmd.Flags().String("state", "SP", "state code (UF)")
	ratesCmd.Flags().String("operation", "VENDA", "operation type")
	ratesCmd.Flags().String("municipality", "São Paulo", "municipality name")
	ratesCmd.Flags().String("service-code", "", "municipal service code")
	ratesCmd.Flags().String("rate-tables", "", "YAML file overriding the built-in rate tables")

	rootCmd.AddCommand(ratesCmd)
}
