package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shoplens/shoplens/config"
	srv "github.com/shoplens/shoplens/internal/server"
	"github.com/shoplens/shoplens/models"
)

func analyzeCMD() *cobra.Command {
	var cfgPath string
	var noPrices, noWebSearch, asJSON bool
	var analyze = &cobra.Command{
		Use:   "analyze [product-url]",
		Short: "Analyze one product URL and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			orch, _, err := srv.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			opts := models.AnalyzeOptions{
				IncludePriceComparison: !noPrices,
				IncludeWebSearch:       !noWebSearch,
			}
			res, err := orch.Analyze(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			fmt.Printf("tier: %s\n\n", res.Tier)
			if res.AnalysisErr != nil {
				fmt.Printf("analysis unavailable: %v\n", res.AnalysisErr)
			} else {
				fmt.Println(res.ReportText)
			}
			if len(res.Degraded) > 0 {
				fmt.Printf("\ndegraded branches: %v\n", res.Degraded)
			}
			return nil
		},
	}
	analyze.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	analyze.Flags().BoolVar(&noPrices, "no-prices", false, "skip competitor price comparison")
	analyze.Flags().BoolVar(&noWebSearch, "no-web-search", false, "skip web reputation search")
	analyze.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")

	return analyze
}
