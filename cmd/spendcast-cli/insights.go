package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spendcast/internal/cli"
)

var insightsCmd = &cobra.Command{
	Use:   "insights <user_id>",
	Short: "Per-category forecasts with recommendations",
	Args:  cobra.ExactArgs(1),
	RunE:  runInsights,
}

func init() {
	rootCmd.AddCommand(insightsCmd)
}

func runInsights(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := svc.Insights(cmd.Context(), args[0], flagDays)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), cli.RenderInsights(resp))
	return nil
}
