package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spendcast/internal/cli"
	"spendcast/internal/services"
)

var (
	flagModel    string
	flagCategory string
)

var predictCmd = &cobra.Command{
	Use:   "predict <user_id>",
	Short: "Forecast daily spending with one model",
	Args:  cobra.ExactArgs(1),
	RunE:  runPredict,
}

func init() {
	predictCmd.Flags().StringVarP(&flagModel, "model", "m", "linear", "Model: linear or lstm")
	predictCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "Restrict to one category")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := svc.Predict(cmd.Context(), services.PredictRequest{
		UserID:    args[0],
		Category:  flagCategory,
		DaysAhead: flagDays,
		ModelType: flagModel,
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), cli.RenderForecast(resp))
	return nil
}
