package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spendcast/internal/cli"
)

var compareCmd = &cobra.Command{
	Use:   "compare <user_id>",
	Short: "Compare the linear and lstm forecasts",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	svc, closeFn, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := svc.Compare(cmd.Context(), args[0], flagDays)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), cli.RenderCompare(resp))
	return nil
}
