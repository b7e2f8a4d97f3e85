package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldtally/internal/fieldapi"
	"fieldtally/internal/outbox"
)

func newPayrollCommand(ctx *commandContext) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "payroll <worker-id>",
		Short: "Show a worker's approved-pay rollup for the current period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAPI(func(api *fieldapi.Client, _ *outbox.Store) error {
				summary, err := api.Payroll(cmd.Context(), args[0], asOf)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Worker: %s\n", summary.WorkerName)
				fmt.Fprintf(stdout, "Period: %s to %s\n", summary.PeriodStart, summary.PeriodEnd)
				fmt.Fprintf(stdout, "Total:  %.2f NGN\n", summary.TotalNGN)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Period reference date (YYYY-MM-DD, default today)")
	return cmd
}
