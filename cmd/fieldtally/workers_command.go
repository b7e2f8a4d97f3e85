package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldtally/internal/fieldapi"
	"fieldtally/internal/outbox"
)

func newWorkersCommand(ctx *commandContext) *cobra.Command {
	workersCmd := &cobra.Command{
		Use:   "workers",
		Short: "Worker roster operations",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List active workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAPI(func(api *fieldapi.Client, _ *outbox.Store) error {
				workers, err := api.ListWorkers(cmd.Context())
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(workers) == 0 {
					fmt.Fprintln(stdout, "No workers")
					return nil
				}
				rows := make([][]string, 0, len(workers))
				for _, w := range workers {
					rows = append(rows, []string{
						w.WorkerCode,
						w.FullName,
						w.Payout,
						yesNo(w.IsActive),
						w.ID,
					})
				}
				table := renderTable(
					[]string{"Code", "Name", "Payout", "Active", "ID"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	var createCode string
	var createName string
	var createPayout string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new worker (queued when offline)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if createCode == "" || createName == "" || createPayout == "" {
				return fmt.Errorf("--code, --name, and --payout are required")
			}
			in := fieldapi.CreateWorkerInput{
				WorkerCode: createCode,
				FullName:   createName,
				Payout:     createPayout,
			}
			return ctx.withAPI(func(api *fieldapi.Client, _ *outbox.Store) error {
				result, err := api.CreateWorker(cmd.Context(), in)
				if err != nil {
					return err
				}
				reportMutation(cmd, result, "Worker created")
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&createCode, "code", "", "Worker code")
	createCmd.Flags().StringVar(&createName, "name", "", "Full name")
	createCmd.Flags().StringVar(&createPayout, "payout", "", "Payout frequency, e.g. daily:5000")

	var updateName string
	var updatePayout string
	updateCmd := &cobra.Command{
		Use:   "update <worker-id>",
		Short: "Update a worker record (queued when offline)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := fieldapi.UpdateWorkerInput{}
			if updateName != "" {
				in.FullName = &updateName
			}
			if updatePayout != "" {
				in.Payout = &updatePayout
			}
			if in.FullName == nil && in.Payout == nil {
				return fmt.Errorf("nothing to update; pass --name or --payout")
			}
			return ctx.withAPI(func(api *fieldapi.Client, _ *outbox.Store) error {
				result, err := api.UpdateWorker(cmd.Context(), args[0], in)
				if err != nil {
					return err
				}
				reportMutation(cmd, result, "Worker updated")
				return nil
			})
		},
	}
	updateCmd.Flags().StringVar(&updateName, "name", "", "New full name")
	updateCmd.Flags().StringVar(&updatePayout, "payout", "", "New payout frequency")

	workersCmd.AddCommand(listCmd, createCmd, updateCmd)
	return workersCmd
}

// reportMutation prints the outcome of a queueable write: confirmed by the
// server, or captured locally for replay.
func reportMutation(cmd *cobra.Command, result *fieldapi.MutationResult, confirmed string) {
	stdout := cmd.OutOrStdout()
	if result.Queued {
		fmt.Fprintf(stdout, "Offline: saved locally for replay (item %s)\n", result.ItemID)
		return
	}
	fmt.Fprintln(stdout, confirmed)
}
