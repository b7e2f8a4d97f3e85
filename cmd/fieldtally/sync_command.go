package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldtally/internal/ipc"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay pending mutations against the server now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SyncNow()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Error != "" {
					if resp.Synced > 0 {
						fmt.Fprintf(stdout, "Replayed %d mutations before halting\n", resp.Synced)
					}
					if resp.FailedID != "" {
						fmt.Fprintf(stdout, "Halted at item %s\n", resp.FailedID)
					}
					return fmt.Errorf("sync halted: %s", resp.Error)
				}
				if resp.Synced == 0 {
					fmt.Fprintln(stdout, "Queue is empty, nothing to sync")
					return nil
				}
				fmt.Fprintf(stdout, "Replayed %d mutations\n", resp.Synced)
				return nil
			})
		},
	}
}
