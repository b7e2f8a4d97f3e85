package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fieldtally/internal/ipc"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the pending mutation queue",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List pending mutations in replay order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueList()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(stdout, "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					rows = append(rows, []string{
						strconv.FormatInt(item.Seq, 10),
						item.ID,
						item.EnqueuedAt,
						item.Method,
						item.Path,
						strconv.Itoa(item.BodyBytes),
					})
				}
				table := renderTable(
					[]string{"Seq", "ID", "Enqueued", "Method", "Path", "Bytes"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	var clearYes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard all pending mutations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !clearYes {
				return fmt.Errorf("queue clear discards unsent work; rerun with --yes to confirm")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueClear()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d pending mutations\n", resp.Removed)
				return nil
			})
		},
	}
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm discarding pending mutations")

	removeCmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Discard a single pending mutation by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueRemove(args[0])
				if err != nil {
					return err
				}
				if !resp.Removed {
					fmt.Fprintf(cmd.OutOrStdout(), "No pending mutation with id %s\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}

	queueCmd.AddCommand(listCmd, clearCmd, removeCmd)
	return queueCmd
}
