package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fieldtally/internal/fieldapi"
	"fieldtally/internal/outbox"
)

func newDayCommand(ctx *commandContext) *cobra.Command {
	dayCmd := &cobra.Command{
		Use:   "day",
		Short: "Work day operations",
	}

	var workDate string
	var dayNote string
	openCmd := &cobra.Command{
		Use:   "open <worker-id>",
		Short: "Open a worker's day sheet (queued when offline)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if workDate == "" {
				workDate = time.Now().Format("2006-01-02")
			}
			in := fieldapi.CreateWorkDayInput{
				WorkerID: args[0],
				WorkDate: workDate,
				DayNote:  dayNote,
			}
			return ctx.withAPI(func(api *fieldapi.Client, _ *outbox.Store) error {
				result, err := api.CreateWorkDay(cmd.Context(), in)
				if err != nil {
					return err
				}
				if result.Queued {
					reportMutation(cmd, result, "")
					return nil
				}
				var out struct {
					WorkDayID string `json:"work_day_id"`
				}
				if err := json.Unmarshal(result.Body, &out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Work day %s\n", out.WorkDayID)
				return nil
			})
		},
	}
	openCmd.Flags().StringVar(&workDate, "date", "", "Work date (YYYY-MM-DD, default today)")
	openCmd.Flags().StringVar(&dayNote, "note", "", "Day note")

	var start, end string
	listCmd := &cobra.Command{
		Use:   "list <worker-id>",
		Short: "List a worker's day sheets with tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAPI(func(api *fieldapi.Client, _ *outbox.Store) error {
				days, err := api.WorkerDays(cmd.Context(), args[0], start, end)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(days) == 0 {
					fmt.Fprintln(stdout, "No work days")
					return nil
				}
				for _, day := range days {
					fmt.Fprintf(stdout, "%s (%s)", day.WorkDate, day.WorkDayID)
					if day.IsClosed {
						fmt.Fprint(stdout, " [closed]")
					}
					fmt.Fprintln(stdout)
					for _, task := range day.Tasks {
						fmt.Fprintf(stdout, "  %-10s %8.2f %-4s %s\n", task.Code, task.Quantity, task.Unit, task.Status)
					}
				}
				return nil
			})
		},
	}
	listCmd.Flags().StringVar(&start, "start", "", "Start date filter (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&end, "end", "", "End date filter (YYYY-MM-DD)")

	dayCmd.AddCommand(openCmd, listCmd)
	return dayCmd
}

func newTaskCommand(ctx *commandContext) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Work task operations",
	}

	var taskType string
	var quantity float64
	var note string
	logCmd := &cobra.Command{
		Use:   "log <work-day-id>",
		Short: "Log a task against a day sheet (queued when offline)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskType == "" {
				return fmt.Errorf("--type is required")
			}
			if quantity < 0 {
				return fmt.Errorf("quantity cannot be negative")
			}
			in := fieldapi.CreateWorkTaskInput{
				WorkDayID:  args[0],
				TaskTypeID: taskType,
				Quantity:   quantity,
				Note:       note,
			}
			return ctx.withAPI(func(api *fieldapi.Client, _ *outbox.Store) error {
				result, err := api.CreateWorkTask(cmd.Context(), in)
				if err != nil {
					return err
				}
				reportMutation(cmd, result, "Task logged")
				return nil
			})
		},
	}
	logCmd.Flags().StringVar(&taskType, "type", "", "Task type id")
	logCmd.Flags().Float64Var(&quantity, "qty", 0, "Quantity")
	logCmd.Flags().StringVar(&note, "note", "", "Task note")

	var reason string
	decideCmd := &cobra.Command{
		Use:   "decide <task-id> <approved|rejected>",
		Short: "Approve or reject a logged task (queued when offline)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAPI(func(api *fieldapi.Client, _ *outbox.Store) error {
				result, err := api.DecideTask(cmd.Context(), args[0], args[1], reason)
				if err != nil {
					return err
				}
				reportMutation(cmd, result, fmt.Sprintf("Task %s", args[1]))
				return nil
			})
		},
	}
	decideCmd.Flags().StringVar(&reason, "reason", "", "Decision reason")

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "List tasks awaiting a decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAPI(func(api *fieldapi.Client, _ *outbox.Store) error {
				tasks, err := api.PendingApprovals(cmd.Context())
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(tasks) == 0 {
					fmt.Fprintln(stdout, "No pending tasks")
					return nil
				}
				rows := make([][]string, 0, len(tasks))
				for _, task := range tasks {
					rows = append(rows, []string{
						task.WorkDate,
						task.WorkerName,
						task.TaskCode,
						fmt.Sprintf("%.2f %s", task.Quantity, task.Unit),
						task.TaskID,
					})
				}
				table := renderTable(
					[]string{"Date", "Worker", "Task", "Quantity", "ID"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	var bulkReason string
	bulkCmd := &cobra.Command{
		Use:   "bulk-decide <approved|rejected> <task-id>...",
		Short: "Apply one decision to several tasks (queued when offline)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAPI(func(api *fieldapi.Client, _ *outbox.Store) error {
				result, out, err := api.BulkDecide(cmd.Context(), args[1:], args[0], bulkReason)
				if err != nil {
					return err
				}
				if result.Queued {
					reportMutation(cmd, result, "")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d tasks\n", out.Updated)
				return nil
			})
		},
	}
	bulkCmd.Flags().StringVar(&bulkReason, "reason", "", "Decision reason")

	taskCmd.AddCommand(logCmd, decideCmd, bulkCmd, pendingCmd)
	return taskCmd
}
