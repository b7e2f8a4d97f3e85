package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fieldtally/internal/daemonctl"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, connectivity, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			status := snapshot.Status

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if status.Running {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "Not running (run `fieldtally start`)", colorize))
			}
			fmt.Fprintln(stdout, renderStatusLine("Connectivity", connectivityKind(status.Connectivity), status.Connectivity, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Remote", statusInfo, status.RemoteURL, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Proxy", statusInfo, status.ProxyBind, colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Local Data", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderStatusLine("Outbox DB", statusInfo, status.OutboxDBPath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Cache DB", statusInfo, status.CacheDBPath, colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Pending Queue", colorize) {
				fmt.Fprintln(stdout, line)
			}
			switch {
			case status.QueueDepth < 0:
				fmt.Fprintln(stdout, renderStatusLine("Depth", statusWarn, "unavailable", colorize))
			case status.QueueDepth == 0:
				fmt.Fprintln(stdout, renderStatusLine("Depth", statusOK, "0 (all synced)", colorize))
			default:
				fmt.Fprintln(stdout, renderStatusLine("Depth", statusWarn, fmt.Sprintf("%d pending (run `fieldtally sync`)", status.QueueDepth), colorize))
			}
			return nil
		},
	}
}

func connectivityKind(state string) statusKind {
	switch state {
	case "online":
		return statusOK
	case "offline":
		return statusWarn
	default:
		return statusInfo
	}
}
