package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/1broseidon/winplace/internal/ipc"
)

func (a *app) newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask a running daemon to exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ipc.NewClient().Stop(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "stop requested")
			return nil
		},
	}
}

func (a *app) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ipc.NewClient().Status()
			if err != nil {
				return err
			}
			printStatus(cmd, status)
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, s *ipc.StatusData) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "daemon_running: %v\n", s.DaemonRunning)
	fmt.Fprintf(w, "pid:            %d\n", s.PID)
	fmt.Fprintf(w, "run_id:         %s\n", s.RunID)
	fmt.Fprintf(w, "uptime:         %s\n", (time.Duration(s.UptimeSeconds) * time.Second).String())
	fmt.Fprintf(w, "rules_file:     %s\n", s.RulesFile)
	fmt.Fprintf(w, "rule_count:     %d\n", s.RuleCount)
	fmt.Fprintf(w, "log_file:       %s\n", s.LogFile)
	fmt.Fprintf(w, "windows seen:   %d\n", s.Stats.Seen)
	fmt.Fprintf(w, "  matched:      %d\n", s.Stats.Matched)
	fmt.Fprintf(w, "  applied:      %d\n", s.Stats.Applied)
	fmt.Fprintf(w, "  unsupported:  %d\n", s.Stats.Unsupported)
	fmt.Fprintf(w, "  no match:     %d\n", s.Stats.NoMatch)
	fmt.Fprintf(w, "  not ready:    %d\n", s.Stats.NotReady)
	fmt.Fprintf(w, "  no process:   %d\n", s.Stats.NoProcess)
	fmt.Fprintf(w, "  failed:       %d\n", s.Stats.Failed)
}
