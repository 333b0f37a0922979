package main

import (
	"fmt"
	"strings"

	"hostman/internal/models"
	"hostman/internal/orchestrator"
	"hostman/internal/ssh"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run HOST COMMAND...",
		Short: "Run a command in the foreground on one host",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManager()
			if err != nil {
				return err
			}
			spec, err := effectiveSpec(m, args[0])
			if err != nil {
				return err
			}

			res := ssh.NewExecutor().Run(cmd.Context(), spec, strings.Join(args[1:], " "))
			fmt.Fprint(cmd.OutOrStdout(), renderResult(args[0], res))
			if !res.Success {
				return fmt.Errorf("command failed on %s", args[0])
			}
			return nil
		},
	}
}

func newDispatchCmd() *cobra.Command {
	var logPath, session string

	cmd := &cobra.Command{
		Use:   "dispatch HOST COMMAND...",
		Short: "Launch a detached background command on one host",
		Long: `Launch a command on a host so that it keeps running after the SSH
session closes. With --session the command runs in a fresh tmux session
and the PID is read from its pane; otherwise the command is detached with
nohup and the PID comes from a shell sentinel. --log appends the command's
combined output to a remote file.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManager()
			if err != nil {
				return err
			}
			spec, err := effectiveSpec(m, args[0])
			if err != nil {
				return err
			}

			res := ssh.NewExecutor().Dispatch(cmd.Context(), spec, strings.Join(args[1:], " "), models.DispatchOptions{
				Session: session,
				LogPath: logPath,
			})
			fmt.Fprint(cmd.OutOrStdout(), renderResult(args[0], res))
			if !res.Success {
				return fmt.Errorf("dispatch failed on %s", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "", "remote file receiving the command's combined output (append mode)")
	cmd.Flags().StringVar(&session, "session", "", "run the command inside a tmux session with this name")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var (
		hosts   []string
		exclude []string
		logPath string
		session string
		detach  bool
	)

	cmd := &cobra.Command{
		Use:   "batch COMMAND...",
		Short: "Run a command across all hosts or a subset",
		Long: `Run one command against every configured host, or the subset named
with --hosts, minus any hosts named with --exclude. Hosts are processed
concurrently and one host's failure never aborts the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManager()
			if err != nil {
				return err
			}

			targets := hosts
			if len(targets) == 0 {
				targets = m.HostNames()
			}
			targets = without(targets, exclude)

			batch := orchestrator.NewBatch(effectiveSpecs(m), ssh.NewExecutor(), ssh.NewTester())
			command := strings.Join(args, " ")

			var results map[string]models.ExecutionResult
			if detach {
				results = batch.DispatchAll(cmd.Context(), command, models.DispatchOptions{
					Session: session,
					LogPath: logPath,
				}, targets...)
			} else {
				results = batch.ExecuteAll(cmd.Context(), command, targets...)
			}

			fmt.Fprint(cmd.OutOrStdout(), renderResults(results))
			failed := 0
			for _, res := range results {
				if !res.Success {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("command failed on %d of %d hosts", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&hosts, "hosts", nil, "restrict the batch to these hosts")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "skip these hosts")
	cmd.Flags().StringVar(&logPath, "log", "", "remote log file for detached output (append mode)")
	cmd.Flags().StringVar(&session, "session", "", "tmux session name prefix for detached commands")
	cmd.Flags().BoolVar(&detach, "detach", false, "launch the command as a detached background process")
	return cmd
}

func without(names, exclude []string) []string {
	if len(exclude) == 0 {
		return names
	}
	drop := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		drop[name] = true
	}
	out := names[:0:0]
	for _, name := range names {
		if !drop[name] {
			out = append(out, name)
		}
	}
	return out
}
