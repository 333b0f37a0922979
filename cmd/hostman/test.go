package main

import (
	"fmt"
	"sort"

	"hostman/internal/orchestrator"
	"hostman/internal/ssh"

	"github.com/spf13/cobra"
)

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test [host...]",
		Short: "Test connectivity to all hosts or a named subset",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManager()
			if err != nil {
				return err
			}

			batch := orchestrator.NewBatch(effectiveSpecs(m), ssh.NewExecutor(), ssh.NewTester())
			ok, diags := batch.TestAll(cmd.Context(), args...)

			names := make([]string, 0, len(ok))
			for name := range ok {
				names = append(names, name)
			}
			sort.Strings(names)

			failed := 0
			for _, name := range names {
				if ok[name] {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", statusMark(true), hostStyle.Render(name))
					continue
				}
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", statusMark(false), hostStyle.Render(name), failStyle.Render(diags[name]))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d hosts unreachable", failed, len(ok))
			}
			return nil
		},
	}
}
