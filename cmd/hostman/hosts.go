package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHostsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hosts",
		Short: "List configured hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManager()
			if err != nil {
				return err
			}
			for _, name := range m.HostNames() {
				spec, _ := m.Spec(name)
				desc := spec.Description
				if desc == "" {
					desc = "no description"
				}
				via := ""
				if len(spec.Hops) > 0 {
					via = dimStyle.Render(fmt.Sprintf(" (via %s)", spec.Hops[0].Host))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s%s\n    %s\n",
					hostStyle.Render(name), dimStyle.Render(spec.ConnectionInfo()), via, desc)
			}
			return nil
		},
	}
}
