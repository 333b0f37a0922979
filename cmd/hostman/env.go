package main

import (
	"fmt"

	"hostman/internal/orchestrator"
	"hostman/internal/ssh"

	"github.com/spf13/cobra"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Run the environment setup sequence from the configuration file",
		Long: `Run the ordered setup steps declared under the setup: key of the
configuration file. Steps run strictly in order; a step's wait is honored
before the next one starts. Failures are recorded and the sequence
continues unless the failed step is marked critical, in which case the
remaining steps are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManager()
			if err != nil {
				return err
			}
			steps := m.SetupSteps()
			if len(steps) == 0 {
				return fmt.Errorf("no setup steps defined in %s", configPath)
			}

			env := orchestrator.NewEnv(effectiveSpecs(m), ssh.NewExecutor())
			result := env.Setup(cmd.Context(), steps)
			fmt.Fprint(cmd.OutOrStdout(), renderEnv(result))
			if !result.OverallSuccess {
				return fmt.Errorf("environment setup failed")
			}
			return nil
		},
	}
}

func newTeardownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teardown",
		Short: "Run the environment teardown sequence from the configuration file",
		Long: `Run the ordered teardown steps declared under the teardown: key of the
configuration file. Every step is attempted even when earlier ones fail,
so a single failure cannot leave the rest of the environment running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManager()
			if err != nil {
				return err
			}
			steps := m.TeardownSteps()
			if len(steps) == 0 {
				return fmt.Errorf("no teardown steps defined in %s", configPath)
			}

			env := orchestrator.NewEnv(effectiveSpecs(m), ssh.NewExecutor())
			result := env.Cleanup(cmd.Context(), steps)
			fmt.Fprint(cmd.OutOrStdout(), renderEnv(result))
			if !result.OverallSuccess {
				return fmt.Errorf("environment teardown finished with errors")
			}
			return nil
		},
	}
}
