package main

import (
	"fmt"
	"os"
	"time"

	"hostman/internal/config"
	"hostman/internal/logging"
	"hostman/internal/models"

	"github.com/spf13/cobra"
)

var (
	configPath     string
	verbose        bool
	timeoutSeconds int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hostman",
		Short: "Remote-host orchestration for testbed experiments",
		Long: `hostman drives the remote hosts of a testbed: it tests connectivity,
runs commands in the foreground or as detached background processes,
fans commands out across all hosts and sequences environment
setup/teardown steps defined in the hosts configuration file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFileName, "path to the hosts configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().IntVar(&timeoutSeconds, "timeout", 0, "override the connection timeout in seconds")

	root.AddCommand(
		newHostsCmd(),
		newTestCmd(),
		newRunCmd(),
		newDispatchCmd(),
		newBatchCmd(),
		newSetupCmd(),
		newTeardownCmd(),
		newFetchCmd(),
		newPushCmd(),
		newShellCmd(),
	)
	return root
}

// loadManager loads and resolves the configuration. This is the only place
// where a failure is fatal to the whole invocation.
func loadManager() (*config.Manager, error) {
	m := config.NewManager(configPath)
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

// effectiveSpecs applies the --timeout override on top of the resolved
// specs. The manager's own map stays untouched.
func effectiveSpecs(m *config.Manager) map[string]models.ResolvedSpec {
	specs := m.Specs()
	if timeoutSeconds <= 0 {
		return specs
	}
	out := make(map[string]models.ResolvedSpec, len(specs))
	for name, spec := range specs {
		spec.Timeout = time.Duration(timeoutSeconds) * time.Second
		out[name] = spec
	}
	return out
}

// effectiveSpec resolves one host with the --timeout override applied.
func effectiveSpec(m *config.Manager, name string) (models.ResolvedSpec, error) {
	spec, err := m.Spec(name)
	if err != nil {
		return models.ResolvedSpec{}, err
	}
	if timeoutSeconds > 0 {
		spec.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return spec, nil
}
