package main

import (
	"path/filepath"

	"hostman/internal/ssh"

	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "fetch HOST REMOTE_PATH [LOCAL_PATH]",
		Short: "Download a file from a host over SFTP",
		Long: `Download a remote file, typically a log written by a dispatched
command's output redirection. Without LOCAL_PATH the file lands in the
current directory under its remote base name. With --stdout the file is
printed instead of saved.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManager()
			if err != nil {
				return err
			}
			spec, err := effectiveSpec(m, args[0])
			if err != nil {
				return err
			}

			if toStdout {
				data, err := ssh.ReadRemote(cmd.Context(), spec, args[1])
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			local := filepath.Base(args[1])
			if len(args) == 3 {
				local = args[2]
			}
			return ssh.Fetch(cmd.Context(), spec, args[1], local)
		},
	}

	cmd.Flags().BoolVar(&toStdout, "stdout", false, "print the remote file to stdout instead of saving it")
	return cmd
}

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push HOST LOCAL_PATH REMOTE_PATH",
		Short: "Upload a file to a host over SCP",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManager()
			if err != nil {
				return err
			}
			spec, err := effectiveSpec(m, args[0])
			if err != nil {
				return err
			}
			return ssh.Push(cmd.Context(), spec, args[1], args[2])
		},
	}
}

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell HOST",
		Short: "Open an interactive shell on a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManager()
			if err != nil {
				return err
			}
			spec, err := effectiveSpec(m, args[0])
			if err != nil {
				return err
			}
			return ssh.StartShell(cmd.Context(), spec)
		},
	}
}
