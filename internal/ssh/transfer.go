// internal/ssh/transfer.go

package ssh

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"hostman/internal/logging"
	"hostman/internal/models"

	scp "github.com/bramvdbogaerde/go-scp"
	"github.com/pkg/sftp"
)

// Fetch downloads a remote file over SFTP, typically a log written by a
// dispatched command's output redirection. The local parent directory is
// created if needed.
func Fetch(ctx context.Context, spec models.ResolvedSpec, remotePath, localPath string) error {
	log := logging.Component("transfer")

	conn, err := Dial(ctx, spec)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn.Client())
	if err != nil {
		return fmt.Errorf("failed to create sftp client: %w", err)
	}
	defer client.Close()

	remote, err := client.Open(remotePath)
	if err != nil {
		return fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
	}
	defer remote.Close()

	if dir := filepath.Dir(localPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create local directory %s: %w", dir, err)
		}
	}
	local, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer local.Close()

	n, err := io.Copy(local, remote)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", remotePath, err)
	}

	log.Debug().Str("host", spec.Name).Str("remote", remotePath).Int64("bytes", n).Msg("fetched file")
	return nil
}

// ReadRemote returns the full contents of a remote file over SFTP.
func ReadRemote(ctx context.Context, spec models.ResolvedSpec, remotePath string) ([]byte, error) {
	conn, err := Dial(ctx, spec)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn.Client())
	if err != nil {
		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}
	defer client.Close()

	remote, err := client.Open(remotePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
	}
	defer remote.Close()

	return io.ReadAll(remote)
}

// Push uploads a local file over SCP, used to stage experiment scripts
// before a setup run.
func Push(ctx context.Context, spec models.ResolvedSpec, localPath, remotePath string) error {
	log := logging.Component("transfer")

	conn, err := Dial(ctx, spec)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := scp.NewClientBySSH(conn.Client())
	if err != nil {
		return fmt.Errorf("failed to create scp client: %w", err)
	}
	defer client.Close()

	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localPath, err)
	}
	defer local.Close()

	if err := client.CopyFromFile(ctx, *local, remotePath, "0644"); err != nil {
		return fmt.Errorf("failed to upload %s: %w", localPath, err)
	}

	log.Debug().Str("host", spec.Name).Str("local", localPath).Str("remote", remotePath).Msg("pushed file")
	return nil
}
