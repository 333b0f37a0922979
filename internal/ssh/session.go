// internal/ssh/session.go
//go:build !windows

package ssh

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hostman/internal/models"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/term"
)

// StartShell runs an interactive PTY session on the host, with the local
// terminal in raw mode and window resizes propagated. It returns when the
// remote shell exits; the terminal state is restored on every exit path.
func StartShell(ctx context.Context, spec models.ResolvedSpec) error {
	conn, err := Dial(ctx, spec)
	if err != nil {
		return err
	}
	defer conn.Close()

	sess, err := conn.NewSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	if spec.ForwardAgent && localAgent() != nil {
		_ = agent.RequestAgentForwarding(sess)
	}

	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw terminal: %w", err)
	}
	defer func() {
		if err := term.Restore(fd, state); err != nil {
			fmt.Fprintf(os.Stderr, "failed to restore terminal state: %v\n", err)
		}
	}()

	width, height, err := term.GetSize(fd)
	if err != nil {
		width, height = 80, 40
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty(termType(), height, width, modes); err != nil {
		return fmt.Errorf("failed to request pty: %w", err)
	}

	sess.Stdin = os.Stdin
	sess.Stdout = os.Stdout
	sess.Stderr = os.Stderr

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)
	go func() {
		for range winch {
			if w, h, err := term.GetSize(fd); err == nil {
				_ = sess.WindowChange(h, w)
			}
		}
	}()

	if err := sess.Shell(); err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}
	return sess.Wait()
}

func termType() string {
	if t := os.Getenv("TERM"); t != "" {
		return t
	}
	return "xterm-256color"
}
