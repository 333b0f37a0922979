// internal/ssh/session_windows.go
//go:build windows

package ssh

import (
	"context"
	"fmt"
	"os"
	"time"

	"hostman/internal/models"

	mobyterm "github.com/moby/term"
	"golang.org/x/crypto/ssh"
)

// StartShell runs an interactive PTY session on the host. The Windows
// console is switched to raw VT mode through moby/term; resizes are picked
// up by polling since there is no SIGWINCH.
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

	stdin, stdout, stderr := mobyterm.StdStreams()
	inFd, _ := mobyterm.GetFdInfo(stdin)
	outFd, _ := mobyterm.GetFdInfo(stdout)

	inState, err := mobyterm.SetRawTerminal(inFd)
	if err != nil {
		return fmt.Errorf("failed to set raw terminal: %w", err)
	}
	defer func() {
		if err := mobyterm.RestoreTerminal(inFd, inState); err != nil {
			fmt.Fprintf(os.Stderr, "failed to restore terminal state: %v\n", err)
		}
	}()
	outState, err := mobyterm.SetRawTerminalOutput(outFd)
	if err == nil {
		defer mobyterm.RestoreTerminal(outFd, outState)
	}

	width, height := 80, 40
	if ws, err := mobyterm.GetWinsize(outFd); err == nil {
		width, height = int(ws.Width), int(ws.Height)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty("xterm-256color", height, width, modes); err != nil {
		return fmt.Errorf("failed to request pty: %w", err)
	}

	sess.Stdin = stdin
	sess.Stdout = stdout
	sess.Stderr = stderr

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		lastW, lastH := width, height
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ws, err := mobyterm.GetWinsize(outFd)
				if err != nil {
					continue
				}
				if int(ws.Width) != lastW || int(ws.Height) != lastH {
					lastW, lastH = int(ws.Width), int(ws.Height)
					_ = sess.WindowChange(lastH, lastW)
				}
			}
		}
	}()

	if err := sess.Shell(); err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}
	return sess.Wait()
}
