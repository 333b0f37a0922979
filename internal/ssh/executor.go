// internal/ssh/executor.go

package ssh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hostman/internal/apperr"
	"hostman/internal/logging"
	"hostman/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// Executor runs commands on remote hosts. Every call opens a fresh
// connection and releases it before returning; nothing is pooled.
type Executor struct {
	log zerolog.Logger
}

func NewExecutor() *Executor {
	return &Executor{log: logging.Component("executor")}
}

// Run executes a command in the foreground and captures its combined output
// and exit code. A non-zero exit is reported in the result, not as a Go
// error; only connection-level failures leave Success unset with no output.
func (e *Executor) Run(ctx context.Context, spec models.ResolvedSpec, command string) models.ExecutionResult {
	result := models.ExecutionResult{ConnectionInfo: spec.ConnectionInfo()}

	conn, err := Dial(ctx, spec)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer conn.Close()

	sess, err := conn.NewSession()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer sess.Close()

	e.log.Debug().Str("host", spec.Name).Str("command", command).Msg("executing command")

	out, err := sess.CombinedOutput(command)
	result.Output = strings.TrimRight(string(out), "\n")
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			result.Error = fmt.Sprintf("command exited with status %d", result.ExitCode)
		} else {
			result.Error = err.Error()
		}
		return result
	}

	result.Success = true
	return result
}

// Dispatch launches a command as a detached background process and reports
// its remote PID. With a session name the command runs inside a fresh tmux
// session and the PID comes from the session's pane; otherwise the command
// is detached with nohup and the launching shell prints the PID as a
// sentinel on the dispatch channel's own output.
//
// Dispatch acceptance and PID retrieval are separate concerns: a dispatch
// the remote shell accepted is a success even when the PID could not be
// parsed, in which case the result carries a warning and no PID.
func (e *Executor) Dispatch(ctx context.Context, spec models.ResolvedSpec, command string, opts models.DispatchOptions) models.ExecutionResult {
	result := models.ExecutionResult{ConnectionInfo: spec.ConnectionInfo()}

	conn, err := Dial(ctx, spec)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer conn.Close()

	if opts.Session != "" {
		e.dispatchTmux(conn, command, opts, &result)
	} else {
		e.dispatchSentinel(conn, command, opts, &result)
	}
	return result
}

func (e *Executor) dispatchTmux(conn *Conn, command string, opts models.DispatchOptions, result *models.ExecutionResult) {
	spec := conn.Spec()
	wrapped := BuildTmuxCommand(command, opts.Session, opts.LogPath)
	e.log.Debug().Str("host", spec.Name).Str("session", opts.Session).Str("command", command).Msg("dispatching tmux session")

	out, err := runOnce(conn, wrapped)
	if err != nil {
		result.Output = out
		result.Error = fmt.Sprintf("failed to start tmux session %q: %v", opts.Session, err)
		return
	}

	result.Success = true
	result.Session = opts.Session

	// The session exists at this point, so the pane PID read is not racing
	// the dispatch itself.
	pidOut, err := runOnce(conn, fmt.Sprintf("tmux list-panes -t %s -F '#{pane_pid}'", opts.Session))
	if err != nil {
		result.Error = apperr.Dispatch(spec.Name, "dispatched but pane pid lookup failed", err).Error()
		return
	}
	pid, err := ParsePID(pidOut)
	if err != nil {
		result.Error = apperr.Dispatch(spec.Name, "dispatched but pane pid was not numeric", err).Error()
		return
	}
	result.PID = pid
}

func (e *Executor) dispatchSentinel(conn *Conn, command string, opts models.DispatchOptions, result *models.ExecutionResult) {
	spec := conn.Spec()
	wrapped := BuildSentinelCommand(command, opts.LogPath)
	e.log.Debug().Str("host", spec.Name).Str("command", command).Msg("dispatching detached command")

	out, err := runOnce(conn, wrapped)
	if err != nil {
		result.Output = out
		result.Error = fmt.Sprintf("failed to dispatch command: %v", err)
		return
	}

	result.Success = true
	pid, perr := ParsePID(out)
	if perr != nil {
		result.Error = apperr.Dispatch(spec.Name, "dispatched but pid sentinel was not numeric", perr).Error()
		return
	}
	result.PID = pid
}

// runOnce executes one command on its own session over an open connection.
func runOnce(conn *Conn, command string) (string, error) {
	sess, err := conn.NewSession()
	if err != nil {
		return "", err
	}
	defer sess.Close()

	out, err := sess.CombinedOutput(command)
	return strings.TrimSpace(string(out)), err
}

// BuildTmuxCommand wraps a user command into a detached tmux session, with
// combined output appended to logPath when one is given.
func BuildTmuxCommand(command, session, logPath string) string {
	if logPath != "" {
		command = fmt.Sprintf("%s >> %s 2>&1", command, logPath)
	}
	return fmt.Sprintf("tmux new-session -d -s %s %s", session, ShellQuote(command))
}

// BuildSentinelCommand detaches a user command with nohup and makes the
// launching shell emit the background PID as the dispatch output. The log is
// opened in append mode so repeated dispatches against the same host do not
// clobber each other.
func BuildSentinelCommand(command, logPath string) string {
	if logPath == "" {
		logPath = "/dev/null"
	}
	return fmt.Sprintf("nohup sh -c %s >> %s 2>&1 & echo $!", ShellQuote(command), logPath)
}

// ParsePID extracts a positive integer PID from command output, tolerating
// leading noise by taking the last whitespace-separated token. The sentinel
// and the pane lookup both print the PID last.
func ParsePID(out string) (int, error) {
	lines := strings.Fields(strings.TrimSpace(out))
	if len(lines) == 0 {
		return 0, fmt.Errorf("empty pid output")
	}
	pid, err := strconv.Atoi(lines[len(lines)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid pid %q", lines[len(lines)-1])
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid pid %d", pid)
	}
	return pid, nil
}

// ShellQuote wraps s in single quotes, escaping embedded ones, so it passes
// through the remote shell as a single argument.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
