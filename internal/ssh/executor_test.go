// internal/ssh/executor_test.go

package ssh

import (
	"context"
	"strings"
	"testing"
	"time"

	"hostman/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesOutput(t *testing.T) {
	srv := newTestServer(t, func(cmd string) (string, uint32) {
		if cmd == "uname -n" {
			return "edge0-lab\n", 0
		}
		return "", 1
	})

	res := NewExecutor().Run(context.Background(), srv.spec("edge0"), "uname -n")
	assert.True(t, res.Success)
	assert.Equal(t, "edge0-lab", res.Output)
	assert.Equal(t, 0, res.ExitCode)
	assert.Empty(t, res.Error)
	assert.Equal(t, srv.spec("edge0").ConnectionInfo(), res.ConnectionInfo)
}

func TestRunReportsExitStatus(t *testing.T) {
	srv := newTestServer(t, func(cmd string) (string, uint32) {
		return "boom\n", 3
	})

	res := NewExecutor().Run(context.Background(), srv.spec("edge0"), "false")
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "boom", res.Output)
	assert.Contains(t, res.Error, "status 3")
}

func TestRunConnectionFailure(t *testing.T) {
	host, port := deadAddr(t)
	spec := models.ResolvedSpec{
		Name: "edge0", Host: host, User: testUser, Port: port,
		Password: testPassword, Timeout: 2 * time.Second,
	}

	res := NewExecutor().Run(context.Background(), spec, "true")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Empty(t, res.Output)
}

func TestDispatchSentinelReturnsPID(t *testing.T) {
	srv := newTestServer(t, func(cmd string) (string, uint32) {
		if strings.HasPrefix(cmd, "nohup sh -c") {
			return "4242\n", 0
		}
		return "", 1
	})

	res := NewExecutor().Dispatch(context.Background(), srv.spec("edge0"), "sleep 60", models.DispatchOptions{})
	assert.True(t, res.Success)
	assert.Equal(t, 4242, res.PID)
	assert.Empty(t, res.Error)
}

func TestDispatchSentinelBadPIDIsWarningNotFailure(t *testing.T) {
	srv := newTestServer(t, func(cmd string) (string, uint32) {
		return "not-a-pid\n", 0
	})

	res := NewExecutor().Dispatch(context.Background(), srv.spec("edge0"), "sleep 60", models.DispatchOptions{})
	assert.True(t, res.Success, "an accepted dispatch with a bad sentinel is still a success")
	assert.Zero(t, res.PID)
	assert.Contains(t, res.Error, "sentinel")
}

func TestDispatchRejectedCommandFails(t *testing.T) {
	srv := newTestServer(t, func(cmd string) (string, uint32) {
		return "sh: not found\n", 127
	})

	res := NewExecutor().Dispatch(context.Background(), srv.spec("edge0"), "sleep 60", models.DispatchOptions{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "failed to dispatch")
}

func TestDispatchTmuxSession(t *testing.T) {
	srv := newTestServer(t, func(cmd string) (string, uint32) {
		switch {
		case strings.HasPrefix(cmd, "tmux new-session -d -s gnb"):
			return "", 0
		case strings.Contains(cmd, "list-panes -t gnb"):
			return "777\n", 0
		}
		return "", 1
	})

	res := NewExecutor().Dispatch(context.Background(), srv.spec("edge0"), "./gnb -c gnb.yml", models.DispatchOptions{
		Session: "gnb",
		LogPath: "/tmp/gnb.log",
	})
	assert.True(t, res.Success)
	assert.Equal(t, 777, res.PID)
	assert.Equal(t, "gnb", res.Session)

	cmds := srv.receivedCommands()
	require.Len(t, cmds, 2)
	assert.Contains(t, cmds[0], ">> /tmp/gnb.log 2>&1", "output must be appended, not truncated")
}

func TestDispatchTmuxPaneLookupFailureIsWarning(t *testing.T) {
	srv := newTestServer(t, func(cmd string) (string, uint32) {
		if strings.HasPrefix(cmd, "tmux new-session") {
			return "", 0
		}
		return "no such session\n", 1
	})

	res := NewExecutor().Dispatch(context.Background(), srv.spec("edge0"), "./gnb", models.DispatchOptions{Session: "gnb"})
	assert.True(t, res.Success)
	assert.Zero(t, res.PID)
	assert.Contains(t, res.Error, "pane pid")
}

func TestBuildSentinelCommand(t *testing.T) {
	cmd := BuildSentinelCommand("echo hi", "/tmp/out.log")
	assert.Equal(t, "nohup sh -c 'echo hi' >> /tmp/out.log 2>&1 & echo $!", cmd)

	discarded := BuildSentinelCommand("echo hi", "")
	assert.Contains(t, discarded, "/dev/null")
}

func TestBuildTmuxCommand(t *testing.T) {
	cmd := BuildTmuxCommand("./gnb -c a.yml", "srsran", "/tmp/gnb.log")
	assert.Equal(t, "tmux new-session -d -s srsran './gnb -c a.yml >> /tmp/gnb.log 2>&1'", cmd)

	bare := BuildTmuxCommand("./gnb", "srsran", "")
	assert.Equal(t, "tmux new-session -d -s srsran './gnb'", bare)
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "'echo hi'", ShellQuote("echo hi"))
	assert.Equal(t, `'it'\''s'`, ShellQuote("it's"))
}

func TestParsePID(t *testing.T) {
	pid, err := ParsePID("1234\n")
	require.NoError(t, err)
	assert.Equal(t, 1234, pid)

	// Noise before the sentinel is tolerated.
	pid, err = ParsePID("starting\n5678")
	require.NoError(t, err)
	assert.Equal(t, 5678, pid)

	// The last token wins, so trailing noise is an error, not a stale PID.
	_, err = ParsePID("1234 warning")
	assert.Error(t, err)

	_, err = ParsePID("")
	assert.Error(t, err)
	_, err = ParsePID("abc")
	assert.Error(t, err)
	_, err = ParsePID("-5")
	assert.Error(t, err)
}

func TestTesterReachable(t *testing.T) {
	srv := newTestServer(t, func(cmd string) (string, uint32) {
		if strings.HasPrefix(cmd, "echo ") {
			return strings.TrimPrefix(cmd, "echo ") + "\n", 0
		}
		return "", 1
	})

	ok, diag := NewTester().Test(context.Background(), srv.spec("edge0"))
	assert.True(t, ok)
	assert.Empty(t, diag)
}

func TestTesterUnreachableNeverRaises(t *testing.T) {
	host, port := deadAddr(t)
	spec := models.ResolvedSpec{
		Name: "edge0", Host: host, User: testUser, Port: port,
		Password: testPassword, Timeout: 2 * time.Second,
	}

	ok, diag := NewTester().Test(context.Background(), spec)
	assert.False(t, ok)
	assert.NotEmpty(t, diag)
}
