// internal/ssh/tester.go

package ssh

import (
	"context"
	"fmt"
	"strings"

	"hostman/internal/logging"
	"hostman/internal/models"

	"github.com/rs/zerolog"
)

// probeToken is echoed back by the remote shell to confirm the session
// round-trip, not just the TCP handshake.
const probeToken = "connection-test-ok"

// Tester answers whether a host is reachable with its configured
// credentials. It runs a trivial echo probe and releases the connection;
// no background state is left behind and no error is ever raised to the
// caller — failures come back as false plus a diagnostic.
type Tester struct {
	log zerolog.Logger
}

func NewTester() *Tester {
	return &Tester{log: logging.Component("tester")}
}

// Test connects, probes and disconnects. The returned diagnostic is empty
// on success.
func (t *Tester) Test(ctx context.Context, spec models.ResolvedSpec) (bool, string) {
	conn, err := Dial(ctx, spec)
	if err != nil {
		t.log.Debug().Str("host", spec.Name).Err(err).Msg("connection test failed")
		return false, err.Error()
	}
	defer conn.Close()

	out, err := runOnce(conn, fmt.Sprintf("echo %s", probeToken))
	if err != nil {
		t.log.Debug().Str("host", spec.Name).Err(err).Msg("probe command failed")
		return false, fmt.Sprintf("probe command failed: %v", err)
	}
	if !strings.Contains(out, probeToken) {
		return false, fmt.Sprintf("unexpected probe output %q", out)
	}

	t.log.Debug().Str("host", spec.Name).Msg("connection test ok")
	return true, ""
}
