// internal/ssh/connect.go

package ssh

import (
	"context"
	"fmt"
	"time"

	"hostman/internal/apperr"
	"hostman/internal/models"

	"golang.org/x/crypto/ssh"
)

// DefaultTimeout bounds connection establishment when the spec carries none.
const DefaultTimeout = 30 * time.Second

// Conn is a live, authenticated connection to one host, possibly tunneled
// through a chain of jump hosts. It is exclusively owned by the operation
// that opened it; Close releases the whole chain in reverse order.
type Conn struct {
	spec  models.ResolvedSpec
	chain []*ssh.Client // jump hosts first, target last
}

// Dial opens a connection described by spec. Establishment of every hop is
// bounded by the spec's timeout; exceeding it yields a connection error, not
// an indefinite hang. Proxy-hop failures are reported with a distinct stage
// so callers can tell the jump host apart from the target.
func Dial(ctx context.Context, spec models.ResolvedSpec) (*Conn, error) {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		conn *Conn
		err  error
	}
	ch := make(chan outcome, 1)

	go func() {
		conn, err := dialChain(spec, timeout)
		ch <- outcome{conn, err}
	}()

	select {
	case out := <-ch:
		return out.conn, out.err
	case <-ctx.Done():
		// The in-flight dial may still complete; make sure it gets closed.
		go func() {
			if out := <-ch; out.conn != nil {
				out.conn.Close()
			}
		}()
		return nil, apperr.Connection(spec.Name, apperr.StageTarget, "connection timed out", ctx.Err())
	}
}

func dialChain(spec models.ResolvedSpec, timeout time.Duration) (*Conn, error) {
	var chain []*ssh.Client

	for _, hop := range spec.Hops {
		cfg, err := clientConfig(hop.User, hop.KeyFilename, hop.Password, false, spec.KnownHosts, timeout)
		if err != nil {
			closeChain(chain)
			return nil, apperr.Connection(spec.Name, apperr.StageProxy,
				fmt.Sprintf("jump host %s auth setup failed", hop.Host), err)
		}
		client, err := dialVia(lastClient(chain), hop.Addr(), cfg)
		if err != nil {
			closeChain(chain)
			return nil, apperr.Connection(spec.Name, apperr.StageProxy,
				fmt.Sprintf("jump host %s unreachable", hop.Host), err)
		}
		chain = append(chain, client)
	}

	cfg, err := clientConfig(spec.User, spec.KeyFilename, spec.Password, spec.ForwardAgent, spec.KnownHosts, timeout)
	if err != nil {
		closeChain(chain)
		return nil, apperr.Connection(spec.Name, apperr.StageTarget, "auth setup failed", err)
	}
	client, err := dialVia(lastClient(chain), spec.Addr(), cfg)
	if err != nil {
		closeChain(chain)
		return nil, apperr.Connection(spec.Name, apperr.StageTarget,
			fmt.Sprintf("failed to connect to %s", spec.Addr()), err)
	}
	chain = append(chain, client)

	conn := &Conn{spec: spec, chain: chain}
	if spec.ForwardAgent {
		// Best effort; the connection is still usable without forwarding.
		conn.setupAgentForwarding()
	}
	return conn, nil
}

// dialVia connects to addr either directly or through an already established
// jump client.
func dialVia(via *ssh.Client, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	if via == nil {
		return ssh.Dial("tcp", addr, cfg)
	}
	netConn, err := via.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tunnel to %s failed: %w", addr, err)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, cfg)
	if err != nil {
		netConn.Close()
		return nil, err
	}
	return ssh.NewClient(clientConn, chans, reqs), nil
}

func lastClient(chain []*ssh.Client) *ssh.Client {
	if len(chain) == 0 {
		return nil
	}
	return chain[len(chain)-1]
}

func closeChain(chain []*ssh.Client) {
	for i := len(chain) - 1; i >= 0; i-- {
		chain[i].Close()
	}
}

// Client returns the client for the target host.
func (c *Conn) Client() *ssh.Client {
	return c.chain[len(c.chain)-1]
}

// NewSession opens a session on the target host.
func (c *Conn) NewSession() (*ssh.Session, error) {
	sess, err := c.Client().NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// Spec returns the spec the connection was opened with.
func (c *Conn) Spec() models.ResolvedSpec {
	return c.spec
}

// Close releases the target connection and every jump hop behind it.
func (c *Conn) Close() error {
	var firstErr error
	for i := len(c.chain) - 1; i >= 0; i-- {
		if err := c.chain[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
