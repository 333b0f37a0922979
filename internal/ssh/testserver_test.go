// internal/ssh/testserver_test.go

package ssh

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"hostman/internal/models"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

const (
	testUser     = "tester"
	testPassword = "sekret"
)

// execHandler produces the canned output and exit status for one exec
// request received by the test server.
type execHandler func(command string) (string, uint32)

// testServer is a minimal in-process SSH server. It answers exec requests
// through the configured handler, serves the sftp subsystem and an scp sink
// against the local filesystem, and forwards direct-tcpip channels, which
// lets it double as a jump host.
type testServer struct {
	t       *testing.T
	ln      net.Listener
	cfg     *ssh.ServerConfig
	handler execHandler

	mu       sync.Mutex
	commands []string
}

func newTestServer(t *testing.T, handler execHandler) *testServer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if meta.User() == testUser && string(pass) == testPassword {
				return nil, nil
			}
			return nil, fmt.Errorf("access denied for %s", meta.User())
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &testServer{t: t, ln: ln, cfg: cfg, handler: handler}
	go s.acceptLoop()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *testServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *testServer) handleConn(conn net.Conn) {
	sconn, chans, reqs, err := ssh.NewServerConn(conn, s.cfg)
	if err != nil {
		conn.Close()
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		switch newChan.ChannelType() {
		case "session":
			go s.handleSession(newChan)
		case "direct-tcpip":
			go s.handleDirectTCPIP(newChan)
		default:
			newChan.Reject(ssh.UnknownChannelType, "unsupported channel type")
		}
	}
}

func (s *testServer) handleSession(newChan ssh.NewChannel) {
	ch, requests, err := newChan.Accept()
	if err != nil {
		return
	}
	for req := range requests {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)

			s.mu.Lock()
			s.commands = append(s.commands, payload.Command)
			s.mu.Unlock()

			var out string
			var status uint32
			if strings.HasPrefix(payload.Command, "scp ") {
				status = scpSink(ch, scpDest(payload.Command))
			} else {
				out, status = s.handler(payload.Command)
				ch.Write([]byte(out))
			}
			ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
			ch.Close()
			return
		case "subsystem":
			var payload struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil || payload.Name != "sftp" {
				req.Reply(false, nil)
				continue
			}
			req.Reply(true, nil)
			srv, err := sftp.NewServer(ch)
			if err != nil {
				ch.Close()
				return
			}
			srv.Serve()
			ch.Close()
			return
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

// scpDest extracts the destination path from an `scp -qt "path"` command.
func scpDest(command string) string {
	i := strings.LastIndex(command, " ")
	return strings.Trim(command[i+1:], `"`)
}

// scpSink speaks the receiving side of the scp wire protocol for a single
// file: ready ack, C-record header, ack, payload, trailing NUL, final ack.
func scpSink(ch ssh.Channel, dest string) uint32 {
	if _, err := ch.Write([]byte{0}); err != nil {
		return 1
	}
	r := bufio.NewReader(ch)
	header, err := r.ReadString('\n')
	if err != nil {
		return 1
	}
	parts := strings.Fields(header)
	if len(parts) != 3 || !strings.HasPrefix(parts[0], "C") {
		return 1
	}
	size, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 1
	}
	if _, err := ch.Write([]byte{0}); err != nil {
		return 1
	}
	f, err := os.Create(dest)
	if err != nil {
		return 1
	}
	if _, err := io.CopyN(f, r, size); err != nil {
		f.Close()
		return 1
	}
	if err := f.Close(); err != nil {
		return 1
	}
	r.ReadByte()
	ch.Write([]byte{0})
	return 0
}

func (s *testServer) handleDirectTCPIP(newChan ssh.NewChannel) {
	var payload struct {
		DestAddr string
		DestPort uint32
		OrigAddr string
		OrigPort uint32
	}
	if err := ssh.Unmarshal(newChan.ExtraData(), &payload); err != nil {
		newChan.Reject(ssh.ConnectionFailed, "bad direct-tcpip payload")
		return
	}
	dest := net.JoinHostPort(payload.DestAddr, strconv.Itoa(int(payload.DestPort)))
	remote, err := net.DialTimeout("tcp", dest, 2*time.Second)
	if err != nil {
		newChan.Reject(ssh.ConnectionFailed, err.Error())
		return
	}
	ch, reqs, err := newChan.Accept()
	if err != nil {
		remote.Close()
		return
	}
	go ssh.DiscardRequests(reqs)
	go func() {
		io.Copy(ch, remote)
		ch.Close()
	}()
	go func() {
		io.Copy(remote, ch)
		remote.Close()
	}()
}

func (s *testServer) addr() (string, int) {
	host, portStr, err := net.SplitHostPort(s.ln.Addr().String())
	require.NoError(s.t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(s.t, err)
	return host, port
}

// spec builds a ResolvedSpec pointing at the test server.
func (s *testServer) spec(name string) models.ResolvedSpec {
	host, port := s.addr()
	return models.ResolvedSpec{
		Name:     name,
		Host:     host,
		User:     testUser,
		Port:     port,
		Password: testPassword,
		Timeout:  5 * time.Second,
	}
}

// hop builds a jump-host hop pointing at the test server.
func (s *testServer) hop() models.Hop {
	host, port := s.addr()
	return models.Hop{
		Host:     host,
		User:     testUser,
		Port:     port,
		Password: testPassword,
	}
}

func (s *testServer) receivedCommands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// deadAddr returns an address nothing is listening on.
func deadAddr(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	ln.Close()
	return host, port
}
