// Package egress implements the Network Egress Filter of spec §4.7: an
// allowlist-enforcing HTTPS CONNECT proxy bound to localhost, used by the
// standard-proxied sandbox profile. Network-isolated containers do not go
// through it: they run with container networking disabled.
package egress

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/para-dev/para/internal/common/logger"
	"go.uber.org/zap"
)

// Proxy is a localhost-only HTTP CONNECT proxy that permits a tunnel only
// when the SNI hostname observed inside it matches the allowlist; the
// CONNECT target itself is never trusted for the decision, since an agent
// could otherwise CONNECT to an allowed host and then speak to a different
// one once the tunnel is established.
type Proxy struct {
	allowlist Allowlist
	log       *logger.Logger
}

// NewProxy constructs a Proxy enforcing allowlist.
func NewProxy(allowlist []string, log *logger.Logger) *Proxy {
	return &Proxy{allowlist: allowlist, log: log}
}

// ListenAndServe binds to addr (expected to be localhost:<fixed-port> per
// §4.7) and serves CONNECT tunnels until the returned close func is called.
func (p *Proxy) ListenAndServe(addr string) (*net.TCPAddr, func() error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen on egress proxy address %s: %w", addr, err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go p.handleConn(conn)
		}
	}()

	return ln.Addr().(*net.TCPAddr), ln.Close, nil
}

func (p *Proxy) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	req, err := http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		return
	}
	if req.Method != http.MethodConnect {
		_, _ = io.WriteString(conn, "HTTP/1.1 405 Method Not Allowed\r\n\r\n")
		return
	}

	if _, err := io.WriteString(conn, "HTTP/1.1 200 Connection Established\r\n\r\n"); err != nil {
		return
	}
	_ = conn.SetDeadline(time.Time{})

	sni, consumed, err := sniffSNI(conn)
	if err != nil {
		p.log.WithError(err).Warn("refusing CONNECT tunnel: could not determine SNI")
		return
	}

	if !p.allowlist.Match(sni) {
		p.log.Warn("refusing CONNECT tunnel: hostname not in allowlist", zap.String("sni", sni))
		return
	}

	targetHost, _, err := net.SplitHostPort(req.Host)
	if err != nil || !p.allowlist.Match(targetHost) {
		p.log.Warn("refusing CONNECT tunnel: target not in allowlist", zap.String("target", req.Host))
		return
	}

	upstream, err := net.DialTimeout("tcp", req.Host, 10*time.Second)
	if err != nil {
		p.log.WithError(err).Warn("failed to dial allowlisted upstream", zap.String("target", req.Host))
		return
	}
	defer upstream.Close()

	if _, err := upstream.Write(consumed); err != nil {
		return
	}

	done := make(chan struct{}, 2)
	go func() { _, _ = io.Copy(upstream, conn); done <- struct{}{} }()
	go func() { _, _ = io.Copy(conn, upstream); done <- struct{}{} }()
	<-done
}
