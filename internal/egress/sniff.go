package egress

import (
	"bytes"
	"crypto/tls"
	"errors"
	"net"
)

// recordingConn records every byte it reads so the handshake probe's input
// can be replayed verbatim to the real upstream once the SNI has been read.
// Writes are discarded, so the probe's abort alert never reaches the client.
type recordingConn struct {
	net.Conn
	buf bytes.Buffer
}

func (c *recordingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.buf.Write(p[:n])
	}
	return n, err
}

func (c *recordingConn) Write(p []byte) (int, error) {
	return len(p), nil
}

var errSNICaptured = errors.New("sni captured, aborting handshake by design")

// sniffSNI reads just far enough into a TLS ClientHello to learn the
// requested server name, then aborts the handshake before any bytes are
// written back to the client, per §4.7: "parses TLS SNI without terminating
// TLS". The bytes consumed during the probe are returned so the caller can
// replay them to the real destination.
func sniffSNI(conn net.Conn) (sni string, consumed []byte, err error) {
	rc := &recordingConn{Conn: conn}
	srv := tls.Server(rc, &tls.Config{
		GetConfigForClient: func(hello *tls.ClientHelloInfo) (*tls.Config, error) {
			sni = hello.ServerName
			return nil, errSNICaptured
		},
	})
	handshakeErr := srv.Handshake()
	if sni == "" {
		if handshakeErr == nil {
			handshakeErr = errors.New("client did not present an SNI server name")
		}
		return "", rc.buf.Bytes(), handshakeErr
	}
	return sni, rc.buf.Bytes(), nil
}
