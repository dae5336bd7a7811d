package copyproto

import (
	"crypto/rsa"
	"fmt"
	"net"
	"time"

	"github.com/grovestate/promised/pkg/log"
)

// AgentConnection is one authenticated connection to a remote file
// server, holding the transport and the session key negotiated by
// ClientHandshake. Once Error is set, every verb on the connection
// fails fast instead of attempting to use a session the peer may have
// already torn down.
type AgentConnection struct {
	RemoteIP      string
	conn          net.Conn
	SessionKey    []byte
	CipherType    string
	Authenticated bool
	Family        string
	Error         bool
}

// Dial opens a TCP connection to addr, runs the authentication
// handshake and returns a ready-to-use AgentConnection.
func Dial(addr string, cfg HandshakeConfig, cache *ServerKeyCache) (*AgentConnection, error) {
	return DialWithDialer(&net.Dialer{Timeout: 30 * time.Second}, addr, cfg, cache)
}

// DialWithDialer is like Dial but lets the caller control the
// *net.Dialer (timeout, local interface binding) used to establish the
// transport -- the pool package uses this to honour its configured
// dial timeout and optional local-interface bind.
func DialWithDialer(dialer *net.Dialer, addr string, cfg HandshakeConfig, cache *ServerKeyCache) (*AgentConnection, error) {
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("copyproto: dial %s: %w", addr, err)
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	sessionKey, err := ClientHandshake(conn, host, cfg, cache)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("copyproto: handshake with %s: %w", addr, err)
	}

	cipherID := "MD5"
	if cfg.FIPSMode {
		cipherID = "SHA256"
	}

	log.WithComponent("copyproto").Info().Str("server", addr).Msg("session established")

	return &AgentConnection{
		RemoteIP:      host,
		conn:          conn,
		SessionKey:    sessionKey,
		CipherType:    cipherID,
		Authenticated: true,
		Family:        "tcp",
	}, nil
}

// Close tears down the underlying transport.
func (c *AgentConnection) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// ServerPublicKeyFingerprint returns the first 8 bytes of key's modulus
// in hex ("" for a nil key), for callers that want to display or log
// which key a connection authenticated against.
func ServerPublicKeyFingerprint(key *rsa.PublicKey) string {
	if key == nil {
		return ""
	}
	return fmt.Sprintf("%x", key.N.Bytes()[:8])
}
