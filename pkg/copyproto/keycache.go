package copyproto

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/grovestate/promised/pkg/log"
)

// ServerKeyCache remembers a server's RSA public key by IP address
// across connections, so a later connection can encrypt its challenge
// nonce under a key it already trusts instead of sending it in the
// clear. Entries are added only on trust-on-first-use: the first
// connection to a given server IP has no cached entry, completes the
// handshake with a cleartext nonce, and caches whatever key the server
// presents -- a policy that explicitly permits TOFU must be set for
// this to happen silently; otherwise a warning is logged every time.
//
// With a non-empty dir, every learned key is also persisted as a PEM
// file named by the server IP, and a key not yet in memory is read
// back from disk on first lookup, so trust survives agent restarts.
type ServerKeyCache struct {
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	dir       string
	allowTOFU bool
}

// NewServerKeyCache returns an in-memory-only cache. allowTOFU controls
// whether Put logs at warn (false) or info (true) level when caching a
// key for the first time -- the cache always stores the key either way,
// since refusing to cache it would make every connection cleartext
// forever.
func NewServerKeyCache(allowTOFU bool) *ServerKeyCache {
	return &ServerKeyCache{keys: make(map[string]*rsa.PublicKey), allowTOFU: allowTOFU}
}

// NewPersistentServerKeyCache returns a cache backed by PEM files under
// dir, creating the directory if needed.
func NewPersistentServerKeyCache(dir string, allowTOFU bool) (*ServerKeyCache, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("copyproto: create key cache dir: %w", err)
	}
	return &ServerKeyCache{keys: make(map[string]*rsa.PublicKey), dir: dir, allowTOFU: allowTOFU}, nil
}

// keyPath names the on-disk file a server IP's key persists under. The
// IP is used verbatim: both IPv4 dotted quads and IPv6 hex forms are
// safe filename components on the platforms this agent targets.
func (c *ServerKeyCache) keyPath(serverIP string) string {
	return filepath.Join(c.dir, "root-"+serverIP+".pub")
}

// Get returns the cached public key for serverIP, if any, consulting
// the on-disk store for a key learned by a previous process.
func (c *ServerKeyCache) Get(serverIP string) (*rsa.PublicKey, bool) {
	c.mu.RLock()
	k, ok := c.keys[serverIP]
	c.mu.RUnlock()
	if ok || c.dir == "" {
		return k, ok
	}

	k, err := readPublicKeyPEM(c.keyPath(serverIP))
	if err != nil {
		return nil, false
	}

	c.mu.Lock()
	c.keys[serverIP] = k
	c.mu.Unlock()
	return k, true
}

// Put caches key for serverIP, overwriting any previous entry, and
// persists it to disk when the cache is file-backed.
func (c *ServerKeyCache) Put(serverIP string, key *rsa.PublicKey) {
	c.mu.Lock()
	c.keys[serverIP] = key
	c.mu.Unlock()

	logger := log.WithComponent("copyproto")
	if c.allowTOFU {
		logger.Info().Str("server", serverIP).Msg("caching server key on first use")
	} else {
		logger.Warn().Str("server", serverIP).Msg("trust-on-first-use: caching unauthenticated server key")
	}

	if c.dir == "" {
		return
	}
	if err := writePublicKeyPEM(c.keyPath(serverIP), key); err != nil {
		logger.Error().Err(err).Str("server", serverIP).Msg("failed to persist server key")
	}
}

func readPublicKeyPEM(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("copyproto: %s: no PEM block", path)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("copyproto: %s: parse public key: %w", path, err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("copyproto: %s: not an RSA public key", path)
	}
	return key, nil
}

func writePublicKeyPEM(path string, key *rsa.PublicKey) error {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return fmt.Errorf("copyproto: marshal public key: %w", err)
	}
	buf := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	if buf == nil {
		return fmt.Errorf("copyproto: encode public key PEM")
	}
	return os.WriteFile(path, buf, 0o600)
}
