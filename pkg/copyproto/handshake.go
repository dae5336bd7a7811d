package copyproto

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"io"
	"math/big"

	"github.com/grovestate/promised/pkg/log"
)

// nonceSize is the 128-bit challenge width the handshake exchanges in
// both directions.
const nonceSize = 16

// sessionKeySize is AES-256's key width, the cipher this package's
// session encryption always uses.
const sessionKeySize = 32

// HandshakeConfig carries everything the client side of the
// authentication handshake needs beyond the transport itself.
type HandshakeConfig struct {
	LocalIP   string
	DNSName   string
	Username  string
	FIPSMode  bool
	ClientKey *rsa.PrivateKey
}

// ClientHandshake runs the full challenge-response authentication
// sequence against serverIP over rw and returns the freshly generated
// AES-256 session key. If cache holds no public key for serverIP, the
// server's key is learned from this exchange and cached under
// trust-on-first-use (see ServerKeyCache).
func ClientHandshake(rw io.ReadWriter, serverIP string, cfg HandshakeConfig, cache *ServerKeyCache) ([]byte, error) {
	logger := log.WithComponent("copyproto")

	if err := WriteFrame(rw, Done, []byte(fmt.Sprintf("CAUTH %s %s %s 0", cfg.LocalIP, cfg.DNSName, cfg.Username))); err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("copyproto: generate nonce: %w", err)
	}

	serverKey, trusted := cache.Get(serverIP)

	var encNonce []byte
	trustFlag := "n"
	if trusted {
		var err error
		encNonce, err = rsa.EncryptPKCS1v15(rand.Reader, serverKey, nonce)
		if err != nil {
			return nil, fmt.Errorf("copyproto: encrypt nonce under cached server key: %w", err)
		}
		trustFlag = "y"
	} else {
		encNonce = nonce
	}

	cipherID := "MD5"
	if cfg.FIPSMode {
		cipherID = "SHA256"
	}

	header := fmt.Sprintf("SAUTH %s %d %d %s", trustFlag, len(encNonce), nonceSize, cipherID)
	if err := WriteFrame(rw, Done, []byte(header)); err != nil {
		return nil, err
	}
	if err := WriteFrame(rw, Done, encNonce); err != nil {
		return nil, err
	}

	clientModulus := cfg.ClientKey.PublicKey.N.Bytes()
	clientExponent := big.NewInt(int64(cfg.ClientKey.PublicKey.E)).Bytes()
	if err := WriteFrame(rw, Done, clientModulus); err != nil {
		return nil, err
	}
	if err := WriteFrame(rw, Done, clientExponent); err != nil {
		return nil, err
	}

	if _, _, err := ReadFrame(rw); err != nil { // echo acknowledgement, not otherwise inspected
		return nil, fmt.Errorf("copyproto: read handshake ack: %w", err)
	}
	_, digestFrame, err := ReadFrame(rw)
	if err != nil {
		return nil, fmt.Errorf("copyproto: read nonce digest: %w", err)
	}
	if !VerifyChallengeDigest(nonce, digestFrame) {
		return nil, fmt.Errorf("copyproto: server nonce digest mismatch, authentication failed")
	}

	_, counterEnc, err := ReadFrame(rw)
	if err != nil {
		return nil, fmt.Errorf("copyproto: read counter-challenge: %w", err)
	}
	counterNonce, err := rsa.DecryptPKCS1v15(rand.Reader, cfg.ClientKey, counterEnc)
	if err != nil {
		return nil, fmt.Errorf("copyproto: decrypt counter-challenge: %w", err)
	}
	counterDigest := ChallengeDigest(counterNonce, cfg.FIPSMode)
	if err := WriteFrame(rw, Done, counterDigest); err != nil {
		return nil, err
	}

	if !trusted {
		_, modBytes, err := ReadFrame(rw)
		if err != nil {
			return nil, fmt.Errorf("copyproto: read server modulus: %w", err)
		}
		_, expBytes, err := ReadFrame(rw)
		if err != nil {
			return nil, fmt.Errorf("copyproto: read server exponent: %w", err)
		}

		serverKey = &rsa.PublicKey{
			N: new(big.Int).SetBytes(modBytes),
			E: int(new(big.Int).SetBytes(expBytes).Int64()),
		}
		cache.Put(serverIP, serverKey)
	}

	sessionKey := make([]byte, sessionKeySize)
	if _, err := io.ReadFull(rand.Reader, sessionKey); err != nil {
		return nil, fmt.Errorf("copyproto: generate session key: %w", err)
	}

	encSessionKey, err := rsa.EncryptPKCS1v15(rand.Reader, serverKey, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("copyproto: encrypt session key: %w", err)
	}
	if err := WriteFrame(rw, Done, encSessionKey); err != nil {
		return nil, err
	}

	logger.Debug().Str("server", serverIP).Bool("trusted_key", trusted).Msg("handshake complete")
	return sessionKey, nil
}
