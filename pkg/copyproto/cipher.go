package copyproto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// sessionIV is the fixed, all-zero initialization vector every block
// cipher operation under the session key uses. This reproduces a
// known weakness of the wire format this package is bug-compatible
// with: reusing one IV across every block sent under a given session
// key leaks equality of identical plaintext blocks. It is deliberately
// not randomized here, because doing so would silently break wire
// compatibility with a peer speaking the protocol as specified; a
// transport that requires semantic security should be layered above
// this package rather than patched into it.
var sessionIV = make([]byte, aes.BlockSize)

// EncryptBlock encrypts plaintext (which must be a multiple of
// aes.BlockSize) under key using AES-CBC with the fixed session IV.
func EncryptBlock(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("copyproto: new cipher: %w", err)
	}
	if len(plaintext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("copyproto: plaintext length %d is not a multiple of block size", len(plaintext))
	}

	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, sessionIV).CryptBlocks(ciphertext, plaintext)
	return ciphertext, nil
}

// DecryptBlock decrypts ciphertext (which must be a multiple of
// aes.BlockSize) under key using AES-CBC with the fixed session IV.
func DecryptBlock(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("copyproto: new cipher: %w", err)
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("copyproto: ciphertext length %d is not a multiple of block size", len(ciphertext))
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, sessionIV).CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

// padPKCS7 pads data to a multiple of aes.BlockSize using PKCS#7.
func padPKCS7(data []byte) []byte {
	padLen := aes.BlockSize - (len(data) % aes.BlockSize)
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// unpadPKCS7 strips PKCS#7 padding, returning an error if the padding
// is malformed.
func unpadPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("copyproto: cannot unpad empty data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(data) {
		return nil, fmt.Errorf("copyproto: invalid PKCS#7 padding")
	}
	return data[:len(data)-padLen], nil
}
