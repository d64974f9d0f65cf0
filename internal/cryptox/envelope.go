package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/carebridge/sharelink/internal/common"
)

// Envelope parameters. The wire format is the JWE compact serialization with
// direct key agreement: the 256-bit link key encrypts content directly, so
// the encrypted-key segment is always empty.
const (
	AlgDirect  = "dir"
	EncA256GCM = "A256GCM"
	ZipDeflate = "DEF"

	ivSize  = 12
	tagSize = 16
)

// b64 is unpadded base64url with strict decoding, so non-zero trailing
// padding bits are a decode error rather than a silently malleable encoding.
var b64 = base64.RawURLEncoding.Strict()

// header is the protected JWE header. Cty declares the media type of the
// plaintext, not of the ciphertext that carries it.
type header struct {
	Alg string `json:"alg"`
	Enc string `json:"enc"`
	Cty string `json:"cty,omitempty"`
	Zip string `json:"zip,omitempty"`
}

// Seal encrypts plaintext under a 32-byte key and returns the compact
// envelope: five dot-separated base64url segments
// (header, empty encrypted key, IV, ciphertext, tag).
//
// A fresh 12-byte IV is drawn per call. The encoded header is bound into the
// authentication tag as associated data, so any header tampering fails Open.
func Seal(plaintext, key []byte, declaredType string) (string, error) {
	if len(key) != KeySize {
		return "", fmt.Errorf("seal: key must be %d bytes, got %d", KeySize, len(key))
	}

	h := header{Alg: AlgDirect, Enc: EncA256GCM, Cty: declaredType}
	hj, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	protected := b64.EncodeToString(hj)

	iv, err := randBytes(ivSize)
	if err != nil {
		return "", err
	}

	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}

	sealed := aead.Seal(nil, iv, plaintext, []byte(protected))
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	parts := []string{
		protected,
		"", // encrypted key: empty in direct mode
		b64.EncodeToString(iv),
		b64.EncodeToString(ct),
		b64.EncodeToString(tag),
	}
	return strings.Join(parts, "."), nil
}

// Open authenticates and decrypts a compact envelope, returning the plaintext
// and the declared content type from the header. If the header carries
// zip "DEF" the authenticated plaintext is additionally inflated; Seal never
// emits the flag but decoders must honor it.
//
// Every failure (wrong key, tampered segment, malformed header, bad
// encoding) yields common.ErrorDecryption with no further detail.
func Open(envelope string, key []byte) ([]byte, string, error) {
	if len(key) != KeySize {
		return nil, "", common.ErrorDecryption
	}

	parts := strings.Split(envelope, ".")
	if len(parts) != 5 || parts[1] != "" {
		return nil, "", common.ErrorDecryption
	}

	hj, err := b64.DecodeString(parts[0])
	if err != nil {
		return nil, "", common.ErrorDecryption
	}
	var h header
	if err := json.Unmarshal(hj, &h); err != nil {
		return nil, "", common.ErrorDecryption
	}
	if h.Alg != AlgDirect || h.Enc != EncA256GCM {
		return nil, "", common.ErrorDecryption
	}
	if h.Zip != "" && h.Zip != ZipDeflate {
		return nil, "", common.ErrorDecryption
	}

	iv, err := b64.DecodeString(parts[2])
	if err != nil || len(iv) != ivSize {
		return nil, "", common.ErrorDecryption
	}
	ct, err := b64.DecodeString(parts[3])
	if err != nil {
		return nil, "", common.ErrorDecryption
	}
	tag, err := b64.DecodeString(parts[4])
	if err != nil || len(tag) != tagSize {
		return nil, "", common.ErrorDecryption
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, "", common.ErrorDecryption
	}

	plaintext, err := aead.Open(nil, iv, append(ct, tag...), []byte(parts[0]))
	if err != nil {
		return nil, "", common.ErrorDecryption
	}

	if h.Zip == ZipDeflate {
		plaintext, err = inflate(plaintext)
		if err != nil {
			return nil, "", common.ErrorDecryption
		}
	}

	return plaintext, h.Cty, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func inflate(b []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(b))
	defer r.Close()
	return io.ReadAll(r)
}
