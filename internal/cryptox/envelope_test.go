package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/sharelink/internal/common"
)

func mustKey(t *testing.T) []byte {
	t.Helper()
	k, err := NewKey()
	require.NoError(t, err)
	return k
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := mustKey(t)

	cases := []struct {
		name      string
		plaintext []byte
		cty       string
	}{
		{"empty", []byte{}, "text/plain"},
		{"small json", []byte(`{"resourceType":"Bundle"}`), "application/fhir+json"},
		{"binary", bytes.Repeat([]byte{0x00, 0xff, 0x7f}, 1000), "application/pdf"},
		{"no content type", []byte("x"), ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := Seal(tc.plaintext, key, tc.cty)
			require.NoError(t, err)

			got, cty, err := Open(env, key)
			require.NoError(t, err)
			assert.Equal(t, tc.plaintext, got)
			assert.Equal(t, tc.cty, cty)
		})
	}
}

func TestSeal_EnvelopeShape(t *testing.T) {
	key := mustKey(t)
	plaintext := []byte("some clinical document content")

	env, err := Seal(plaintext, key, "application/pdf")
	require.NoError(t, err)

	parts := strings.Split(env, ".")
	require.Len(t, parts, 5)
	assert.Empty(t, parts[1], "encrypted-key segment must be empty in direct mode")

	hj, err := b64.DecodeString(parts[0])
	require.NoError(t, err)
	var h header
	require.NoError(t, json.Unmarshal(hj, &h))
	assert.Equal(t, AlgDirect, h.Alg)
	assert.Equal(t, EncA256GCM, h.Enc)
	assert.Equal(t, "application/pdf", h.Cty)
	assert.Empty(t, h.Zip, "Seal must never emit the compression flag")

	ct, err := b64.DecodeString(parts[2])
	require.NoError(t, err)
	assert.Len(t, ct, ivSize)
	body, err := b64.DecodeString(parts[3])
	require.NoError(t, err)
	assert.Len(t, body, len(plaintext), "ciphertext length equals plaintext length")
	tag, err := b64.DecodeString(parts[4])
	require.NoError(t, err)
	assert.Len(t, tag, tagSize)
}

func TestSeal_RejectsBadKeyLength(t *testing.T) {
	_, err := Seal([]byte("x"), make([]byte, 16), "text/plain")
	assert.Error(t, err)
}

func TestOpen_WrongKey(t *testing.T) {
	k1 := mustKey(t)
	k2 := mustKey(t)

	env, err := Seal([]byte("secret payload"), k1, "text/plain")
	require.NoError(t, err)

	_, _, err = Open(env, k2)
	assert.ErrorIs(t, err, common.ErrorDecryption)
}

// Flipping any single bit anywhere in the envelope must fail Open with the
// one generic decryption error.
func TestOpen_TamperSensitivity(t *testing.T) {
	key := mustKey(t)
	env, err := Seal([]byte(`{"subject":"p-1"}`), key, "application/fhir+json")
	require.NoError(t, err)

	raw := []byte(env)
	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			mutated := make([]byte, len(raw))
			copy(mutated, raw)
			mutated[i] ^= 1 << bit

			_, _, err := Open(string(mutated), key)
			if !errors.Is(err, common.ErrorDecryption) {
				t.Fatalf("byte %d bit %d: want ErrorDecryption, got %v", i, bit, err)
			}
		}
	}
}

func TestOpen_MalformedEnvelopes(t *testing.T) {
	key := mustKey(t)

	cases := []string{
		"",
		"one.two.three",
		"a.b.c.d.e.f",
		"!!!..AAAAAAAAAAAAAAAA.AAAA.AAAAAAAAAAAAAAAAAAAAAA",
		"eyJhbGciOiJkaXIifQ.notempty.AAAAAAAAAAAAAAAA.AAAA.AAAAAAAAAAAAAAAAAAAAAA",
	}
	for _, c := range cases {
		_, _, err := Open(c, key)
		assert.ErrorIs(t, err, common.ErrorDecryption, "envelope %q", c)
	}
}

func TestOpen_RejectsUnknownAlgorithms(t *testing.T) {
	key := mustKey(t)
	env, err := Seal([]byte("x"), key, "text/plain")
	require.NoError(t, err)
	parts := strings.Split(env, ".")

	for _, h := range []header{
		{Alg: "RSA-OAEP", Enc: EncA256GCM},
		{Alg: AlgDirect, Enc: "A128CBC-HS256"},
		{Alg: AlgDirect, Enc: EncA256GCM, Zip: "GZ"},
	} {
		hj, err := json.Marshal(h)
		require.NoError(t, err)
		parts[0] = b64.EncodeToString(hj)
		_, _, err = Open(strings.Join(parts, "."), key)
		assert.ErrorIs(t, err, common.ErrorDecryption)
	}
}

// Decoders must support zip:"DEF" even though Seal never produces it. The
// envelope is constructed by hand the way a foreign encoder would.
func TestOpen_InflatesDeflatedPayload(t *testing.T) {
	key := mustKey(t)
	plaintext := bytes.Repeat([]byte("compressible clinical note "), 100)

	var compressed bytes.Buffer
	w, err := flate.NewWriter(&compressed, flate.BestCompression)
	require.NoError(t, err)
	_, err = w.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	hj, err := json.Marshal(header{Alg: AlgDirect, Enc: EncA256GCM, Cty: "text/plain", Zip: ZipDeflate})
	require.NoError(t, err)
	protected := b64.EncodeToString(hj)

	iv, err := randBytes(ivSize)
	require.NoError(t, err)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	aead, err := cipher.NewGCM(block)
	require.NoError(t, err)
	sealed := aead.Seal(nil, iv, compressed.Bytes(), []byte(protected))

	env := fmt.Sprintf("%s..%s.%s.%s",
		protected,
		b64.EncodeToString(iv),
		b64.EncodeToString(sealed[:len(sealed)-tagSize]),
		b64.EncodeToString(sealed[len(sealed)-tagSize:]))

	got, cty, err := Open(env, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
	assert.Equal(t, "text/plain", cty)
}
