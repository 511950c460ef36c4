package security

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTripIsIdentity(t *testing.T) {
	sizes := []int{0, 1, 16, 1024, 1 << 20}
	for _, size := range sizes {
		plaintext := bytes.Repeat([]byte{0xAB}, size)
		container, err := Encrypt("correct horse battery staple", plaintext)
		require.NoError(t, err)

		decrypted, err := Decrypt("correct horse battery staple", container)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptTwiceProducesDifferentNoncesAndCiphertexts(t *testing.T) {
	plaintext := []byte("sensitive")
	c1, err := Encrypt("p", plaintext)
	require.NoError(t, err)
	c2, err := Encrypt("p", plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, c1.Nonce, c2.Nonce)
	assert.NotEqual(t, c1.Ciphertext, c2.Ciphertext)

	d1, err := Decrypt("p", c1)
	require.NoError(t, err)
	d2, err := Decrypt("p", c2)
	require.NoError(t, err)
	assert.Equal(t, plaintext, d1)
	assert.Equal(t, plaintext, d2)
}

func TestDecryptWrongPasswordFails(t *testing.T) {
	c, err := Encrypt("right", []byte("sensitive"))
	require.NoError(t, err)

	_, err = Decrypt("wrong", c)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "sensitive")
	assert.NotContains(t, err.Error(), "right")
	assert.NotContains(t, err.Error(), "wrong")
}

func TestTamperingAuthTagFailsDecryption(t *testing.T) {
	c, err := Encrypt("p", []byte("sensitive"))
	require.NoError(t, err)
	c.AuthTag[0] ^= 0xFF

	_, err = Decrypt("p", c)
	require.Error(t, err)
}

func TestTamperingCiphertextFailsDecryption(t *testing.T) {
	c, err := Encrypt("p", []byte("sensitive-data-longer-than-one-block"))
	require.NoError(t, err)
	c.Ciphertext[0] ^= 0xFF

	_, err = Decrypt("p", c)
	require.Error(t, err)
}

func TestTamperingNonceFailsDecryption(t *testing.T) {
	c, err := Encrypt("p", []byte("sensitive"))
	require.NoError(t, err)
	c.Nonce[0] ^= 0xFF

	_, err = Decrypt("p", c)
	require.Error(t, err)
}

func TestDecryptRejectsBelowMinimumKDFParams(t *testing.T) {
	c, err := Encrypt("p", []byte("x"))
	require.NoError(t, err)
	c.KDFParams.MemoryKiB = 1

	_, err = Decrypt("p", c)
	require.Error(t, err)
}

func TestDecryptRejectsWrongAlgorithm(t *testing.T) {
	c, err := Encrypt("p", []byte("x"))
	require.NoError(t, err)
	c.Algorithm = "AES-CBC"

	_, err = Decrypt("p", c)
	require.Error(t, err)
}

func TestDecryptRejectsBadNonceLength(t *testing.T) {
	c, err := Encrypt("p", []byte("x"))
	require.NoError(t, err)
	c.Nonce = c.Nonce[:4]

	_, err = Decrypt("p", c)
	require.Error(t, err)
}

func TestZeroOverwritesKeyMaterial(t *testing.T) {
	key := []byte{1, 2, 3, 4}
	Zero(key)
	assert.Equal(t, []byte{0, 0, 0, 0}, key)
}
