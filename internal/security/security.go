// Package security implements the Argon2id key derivation and AES-GCM-256
// authenticated encryption used by the output pipeline's optional `.enc`
// container (spec.md §4.10). The AEAD construction follows the teacher's
// pkg/keyring file-keyring encrypt/decrypt shape (nonce-prefixed GCM seal,
// crypto/rand nonce); the key derivation is upgraded from the teacher's
// plain SHA-256 hash to Argon2id, matching the parameters the original
// Rust implementation used.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/dbsurveyor/dbsurveyor/internal/dberrors"
	"golang.org/x/crypto/argon2"
)

const (
	SaltSize  = 16
	NonceSize = 12
	TagSize   = 16
	KeySize   = 32

	// Argon2id parameters, per spec.md §4.10. KDFParams.Validate rejects
	// parameters below the min* floor below (8 MiB memory, time 1,
	// parallelism 1), which is lower than these defaults.
	DefaultMemoryKiB    uint32 = 65536
	DefaultTime         uint32 = 3
	DefaultParallelism  uint8  = 4
	Argon2Version       int    = argon2.Version

	minMemoryKiB   uint32 = 8192
	minTime        uint32 = 1
	minParallelism uint8  = 1
)

// KDFParams are the Argon2id parameters embedded in every `.enc` container
// so decryption can reproduce the exact key.
type KDFParams struct {
	Salt        []byte `json:"salt"`
	MemoryKiB   uint32 `json:"memory"`
	Time        uint32 `json:"time"`
	Parallelism uint8  `json:"parallelism"`
	Version     int    `json:"version"`
}

// NewKDFParams generates a fresh random salt and returns the default
// parameter set.
func NewKDFParams() (KDFParams, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return KDFParams{}, dberrors.NewSecurityError("failed to generate salt")
	}
	return KDFParams{
		Salt:        salt,
		MemoryKiB:   DefaultMemoryKiB,
		Time:        DefaultTime,
		Parallelism: DefaultParallelism,
		Version:     Argon2Version,
	}, nil
}

// Validate enforces the minimum parameter floor before a key is derived,
// per spec.md §4.10 ("Minimum-parameter validation is enforced on input").
func (p KDFParams) Validate() error {
	if len(p.Salt) != SaltSize {
		return dberrors.NewSecurityError("invalid salt length")
	}
	if p.MemoryKiB < minMemoryKiB {
		return dberrors.NewSecurityError("kdf memory parameter below minimum")
	}
	if p.Time < minTime {
		return dberrors.NewSecurityError("kdf time parameter below minimum")
	}
	if p.Parallelism < minParallelism {
		return dberrors.NewSecurityError("kdf parallelism parameter below minimum")
	}
	return nil
}

// deriveKey runs Argon2id over password with the given parameters,
// producing a 32-byte key. The caller owns the returned slice and must
// Zero it after use.
func deriveKey(password string, p KDFParams) []byte {
	return argon2.IDKey([]byte(password), p.Salt, p.Time, p.MemoryKiB, p.Parallelism, KeySize)
}

// Zero overwrites key material in place. Call via defer immediately after
// deriving or consuming a key.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Container is the on-disk `.enc` format: algorithm tag, nonce, ciphertext,
// detached auth tag, and the KDF parameters needed to reproduce the key.
type Container struct {
	Algorithm  string    `json:"algorithm"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	AuthTag    []byte    `json:"auth_tag"`
	KDFParams  KDFParams `json:"kdf_params"`
}

const algorithmName = "AES-GCM-256"

// Encrypt derives a key from password with fresh Argon2id parameters,
// encrypts plaintext with AES-GCM-256, and returns the persistable
// container. Key material is zeroed before returning.
func Encrypt(password string, plaintext []byte) (Container, error) {
	params, err := NewKDFParams()
	if err != nil {
		return Container{}, err
	}

	key := deriveKey(password, params)
	defer Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return Container{}, dberrors.NewSecurityError("failed to initialise cipher")
	}
	gcm, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return Container{}, dberrors.NewSecurityError("failed to initialise AEAD")
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Container{}, dberrors.NewSecurityError("failed to generate nonce")
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	return Container{
		Algorithm:  algorithmName,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		AuthTag:    tag,
		KDFParams:  params,
	}, nil
}

// Decrypt validates the container's shape and KDF parameters, derives the
// key, and opens the AEAD. A wrong password and a tampered ciphertext are
// deliberately indistinguishable: both surface the same SecurityError, per
// spec.md §7 ("GCM authentication failure reveals no extra information").
func Decrypt(password string, c Container) ([]byte, error) {
	if c.Algorithm != algorithmName {
		return nil, dberrors.NewSecurityError("unsupported algorithm")
	}
	if len(c.Nonce) != NonceSize {
		return nil, dberrors.NewSecurityError("invalid nonce length")
	}
	if len(c.AuthTag) != TagSize {
		return nil, dberrors.NewSecurityError("invalid auth tag length")
	}
	if err := c.KDFParams.Validate(); err != nil {
		return nil, err
	}

	key := deriveKey(password, c.KDFParams)
	defer Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, dberrors.NewSecurityError("failed to initialise cipher")
	}
	gcm, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, dberrors.NewSecurityError("failed to initialise AEAD")
	}

	sealed := make([]byte, 0, len(c.Ciphertext)+len(c.AuthTag))
	sealed = append(sealed, c.Ciphertext...)
	sealed = append(sealed, c.AuthTag...)

	plaintext, err := gcm.Open(nil, c.Nonce, sealed, nil)
	if err != nil {
		return nil, dberrors.NewSecurityError("decryption failed")
	}
	return plaintext, nil
}
