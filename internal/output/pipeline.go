package output

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/dbsurveyor/dbsurveyor/internal/dberrors"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/dbsurveyor/dbsurveyor/internal/security"
)

// Serialize produces the canonical JSON form of doc (spec.md §4.10 step 2):
// stable numeric formatting, key order not required. encoding/json already
// gives deterministic per-struct field order and Go's standard float
// formatting, so no custom encoder is needed.
func Serialize(doc *model.DatabaseSchema) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, dberrors.NewSerializationError(err)
	}
	return raw, nil
}

// Compress streams raw through Zstandard, returning the `.json.zst` bytes.
func Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, dberrors.NewIOError("zstd writer", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return nil, dberrors.NewIOError("zstd write", err)
	}
	if err := w.Close(); err != nil {
		return nil, dberrors.NewIOError("zstd close", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(compressed []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, dberrors.NewIOError("zstd reader", err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, dberrors.NewIOError("zstd read", err)
	}
	return raw, nil
}

// Encrypt wraps raw in a security.Container under password, ready to be
// serialised as the `.enc` format (spec.md §4.10 step 4).
func Encrypt(password string, raw []byte) (security.Container, error) {
	return security.Encrypt(password, raw)
}

// Decrypt reverses Encrypt.
func Decrypt(password string, c security.Container) ([]byte, error) {
	return security.Decrypt(password, c)
}

// WriteOptions selects the optional stages of the output pipeline.
type WriteOptions struct {
	Compress bool
	Password string // non-empty enables encryption
}

// Extension returns the on-disk suffix WriteOptions produces, per spec.md
// §6's output-format table. Encryption always wins over compression: the
// compressed bytes are encrypted, not the other way around, and the
// container itself is never also zstd-framed on disk.
func (o WriteOptions) Extension() string {
	switch {
	case o.Password != "":
		return ".enc"
	case o.Compress:
		return ".json.zst"
	default:
		return ".json"
	}
}

// Write runs the full validate/serialise/compress/encrypt pipeline over doc
// and writes the result to path (path's extension is not inferred or
// enforced here — callers should use Extension to build it consistently).
func Write(doc *model.DatabaseSchema, path string, opts WriteOptions) error {
	if err := Validate(doc); err != nil {
		return err
	}

	raw, err := Serialize(doc)
	if err != nil {
		return err
	}

	if opts.Compress {
		raw, err = Compress(raw)
		if err != nil {
			return err
		}
	}

	if opts.Password != "" {
		container, err := Encrypt(opts.Password, raw)
		if err != nil {
			return err
		}
		raw, err = json.Marshal(container)
		if err != nil {
			return dberrors.NewSerializationError(err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return dberrors.NewIOError(path, err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return dberrors.NewIOError(path, err)
	}
	return nil
}

// Read reverses Write. It decrypts when password is non-empty (the file is
// then parsed as an encryption container) and decompresses when the
// resulting bytes start with the zstd frame magic.
func Read(path string, password string) (*model.DatabaseSchema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, dberrors.NewIOError(path, err)
	}

	if password != "" {
		var container security.Container
		if err := json.Unmarshal(raw, &container); err != nil {
			return nil, dberrors.NewSerializationError(err)
		}
		raw, err = Decrypt(password, container)
		if err != nil {
			return nil, err
		}
	}

	if isZstdFrame(raw) {
		raw, err = Decompress(raw)
		if err != nil {
			return nil, err
		}
	}

	var doc model.DatabaseSchema
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, dberrors.NewSerializationError(err)
	}
	return &doc, nil
}

// zstdMagic is the 4-byte frame magic number every zstd frame starts with.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func isZstdFrame(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], zstdMagic)
}
