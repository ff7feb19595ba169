package dupelink

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm represents a hash algorithm configuration
type HashAlgorithm struct {
	Name    string
	TypeID  uint16
	Size    int
	NewFunc func() hash.Hash
}

// GetHashAlgorithm returns the hash algorithm configuration for the given name
func GetHashAlgorithm(name string) (*HashAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "md5":
		return &HashAlgorithm{
			Name:    "md5",
			TypeID:  HashTypeMD5,
			Size:    HashSizeMD5,
			NewFunc: func() hash.Hash { return md5.New() },
		}, nil
	case "sha1":
		return &HashAlgorithm{
			Name:    "sha1",
			TypeID:  HashTypeSHA1,
			Size:    HashSizeSHA1,
			NewFunc: func() hash.Hash { return sha1.New() },
		}, nil
	case "sha256", "":
		return &HashAlgorithm{
			Name:    "sha256",
			TypeID:  HashTypeSHA256,
			Size:    HashSizeSHA256,
			NewFunc: func() hash.Hash { return sha256.New() },
		}, nil
	case "sha512":
		return &HashAlgorithm{
			Name:    "sha512",
			TypeID:  HashTypeSHA512,
			Size:    HashSizeSHA512,
			NewFunc: func() hash.Hash { return sha512.New() },
		}, nil
	case "blake2b":
		return &HashAlgorithm{
			Name:    "blake2b",
			TypeID:  HashTypeBLAKE2b,
			Size:    HashSizeBLAKE2b,
			NewFunc: newBLAKE2b256,
		}, nil
	default:
		return nil, newErrorf(ErrHashUnavailable, "", "unsupported hash algorithm: %s", name)
	}
}

// newBLAKE2b256 is unkeyed, New256 only fails for an oversized key
func newBLAKE2b256() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	return h
}

// GetHashAlgorithmByType returns the hash algorithm configuration for the given type ID
func GetHashAlgorithmByType(typeID uint16) (*HashAlgorithm, error) {
	name := HashTypeName(typeID)
	if name == "unknown" {
		return nil, newErrorf(ErrHashUnavailable, "", "unsupported hash type ID: %d", typeID)
	}
	return GetHashAlgorithm(name)
}

// EncodeDigest renders a digest as lowercase hex at full width, leading zero bytes included
func EncodeDigest(sum []byte) string {
	return hex.EncodeToString(sum)
}

// HashReader digests r in bufferSize chunks and returns the hex fingerprint.
// Only the bytes actually returned by each read are fed to the digest, a short
// final read never re-feeds stale buffer content. ctx is checked between reads.
func HashReader(ctx context.Context, r io.Reader, algorithm *HashAlgorithm, bufferSize int) (string, error) {
	if algorithm == nil || algorithm.NewFunc == nil {
		return "", newErrorf(ErrHashUnavailable, "", "no hash algorithm configured")
	}
	if bufferSize <= 0 {
		bufferSize = 64 * 1024
	}

	hasher := algorithm.NewFunc()
	buffer := make([]byte, bufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := r.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", newError(ErrRead, "", "failed to read stream", err)
		}
	}

	return EncodeDigest(hasher.Sum(nil)), nil
}

// HashFile opens filePath and returns its hex fingerprint
func HashFile(ctx context.Context, filePath string, algorithm *HashAlgorithm, bufferSize int) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", newError(ErrRead, filePath, "failed to open file", err)
	}
	defer file.Close()

	fingerprint, err := HashReader(ctx, file, algorithm, bufferSize)
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Path == "" {
			e.Path = filePath
		}
		return "", err
	}
	return fingerprint, nil
}

// HashStringToHexString calculates the hash of a string and returns it as a hex string
func HashStringToHexString(data string, algorithm *HashAlgorithm) string {
	hasher := algorithm.NewFunc()
	hasher.Write([]byte(data))
	return EncodeDigest(hasher.Sum(nil))
}

// ContentHasher binds an algorithm and a chunk size
type ContentHasher struct {
	Algorithm  *HashAlgorithm
	BufferSize int
}

// NewContentHasher resolves the named algorithm and parses a human buffer size such as "64K"
func NewContentHasher(name, bufferSize string) (*ContentHasher, error) {
	algorithm, err := GetHashAlgorithm(name)
	if err != nil {
		return nil, err
	}

	size, err := ParseHumanSize(bufferSize)
	if err != nil {
		return nil, fmt.Errorf("failed to parse hash buffer size: %w", err)
	}
	if size <= 0 {
		return nil, fmt.Errorf("hash buffer size must be positive, got %d", size)
	}

	return &ContentHasher{Algorithm: algorithm, BufferSize: size}, nil
}

// HashFile fingerprints the file at path
func (h *ContentHasher) HashFile(ctx context.Context, path string) (string, error) {
	return HashFile(ctx, path, h.Algorithm, h.BufferSize)
}

// FingerprintLen is the hex length of every fingerprint this hasher produces
func (h *ContentHasher) FingerprintLen() int {
	return 2 * h.Algorithm.Size
}
