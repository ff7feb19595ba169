package dupelink

import (
	"strings"
)

// Hash type constants
const (
	HashTypeMD5     uint16 = 1 // MD5 (16 bytes)
	HashTypeSHA1    uint16 = 2 // SHA-1 (20 bytes)
	HashTypeSHA256  uint16 = 3 // SHA-256 (32 bytes)
	HashTypeSHA512  uint16 = 4 // SHA-512 (64 bytes)
	HashTypeBLAKE2b uint16 = 5 // BLAKE2b-256 (32 bytes)
)

// Hash size constants
const (
	HashSizeMD5     = 16 // MD5 hash size in bytes
	HashSizeSHA1    = 20 // SHA-1 hash size in bytes
	HashSizeSHA256  = 32 // SHA-256 hash size in bytes
	HashSizeSHA512  = 64 // SHA-512 hash size in bytes
	HashSizeBLAKE2b = 32 // BLAKE2b-256 hash size in bytes
)

// DefaultHashAlgorithm is used when no algorithm is configured
const DefaultHashAlgorithm = "sha256"

// DefaultHashBuffer is the chunk size used when reading files for hashing
const DefaultHashBuffer = "64K"

// DefaultHashWorkers is the number of concurrent hash workers
const DefaultHashWorkers = 4

// HashTypeName returns the human-readable name for a hash type
func HashTypeName(hashType uint16) string {
	switch hashType {
	case HashTypeMD5:
		return "md5"
	case HashTypeSHA1:
		return "sha1"
	case HashTypeSHA256:
		return "sha256"
	case HashTypeSHA512:
		return "sha512"
	case HashTypeBLAKE2b:
		return "blake2b"
	default:
		return "unknown"
	}
}

// HashTypeFromName returns the hash type constant from a name (case-insensitive)
func HashTypeFromName(name string) (uint16, bool) {
	switch strings.ToLower(name) {
	case "md5":
		return HashTypeMD5, true
	case "sha1":
		return HashTypeSHA1, true
	case "sha256":
		return HashTypeSHA256, true
	case "sha512":
		return HashTypeSHA512, true
	case "blake2b":
		return HashTypeBLAKE2b, true
	default:
		return 0, false
	}
}

// Entry order policies for directory listings
const (
	OrderSorted = "sorted" // entries sorted by name within each directory
	OrderNative = "native" // entries in the order the platform returns them
)

// Within-group ordering policies, the first member becomes the reference
const (
	ReferenceDiscovery = "discovery" // traversal discovery order
	ReferencePath      = "path"      // lexicographic full path
)

// Symlink handling modes
const (
	SymlinksSkip   = "skip"
	SymlinksFollow = "follow"
)

// Output formats
const (
	FormatHuman  = "human"
	FormatJSON   = "json"
	FormatFdupes = "fdupes"
)

// Color modes for the human report
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Skip reasons reported for files that are never hashed
const (
	SkipIgnored    = "ignored"
	SkipSpecial    = "special"
	SkipSymlink    = "symlink"
	SkipUnreadable = "unreadable"
)

// tempLinkSuffix names the symlink created next to a duplicate before it is renamed over it
const tempLinkSuffix = ".dupelink-tmp"
