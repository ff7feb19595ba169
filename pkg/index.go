package dupelink

import (
	"cmp"
	"iter"
	"strings"
	"sync"
	"unsafe"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// FileRecord is one successfully hashed file
type FileRecord struct {
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
	Size        int64  `json:"size"`
	Seq         uint64 `json:"seq"`  // discovery sequence number, assigned at dispatch
	Root        string `json:"root"` // scan root the file was found under
}

// indexKey orders records by fingerprint first, so each group is a contiguous
// run, then by the within-group policy. Seq is unique and breaks every tie.
type indexKey struct {
	fingerprint string
	path        string // empty unless ordering by path
	seq         uint64
}

func compareIndexKeys(a, b indexKey) int {
	if c := strings.Compare(a.fingerprint, b.fingerprint); c != 0 {
		return c
	}
	if c := strings.Compare(a.path, b.path); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// FingerprintIndex groups FileRecords sharing a fingerprint. Add is safe for
// concurrent use; Groups must not run concurrently with Add.
type FingerprintIndex struct {
	mu       sync.RWMutex
	skiplist *zcsl.ZeroCopySkiplist[FileRecord, indexKey, string]
	order    string
	counts   map[string]int
}

// NewFingerprintIndex creates an empty index. order is ReferenceDiscovery
// (members in Seq order) or ReferencePath (members in path order).
func NewFingerprintIndex(order string) *FingerprintIndex {
	byPath := order == ReferencePath

	getKeyFromItem := func(rec *FileRecord) indexKey {
		key := indexKey{fingerprint: rec.Fingerprint, seq: rec.Seq}
		if byPath {
			key.path = rec.Path
		}
		return key
	}

	getItemSize := func(rec *FileRecord) int {
		return int(unsafe.Sizeof(*rec)) + len(rec.Path) + len(rec.Fingerprint) + len(rec.Root)
	}

	if order != ReferencePath {
		order = ReferenceDiscovery
	}

	return &FingerprintIndex{
		skiplist: zcsl.MakeZeroCopySkiplist[FileRecord, indexKey, string](
			16,
			getKeyFromItem,
			getItemSize,
			compareIndexKeys,
		),
		order:  order,
		counts: make(map[string]int),
	}
}

// Order returns the within-group ordering policy
func (fi *FingerprintIndex) Order() string {
	return fi.order
}

// Add stores a record under its fingerprint. The record's root is kept as the
// skiplist context. Add reports whether the skiplist accepted the record.
func (fi *FingerprintIndex) Add(record FileRecord) bool {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	rec := record
	if !fi.skiplist.Insert(&rec, rec.Root) {
		return false
	}
	fi.counts[rec.Fingerprint]++
	return true
}

// Len returns the number of records
func (fi *FingerprintIndex) Len() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.skiplist.Length()
}

// GroupCount returns the number of distinct fingerprints
func (fi *FingerprintIndex) GroupCount() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return len(fi.counts)
}

// Count returns how many records share fingerprint
func (fi *FingerprintIndex) Count(fingerprint string) int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.counts[fingerprint]
}

// Groups yields each fingerprint with its members in within-group order.
// Groups come out in fingerprint order.
func (fi *FingerprintIndex) Groups() iter.Seq2[string, []FileRecord] {
	return func(yield func(string, []FileRecord) bool) {
		fi.mu.RLock()
		defer fi.mu.RUnlock()

		var fingerprint string
		var members []FileRecord
		for current := fi.skiplist.First(); current != nil; current = current.Next() {
			rec := *current.Item()
			if members != nil && rec.Fingerprint != fingerprint {
				if !yield(fingerprint, members) {
					return
				}
				members = nil
			}
			fingerprint = rec.Fingerprint
			members = append(members, rec)
		}
		if members != nil {
			yield(fingerprint, members)
		}
	}
}
