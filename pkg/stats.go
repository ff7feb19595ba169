package dupelink

import (
	"sync/atomic"
)

// Stats holds counters updated while scanning. Fields are atomic so hash
// workers can update them without locks.
type Stats struct {
	FilesSeen   atomic.Int64
	FilesHashed atomic.Int64
	BytesHashed atomic.Int64

	SkippedIgnored    atomic.Int64
	SkippedSpecial    atomic.Int64
	SkippedSymlink    atomic.Int64
	SkippedUnreadable atomic.Int64
	DirsIgnored       atomic.Int64

	TraversalErrors atomic.Int64
	ReadErrors      atomic.Int64
	HashErrors      atomic.Int64

	Groups      atomic.Int64
	Duplicates  atomic.Int64
	Reclaimable atomic.Int64

	Replaced       atomic.Int64
	ReplaceFailed  atomic.Int64
	ReplaceSkipped atomic.Int64
}

// StatsSnapshot is a plain copy of Stats for reporting
type StatsSnapshot struct {
	FilesSeen         int64 `json:"files_seen"`
	FilesHashed       int64 `json:"files_hashed"`
	BytesHashed       int64 `json:"bytes_hashed"`
	SkippedIgnored    int64 `json:"skipped_ignored"`
	SkippedSpecial    int64 `json:"skipped_special"`
	SkippedSymlink    int64 `json:"skipped_symlink"`
	SkippedUnreadable int64 `json:"skipped_unreadable"`
	DirsIgnored       int64 `json:"dirs_ignored"`
	TraversalErrors   int64 `json:"traversal_errors"`
	ReadErrors        int64 `json:"read_errors"`
	HashErrors        int64 `json:"hash_errors"`
	Groups            int64 `json:"groups"`
	Duplicates        int64 `json:"duplicates"`
	Reclaimable       int64 `json:"reclaimable_bytes"`
	Replaced          int64 `json:"replaced"`
	ReplaceFailed     int64 `json:"replace_failed"`
	ReplaceSkipped    int64 `json:"replace_skipped"`
}

// Snapshot copies the current counter values
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		FilesSeen:         s.FilesSeen.Load(),
		FilesHashed:       s.FilesHashed.Load(),
		BytesHashed:       s.BytesHashed.Load(),
		SkippedIgnored:    s.SkippedIgnored.Load(),
		SkippedSpecial:    s.SkippedSpecial.Load(),
		SkippedSymlink:    s.SkippedSymlink.Load(),
		SkippedUnreadable: s.SkippedUnreadable.Load(),
		DirsIgnored:       s.DirsIgnored.Load(),
		TraversalErrors:   s.TraversalErrors.Load(),
		ReadErrors:        s.ReadErrors.Load(),
		HashErrors:        s.HashErrors.Load(),
		Groups:            s.Groups.Load(),
		Duplicates:        s.Duplicates.Load(),
		Reclaimable:       s.Reclaimable.Load(),
		Replaced:          s.Replaced.Load(),
		ReplaceFailed:     s.ReplaceFailed.Load(),
		ReplaceSkipped:    s.ReplaceSkipped.Load(),
	}
}

// Failures returns the total number of reported failures
func (s StatsSnapshot) Failures() int64 {
	return s.TraversalErrors + s.ReadErrors + s.HashErrors + s.ReplaceFailed
}

// Skipped returns the total number of files that were never hashed
func (s StatsSnapshot) Skipped() int64 {
	return s.SkippedIgnored + s.SkippedSpecial + s.SkippedSymlink + s.SkippedUnreadable
}

// countFailure bumps the counter matching err's kind
func (s *Stats) countFailure(err error) {
	switch KindOf(err) {
	case ErrTraversal:
		s.TraversalErrors.Add(1)
	case ErrRead:
		s.ReadErrors.Add(1)
	case ErrReplacement:
		s.ReplaceFailed.Add(1)
	default:
		s.HashErrors.Add(1)
	}
}

// countSkip bumps the counter matching a skip reason
func (s *Stats) countSkip(reason string) {
	switch reason {
	case SkipIgnored:
		s.SkippedIgnored.Add(1)
	case SkipSpecial:
		s.SkippedSpecial.Add(1)
	case SkipSymlink:
		s.SkippedSymlink.Add(1)
	case SkipUnreadable:
		s.SkippedUnreadable.Add(1)
	}
}
