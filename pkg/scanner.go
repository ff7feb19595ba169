package dupelink

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Scanner is the Visitor that feeds hashed files into a FingerprintIndex.
// Directories are never hashed; symlinks, special files, ignored and
// unreadable files are skipped and counted. Hash failures are reported and
// the walk goes on.
type Scanner struct {
	walker   *TreeWalker
	hasher   *ContentHasher
	index    *FingerprintIndex
	ignore   *IgnoreManager
	reporter Reporter
	stats    *Stats
	workers  int
	logger   zerolog.Logger

	// per-Scan state
	ctx   context.Context
	root  string
	group *errgroup.Group

	seq       uint64
	seenFiles map[devIno]bool
}

// hashJob is one file dispatched for hashing
type hashJob struct {
	path string
	root string
	size int64
	seq  uint64
}

// NewScanner wires the scan components. workers <= 1 hashes inline on the
// walking goroutine.
func NewScanner(walker *TreeWalker, hasher *ContentHasher, index *FingerprintIndex, ignore *IgnoreManager, reporter Reporter, stats *Stats, workers int) *Scanner {
	if stats == nil {
		stats = &Stats{}
	}
	return &Scanner{
		walker:    walker,
		hasher:    hasher,
		index:     index,
		ignore:    ignore,
		reporter:  reporter,
		stats:     stats,
		workers:   workers,
		logger:    GetLogger("scanner"),
		seenFiles: make(map[devIno]bool),
	}
}

// Index returns the index being filled
func (s *Scanner) Index() *FingerprintIndex {
	return s.index
}

// Scan walks root and waits for every dispatched hash to finish. Sequence
// numbers continue across calls, so several roots share one discovery order.
func (s *Scanner) Scan(ctx context.Context, root string) error {
	s.ctx = ctx
	s.root = root
	defer func() {
		s.ctx = nil
		s.group = nil
	}()

	var group errgroup.Group
	if s.workers > 1 {
		group.SetLimit(s.workers)
		s.group = &group
	}

	s.logger.Info().Str("root", root).Int("workers", s.workers).Msg("Scanning")
	err := s.walker.Walk(ctx, root, s)
	if s.group != nil {
		group.Wait()
	}
	return err
}

// PreVisitDirectory applies exclusion rules, everything else continues
func (s *Scanner) PreVisitDirectory(path string, info fs.FileInfo) VisitResult {
	if s.ignore.ShouldIgnore(s.relPath(path), true) {
		s.stats.DirsIgnored.Add(1)
		debugEvent(&s.logger, "walk").Str("path", path).Msg("ignoring directory")
		return SkipSubtree
	}
	return Continue
}

// PostVisitDirectory always continues; listing failures were already reported
func (s *Scanner) PostVisitDirectory(path string, err error) VisitResult {
	return Continue
}

// VisitFileFailed reports an inaccessible entry and continues
func (s *Scanner) VisitFileFailed(path string, err error) VisitResult {
	s.fail(err)
	return Continue
}

// VisitFile hashes eligible files
func (s *Scanner) VisitFile(path string, info fs.FileInfo) VisitResult {
	s.stats.FilesSeen.Add(1)

	if s.ignore.ShouldIgnore(s.relPath(path), false) {
		s.skip(path, SkipIgnored)
		return Continue
	}

	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		s.skip(path, SkipSymlink)
		return Continue
	case !mode.IsRegular():
		s.skip(path, SkipSpecial)
		return Continue
	}

	// Following symlinks can reach one file twice; it is not its own duplicate
	if key, ok := fileDevIno(info); ok && s.walker.Symlinks == SymlinksFollow {
		if s.seenFiles[key] {
			s.skip(path, SkipSymlink)
			return Continue
		}
		s.seenFiles[key] = true
	}

	if err := unix.Access(path, unix.R_OK); err != nil {
		s.skip(path, SkipUnreadable)
		return Continue
	}

	s.seq++
	job := hashJob{path: path, root: s.root, size: info.Size(), seq: s.seq}

	if s.group == nil {
		s.hash(job)
		return Continue
	}

	ctx := s.ctx
	s.group.Go(func() error {
		s.hashWith(ctx, job)
		return nil
	})
	return Continue
}

func (s *Scanner) hash(job hashJob) {
	s.hashWith(s.ctx, job)
}

func (s *Scanner) hashWith(ctx context.Context, job hashJob) {
	fingerprint, err := s.hasher.HashFile(ctx, job.path)
	if err != nil {
		if ctx.Err() != nil {
			// Interrupted, not a failure of this file
			return
		}
		s.fail(err)
		return
	}

	s.stats.FilesHashed.Add(1)
	s.stats.BytesHashed.Add(job.size)
	debugEvent(&s.logger, "hash").Str("path", job.path).Str("fingerprint", fingerprint).Uint64("seq", job.seq).Msg("hashed")

	s.index.Add(FileRecord{
		Path:        job.path,
		Fingerprint: fingerprint,
		Size:        job.size,
		Seq:         job.seq,
		Root:        job.root,
	})
}

func (s *Scanner) skip(path, reason string) {
	s.stats.countSkip(reason)
	debugEvent(&s.logger, "walk").Str("path", path).Str("reason", reason).Msg("skipping")
	if s.reporter != nil {
		s.reporter.Skipped(path, reason)
	}
}

func (s *Scanner) fail(err error) {
	s.stats.countFailure(err)
	s.logger.Warn().Err(err).Str("kind", string(KindOf(err))).Msg("Continuing after failure")
	if s.reporter != nil {
		s.reporter.Failure(err)
	}
}

func (s *Scanner) relPath(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return path
	}
	return rel
}
