package dupelink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Action is what happened to one duplicate
type Action string

const (
	ActionDryRun   Action = "dry-run"  // reported, filesystem untouched
	ActionReplaced Action = "replaced" // duplicate is now a symlink to the reference
	ActionFailed   Action = "failed"   // replacement was attempted and failed
)

// Outcome is the result of handling one duplicate entry
type Outcome struct {
	Entry  DuplicateEntry
	Action Action
	Err    error
}

// Replacer acts on a duplicate entry
type Replacer interface {
	Replace(ctx context.Context, entry DuplicateEntry) Outcome
}

// SymlinkReplacer swaps a duplicate for a symbolic link to its reference.
// With DryRun set it never touches the filesystem.
type SymlinkReplacer struct {
	DryRun     bool
	Verify     bool // compare bytes with the reference before replacing
	BufferSize int
	logger     zerolog.Logger
}

// NewSymlinkReplacer creates a replacer
func NewSymlinkReplacer(dryRun, verify bool, bufferSize int) *SymlinkReplacer {
	return &SymlinkReplacer{
		DryRun:     dryRun,
		Verify:     verify,
		BufferSize: bufferSize,
		logger:     GetLogger("replace"),
	}
}

// Replace deletes the duplicate and links its path to the reference. The
// symlink is created under a temporary name and renamed over the duplicate,
// so the path is never missing. Failures are returned in the Outcome.
func (r *SymlinkReplacer) Replace(ctx context.Context, entry DuplicateEntry) Outcome {
	if r.DryRun {
		return Outcome{Entry: entry, Action: ActionDryRun}
	}

	if err := r.replace(ctx, entry); err != nil {
		r.logger.Warn().Err(err).Str("duplicate", entry.Duplicate.Path).Msg("Replacement failed")
		return Outcome{Entry: entry, Action: ActionFailed, Err: err}
	}

	debugEvent(&r.logger, "replace").
		Str("duplicate", entry.Duplicate.Path).
		Str("reference", entry.Reference.Path).
		Msg("replaced duplicate with symlink")
	return Outcome{Entry: entry, Action: ActionReplaced}
}

func (r *SymlinkReplacer) replace(ctx context.Context, entry DuplicateEntry) error {
	dup := entry.Duplicate.Path
	ref := entry.Reference.Path

	if err := ctx.Err(); err != nil {
		return newError(ErrReplacement, dup, "interrupted", err)
	}

	dupInfo, err := os.Lstat(dup)
	if err != nil {
		return newError(ErrReplacement, dup, "failed to stat duplicate", err)
	}
	if !dupInfo.Mode().IsRegular() {
		return newErrorf(ErrReplacement, dup, "duplicate is no longer a regular file")
	}
	if dupInfo.Size() != entry.Duplicate.Size {
		return newErrorf(ErrReplacement, dup, "duplicate changed size since it was hashed (%d -> %d)",
			entry.Duplicate.Size, dupInfo.Size())
	}

	refInfo, err := os.Stat(ref)
	if err != nil {
		return newError(ErrReplacement, dup, "failed to stat reference "+ref, err)
	}
	if os.SameFile(refInfo, dupInfo) {
		return newErrorf(ErrReplacement, dup, "duplicate and reference %s are the same file", ref)
	}

	if r.Verify {
		same, err := filesEqual(ctx, ref, dup, r.BufferSize)
		if err != nil {
			return newError(ErrReplacement, dup, "failed to verify content", err)
		}
		if !same {
			return newErrorf(ErrReplacement, dup, "content differs from reference %s", ref)
		}
	}

	tmp := dup + tempLinkSuffix
	if err := unix.Symlink(ref, tmp); err != nil {
		return newError(ErrReplacement, dup, "failed to create symbolic link", err)
	}
	if err := unix.Rename(tmp, dup); err != nil {
		if rmErr := unix.Unlink(tmp); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to remove temporary link %s: %w", tmp, rmErr))
		}
		return newError(ErrReplacement, dup, "failed to replace duplicate", err)
	}
	return nil
}

// filesEqual compares two files byte by byte
func filesEqual(ctx context.Context, a, b string, bufferSize int) (bool, error) {
	if bufferSize <= 0 {
		bufferSize = 64 * 1024
	}

	fa, err := os.Open(a)
	if err != nil {
		return false, err
	}
	defer fa.Close()

	fb, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer fb.Close()

	bufA := make([]byte, bufferSize)
	bufB := make([]byte, bufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}

		doneA := errors.Is(errA, io.EOF) || errors.Is(errA, io.ErrUnexpectedEOF)
		doneB := errors.Is(errB, io.EOF) || errors.Is(errB, io.ErrUnexpectedEOF)
		if errA != nil && !doneA {
			return false, errA
		}
		if errB != nil && !doneB {
			return false, errB
		}
		if doneA || doneB {
			return doneA == doneB, nil
		}
	}
}
