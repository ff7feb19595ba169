package dupelink

import (
	"context"
	"errors"
	"sync"
)

// Result is everything one run found and did
type Result struct {
	Roots       []string
	Groups      []DuplicateGroup
	Entries     []DuplicateEntry
	Outcomes    []Outcome
	Failures    []error
	Stats       StatsSnapshot
	DryRun      bool
	Interrupted bool
}

// Run scans every root in settings, resolves duplicates, hands each entry to
// the replacer and reports the whole run. A nil reporter discards events, a
// nil replacer is a SymlinkReplacer built from settings.
//
// The only errors returned are fatal ones: invalid settings, an invalid root
// or cancellation. Per-file failures end up in Result.Failures. On
// cancellation the partial result is summarised and returned with the error.
func Run(ctx context.Context, settings Settings, reporter Reporter, replacer Replacer) (*Result, error) {
	logger := GetLogger("run")

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	hasher, err := NewContentHasher(settings.HashAlgorithm, settings.HashBuffer)
	if err != nil {
		return nil, err
	}

	ignore, err := NewIgnoreManager(settings.Ignore)
	if err != nil {
		return nil, newError(ErrConfig, "", "invalid ignore pattern", err)
	}
	if settings.IgnoreFile != "" {
		if err := ignore.LoadIgnoreFile(settings.IgnoreFile); err != nil {
			return nil, newError(ErrConfig, settings.IgnoreFile, "failed to load ignore file", err)
		}
	}

	roots, err := normaliseRoots(settings.Roots)
	if err != nil {
		return nil, err
	}

	if replacer == nil {
		replacer = NewSymlinkReplacer(settings.DryRun, settings.Verify, hasher.BufferSize)
	}

	rec := &recordingReporter{next: reporter}
	stats := &Stats{}
	index := NewFingerprintIndex(settings.ReferenceOrder)
	walker := NewTreeWalker(settings.Order, settings.Symlinks)
	scanner := NewScanner(walker, hasher, index, ignore, rec, stats, settings.HashWorkers)

	result := &Result{Roots: roots, DryRun: settings.DryRun}
	finish := func(runErr error) (*Result, error) {
		result.Failures = rec.failures()
		result.Stats = stats.Snapshot()
		rec.Summary(result)
		if err := rec.Flush(); err != nil && runErr == nil {
			runErr = err
		}
		return result, runErr
	}

	for _, root := range roots {
		err := scanner.Scan(ctx, root)
		if err == nil {
			continue
		}
		if isCancellation(ctx, err) {
			logger.Warn().Str("root", root).Msg("Scan interrupted")
			result.Interrupted = true
			return finish(ctx.Err())
		}
		// An invalid root ends the run before anything is grouped
		return nil, err
	}
	if ctx.Err() != nil {
		// Cancelled while the last hashes were in flight
		result.Interrupted = true
		return finish(ctx.Err())
	}

	logger.Info().
		Int("records", index.Len()).
		Int("fingerprints", index.GroupCount()).
		Msg("Scan complete")

	for hash, members := range index.Groups() {
		if len(members) < 2 {
			continue
		}
		group := NewDuplicateGroup(hash, members)
		result.Groups = append(result.Groups, group)
		stats.Groups.Add(1)
		stats.Duplicates.Add(int64(group.Count - 1))
		stats.Reclaimable.Add(group.Reclaimable())
		rec.Reference(group)

		for _, entry := range EntriesForGroup(members) {
			result.Entries = append(result.Entries, entry)
			if ctx.Err() != nil {
				result.Interrupted = true
				continue
			}

			outcome := replacer.Replace(ctx, entry)
			result.Outcomes = append(result.Outcomes, outcome)
			switch outcome.Action {
			case ActionReplaced:
				stats.Replaced.Add(1)
			case ActionDryRun:
				stats.ReplaceSkipped.Add(1)
			case ActionFailed:
				stats.ReplaceFailed.Add(1)
				rec.record(outcome.Err)
			}
			rec.Duplicate(outcome)
		}
	}

	if result.Interrupted {
		return finish(ctx.Err())
	}
	return finish(nil)
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// recordingReporter keeps the failures of a run and forwards every event
type recordingReporter struct {
	next Reporter

	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) record(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recordingReporter) failures() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recordingReporter) Reference(group DuplicateGroup) {
	if r.next != nil {
		r.next.Reference(group)
	}
}

func (r *recordingReporter) Duplicate(outcome Outcome) {
	if r.next != nil {
		r.next.Duplicate(outcome)
	}
}

func (r *recordingReporter) Skipped(path, reason string) {
	if r.next != nil {
		r.next.Skipped(path, reason)
	}
}

func (r *recordingReporter) Failure(err error) {
	r.record(err)
	if r.next != nil {
		r.next.Failure(err)
	}
}

func (r *recordingReporter) Summary(result *Result) {
	if r.next != nil {
		r.next.Summary(result)
	}
}

func (r *recordingReporter) Flush() error {
	if r.next != nil {
		return r.next.Flush()
	}
	return nil
}
