package dupelink

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
)

// Reporter receives the events of a run. Implementations must be safe for
// concurrent use, hash workers report failures and skips directly.
type Reporter interface {
	Reference(group DuplicateGroup)
	Duplicate(outcome Outcome)
	Skipped(path, reason string)
	Failure(err error)
	Summary(result *Result)
	Flush() error
}

// ReportOptions selects and tunes a Reporter
type ReportOptions struct {
	Format      string // FormatHuman, FormatJSON or FormatFdupes
	Color       string // ColorAuto, ColorAlways or ColorNever
	ShowSkipped bool   // human format only, json always includes skips
	RunID       string // json format only, generated when empty
}

// NewReporter creates a reporter writing to w
func NewReporter(w io.Writer, opts ReportOptions) (Reporter, error) {
	lw := newLineWriter(w)
	switch strings.ToLower(opts.Format) {
	case FormatHuman, "":
		return newHumanReporter(lw, colorEnabled(w, opts.Color), opts.ShowSkipped), nil
	case FormatJSON:
		runID := opts.RunID
		if runID == "" {
			runID = uuid.New().String()
		}
		return &jsonReporter{lw: lw, runID: runID}, nil
	case FormatFdupes:
		return &fdupesReporter{lw: lw}, nil
	default:
		return nil, newErrorf(ErrConfig, "", "unsupported output format: %s", opts.Format)
	}
}

// colorEnabled resolves a color mode against the sink. Auto colors only a
// terminal and honours NO_COLOR through fatih/color.
func colorEnabled(w io.Writer, mode string) bool {
	switch strings.ToLower(mode) {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ============================================================================
// HUMAN
// ============================================================================

type humanReporter struct {
	lw          *lineWriter
	showSkipped bool

	bold   *color.Color
	green  *color.Color
	yellow *color.Color
	red    *color.Color
	gray   *color.Color
}

func newHumanReporter(lw *lineWriter, useColor, showSkipped bool) *humanReporter {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return &humanReporter{
		lw:          lw,
		showSkipped: showSkipped,
		bold:        mk(color.Bold),
		green:       mk(color.FgGreen),
		yellow:      mk(color.FgYellow),
		red:         mk(color.FgRed),
		gray:        mk(color.FgHiBlack),
	}
}

func (h *humanReporter) Reference(group DuplicateGroup) {
	h.lw.WriteLine(h.bold.Sprintf("Reference file to keep: %s", group.Reference) +
		h.gray.Sprintf(" (%d copies, %s each)", group.Count, HumanSize(group.Size)))
}

func (h *humanReporter) Duplicate(outcome Outcome) {
	dup := outcome.Entry.Duplicate.Path
	ref := outcome.Entry.Reference.Path

	switch outcome.Action {
	case ActionDryRun:
		h.lw.WriteLine(h.yellow.Sprint("[dry-run] ") + fmt.Sprintf("Deleting duplicate file %s", dup))
		h.lw.WriteLine(h.yellow.Sprint("[dry-run] ") + fmt.Sprintf("Creating symbolic link %s -> %s", dup, ref))
	case ActionReplaced:
		h.lw.WriteLine(h.green.Sprintf("Deleting duplicate file %s", dup))
		h.lw.WriteLine(h.green.Sprintf("Creating symbolic link %s -> %s", dup, ref))
	case ActionFailed:
		h.lw.WriteLine(h.red.Sprint(failureLine(outcome.Err)))
	}
}

func (h *humanReporter) Skipped(path, reason string) {
	if !h.showSkipped {
		return
	}
	h.lw.WriteLine(h.gray.Sprintf("Skipping %s (%s)", path, reason))
}

func (h *humanReporter) Failure(err error) {
	h.lw.WriteLine(h.red.Sprint(failureLine(err)))
}

func (h *humanReporter) Summary(result *Result) {
	s := result.Stats
	h.lw.WriteLine("")
	title := "Summary"
	if result.Interrupted {
		title = "Summary (interrupted)"
	}
	h.lw.WriteLine(h.bold.Sprint(title))
	h.lw.WriteLine(fmt.Sprintf("  Files hashed:     %d of %d (%s)", s.FilesHashed, s.FilesSeen, HumanSize(s.BytesHashed)))
	h.lw.WriteLine(fmt.Sprintf("  Files skipped:    %d (unreadable %d, special %d, symlink %d, ignored %d)",
		s.Skipped(), s.SkippedUnreadable, s.SkippedSpecial, s.SkippedSymlink, s.SkippedIgnored))
	h.lw.WriteLine(fmt.Sprintf("  Duplicate groups: %d", s.Groups))
	h.lw.WriteLine(fmt.Sprintf("  Duplicates:       %d (%s reclaimable)", s.Duplicates, HumanSize(s.Reclaimable)))
	if result.DryRun {
		h.lw.WriteLine(h.yellow.Sprintf("  Replaced:         none (dry run, %d pending)", s.ReplaceSkipped))
	} else {
		h.lw.WriteLine(fmt.Sprintf("  Replaced:         %d", s.Replaced))
	}
	failures := s.Failures()
	line := fmt.Sprintf("  Failures:         %d (traversal %d, read %d, hash %d, replacement %d)",
		failures, s.TraversalErrors, s.ReadErrors, s.HashErrors, s.ReplaceFailed)
	if failures > 0 {
		line = h.red.Sprint(line)
	}
	h.lw.WriteLine(line)
}

func (h *humanReporter) Flush() error {
	return h.lw.Flush()
}

// failureLine renders "Kind: path: message"
func failureLine(err error) string {
	if err == nil {
		return ""
	}
	kind := KindOf(err)
	if kind == "" {
		return fmt.Sprintf("Error: %v", err)
	}
	return err.Error()
}

// ============================================================================
// JSON LINES
// ============================================================================

type jsonReporter struct {
	lw    *lineWriter
	runID string
}

// ReportRecord is one line of the json report
type ReportRecord struct {
	Type        string         `json:"type"`
	RunID       string         `json:"run_id"`
	Hash        string         `json:"hash,omitempty"`
	Path        string         `json:"path,omitempty"`
	Reference   string         `json:"reference,omitempty"`
	Duplicate   string         `json:"duplicate,omitempty"`
	Files       []string       `json:"files,omitempty"`
	Count       int            `json:"count,omitempty"`
	Size        int64          `json:"size,omitempty"`
	Action      string         `json:"action,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Kind        string         `json:"kind,omitempty"`
	Message     string         `json:"message,omitempty"`
	DryRun      *bool          `json:"dry_run,omitempty"`
	Interrupted *bool          `json:"interrupted,omitempty"`
	Stats       *StatsSnapshot `json:"stats,omitempty"`
}

func (j *jsonReporter) emit(rec ReportRecord) {
	rec.RunID = j.runID
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	j.lw.WriteLine(string(data))
}

func (j *jsonReporter) Reference(group DuplicateGroup) {
	j.emit(ReportRecord{
		Type:  "reference",
		Hash:  group.Hash,
		Path:  group.Reference,
		Files: group.Files,
		Count: group.Count,
		Size:  group.Size,
	})
}

func (j *jsonReporter) Duplicate(outcome Outcome) {
	rec := ReportRecord{
		Type:      "duplicate",
		Hash:      outcome.Entry.Duplicate.Fingerprint,
		Reference: outcome.Entry.Reference.Path,
		Duplicate: outcome.Entry.Duplicate.Path,
		Size:      outcome.Entry.Duplicate.Size,
		Action:    string(outcome.Action),
	}
	if outcome.Err != nil {
		rec.Kind, rec.Message = errorParts(outcome.Err)
	}
	j.emit(rec)
}

func (j *jsonReporter) Skipped(path, reason string) {
	j.emit(ReportRecord{Type: "skip", Path: path, Reason: reason})
}

func (j *jsonReporter) Failure(err error) {
	rec := ReportRecord{Type: "failure"}
	rec.Kind, rec.Message = errorParts(err)
	var e *Error
	if errors.As(err, &e) {
		rec.Path = e.Path
	}
	j.emit(rec)
}

func (j *jsonReporter) Summary(result *Result) {
	stats := result.Stats
	dryRun := result.DryRun
	interrupted := result.Interrupted
	j.emit(ReportRecord{
		Type:        "summary",
		DryRun:      &dryRun,
		Interrupted: &interrupted,
		Stats:       &stats,
	})
}

func (j *jsonReporter) Flush() error {
	return j.lw.Flush()
}

// errorParts splits an error into kind and message
func errorParts(err error) (string, string) {
	var e *Error
	if errors.As(err, &e) {
		return string(e.Kind), e.Message()
	}
	return "Error", err.Error()
}

// ============================================================================
// FDUPES
// ============================================================================

// fdupesReporter prints each group as consecutive paths, reference first,
// with a blank line between groups. Other events only go to the log.
type fdupesReporter struct {
	mu      sync.Mutex
	lw      *lineWriter
	started bool
}

func (f *fdupesReporter) Reference(group DuplicateGroup) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.started {
		f.lw.WriteLine("")
	}
	f.started = true
	for _, path := range group.Files {
		f.lw.WriteLine(path)
	}
}

func (f *fdupesReporter) Duplicate(Outcome) {}

func (f *fdupesReporter) Skipped(string, string) {}

func (f *fdupesReporter) Failure(error) {}

func (f *fdupesReporter) Summary(*Result) {}

func (f *fdupesReporter) Flush() error {
	return f.lw.Flush()
}
