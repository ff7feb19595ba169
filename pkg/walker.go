package dupelink

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/rs/zerolog"
)

// VisitResult tells the walker how to proceed after a visitor callback
type VisitResult int

const (
	Continue    VisitResult = iota // keep walking
	SkipSubtree                    // do not descend into this directory
	Terminate                      // stop the whole walk
)

// Visitor receives every entry the walker reaches.
//
// PreVisitDirectory is called before a directory's entries, PostVisitDirectory
// after them (err carries a listing failure, if any). VisitFile is called for
// every non-directory entry, including symlinks and special files; eligibility
// is the visitor's decision. VisitFileFailed is called for entries that could
// not be accessed.
type Visitor interface {
	PreVisitDirectory(path string, info fs.FileInfo) VisitResult
	VisitFile(path string, info fs.FileInfo) VisitResult
	VisitFileFailed(path string, err error) VisitResult
	PostVisitDirectory(path string, err error) VisitResult
}

// TreeWalker enumerates a subtree depth-first
type TreeWalker struct {
	Order    string // OrderSorted or OrderNative
	Symlinks string // SymlinksSkip or SymlinksFollow
	logger   zerolog.Logger
}

// NewTreeWalker creates a walker with the given entry order and symlink mode
func NewTreeWalker(order, symlinks string) *TreeWalker {
	return &TreeWalker{
		Order:    order,
		Symlinks: symlinks,
		logger:   GetLogger("walker"),
	}
}

var errTerminated = errors.New("walk terminated by visitor")

type devIno struct {
	dev uint64
	ino uint64
}

type walkState struct {
	visited map[devIno]bool
}

// Walk visits root and everything below it. Only an invalid root or a
// cancelled context produce an error; every other failure goes to the visitor.
func (w *TreeWalker) Walk(ctx context.Context, root string, visitor Visitor) error {
	info, err := os.Lstat(root)
	if err != nil {
		return newError(ErrRootInvalid, root, "failed to stat root", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		// A root named through a symlink is always resolved
		if info, err = os.Stat(root); err != nil {
			return newError(ErrRootInvalid, root, "failed to resolve root symlink", err)
		}
	}
	if info.IsDir() {
		dir, err := os.Open(root)
		if err != nil {
			return newError(ErrRootInvalid, root, "failed to open root directory", err)
		}
		dir.Close()
	}

	state := &walkState{visited: make(map[devIno]bool)}
	err = w.walk(ctx, root, info, visitor, state)
	if errors.Is(err, errTerminated) {
		return nil
	}
	return err
}

func (w *TreeWalker) walk(ctx context.Context, path string, info fs.FileInfo, visitor Visitor, state *walkState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !info.IsDir() {
		return result(visitor.VisitFile(path, info))
	}

	if key, ok := fileDevIno(info); ok {
		if state.visited[key] {
			debugEvent(&w.logger, "walk").Str("path", path).Msg("directory already visited, skipping cycle")
			return nil
		}
		state.visited[key] = true
	}

	entries, openErr, readErr := w.readDir(path)
	if openErr != nil {
		return result(visitor.VisitFileFailed(path, newError(ErrTraversal, path, "failed to open directory", openErr)))
	}

	switch visitor.PreVisitDirectory(path, info) {
	case Terminate:
		return errTerminated
	case SkipSubtree:
		return nil
	}
	debugEvent(&w.logger, "walk").Str("path", path).Int("entries", len(entries)).Msg("entering directory")

	var listErr error
	if readErr != nil {
		listErr = newError(ErrTraversal, path, "failed to read directory", readErr)
		if err := result(visitor.VisitFileFailed(path, listErr)); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		childPath := filepath.Join(path, entry.Name())
		childInfo, err := entry.Info()
		if err != nil {
			if err := result(visitor.VisitFileFailed(childPath, newError(ErrTraversal, childPath, "failed to stat entry", err))); err != nil {
				return err
			}
			continue
		}

		if childInfo.Mode()&os.ModeSymlink != 0 && w.Symlinks == SymlinksFollow {
			target, err := os.Stat(childPath)
			if err != nil {
				if err := result(visitor.VisitFileFailed(childPath, newError(ErrTraversal, childPath, "broken symlink", err))); err != nil {
					return err
				}
				continue
			}
			childInfo = target
		}

		if err := w.walk(ctx, childPath, childInfo, visitor, state); err != nil {
			return err
		}
	}

	return result(visitor.PostVisitDirectory(path, listErr))
}

// readDir lists path. openErr means nothing could be listed; readErr means
// the listing stopped early and entries holds what was read before the failure.
func (w *TreeWalker) readDir(path string) (entries []fs.DirEntry, openErr, readErr error) {
	dir, err := os.Open(path)
	if err != nil {
		return nil, err, nil
	}
	defer dir.Close()

	// File.ReadDir returns entries in directory order, unlike os.ReadDir
	entries, readErr = dir.ReadDir(-1)

	if w.Order != OrderNative {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Name() < entries[j].Name()
		})
	}
	return entries, nil, readErr
}

func result(r VisitResult) error {
	if r == Terminate {
		return errTerminated
	}
	return nil
}

func fileDevIno(info fs.FileInfo) (devIno, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return devIno{}, false
	}
	return devIno{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, true
}
