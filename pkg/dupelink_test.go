package dupelink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(roots ...string) Settings {
	s := DefaultSettings()
	s.Roots = roots
	s.HashWorkers = 1
	s.Color = ColorNever
	return s
}

func entryPairs(entries []DuplicateEntry) [][2]string {
	pairs := make([][2]string, len(entries))
	for i, e := range entries {
		pairs[i] = [2]string{e.Reference.Path, e.Duplicate.Path}
	}
	return pairs
}

func TestRun_Scenario(t *testing.T) {
	root := realTempDir(t)
	x := writeFile(t, filepath.Join(root, "a", "x.txt"), "hello")
	y := writeFile(t, filepath.Join(root, "a", "y.txt"), "hello")
	writeFile(t, filepath.Join(root, "b", "z.txt"), "world")

	result, err := Run(context.Background(), testSettings(root), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, [][2]string{{x, y}}, entryPairs(result.Entries))
	require.Len(t, result.Groups, 1)
	assert.Equal(t, x, result.Groups[0].Reference)
	assert.Equal(t, int64(3), result.Stats.FilesHashed)
	assert.Equal(t, int64(1), result.Stats.Duplicates)
	assert.Equal(t, int64(5), result.Stats.Reclaimable)
	assert.False(t, result.Interrupted)
	assert.Empty(t, result.Failures)
}

func TestRun_EmptyFilesGrouped(t *testing.T) {
	root := realTempDir(t)
	e1 := writeFile(t, filepath.Join(root, "empty1"), "")
	e2 := writeFile(t, filepath.Join(root, "empty2"), "")
	writeFile(t, filepath.Join(root, "full"), "x")

	result, err := Run(context.Background(), testSettings(root), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, [][2]string{{e1, e2}}, entryPairs(result.Entries))
	assert.Equal(t, HashStringToHexString("", mustAlg(t, "sha256")), result.Groups[0].Hash)
}

func mustAlg(t *testing.T, name string) *HashAlgorithm {
	t.Helper()
	alg, err := GetHashAlgorithm(name)
	require.NoError(t, err)
	return alg
}

func TestRun_DryRunNeverMutates(t *testing.T) {
	root := realTempDir(t)
	writeFile(t, filepath.Join(root, "one"), "same")
	writeFile(t, filepath.Join(root, "two"), "same")
	writeFile(t, filepath.Join(root, "three"), "same")

	rep := newCaptureReporter()
	result, err := Run(context.Background(), testSettings(root), rep, nil)
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 2)
	for _, o := range result.Outcomes {
		assert.Equal(t, ActionDryRun, o.Action)
	}
	assert.Equal(t, int64(2), result.Stats.ReplaceSkipped)
	assert.Equal(t, int64(0), result.Stats.Replaced)

	for _, name := range []string{"one", "two", "three"} {
		info, err := os.Lstat(filepath.Join(root, name))
		require.NoError(t, err)
		assert.True(t, info.Mode().IsRegular(), "%s was modified", name)
	}
	assert.Len(t, rep.references, 1)
	assert.Len(t, rep.outcomes, 2)
	assert.Equal(t, 1, rep.summaries)
}

func TestRun_ReplacesWithSymlinks(t *testing.T) {
	root := realTempDir(t)
	ref := writeFile(t, filepath.Join(root, "a", "photo.jpg"), "pixels")
	dup := writeFile(t, filepath.Join(root, "b", "photo-copy.jpg"), "pixels")
	other := writeFile(t, filepath.Join(root, "c", "other.jpg"), "different")

	settings := testSettings(root)
	settings.DryRun = false

	result, err := Run(context.Background(), settings, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Stats.Replaced)
	assert.False(t, result.DryRun)

	target, err := os.Readlink(dup)
	require.NoError(t, err)
	assert.Equal(t, ref, target)

	for _, path := range []string{ref, other} {
		info, err := os.Lstat(path)
		require.NoError(t, err)
		assert.True(t, info.Mode().IsRegular())
	}

	// A second run sees the link as a symlink and finds nothing left to do
	again, err := Run(context.Background(), settings, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, again.Entries)
	assert.Equal(t, int64(1), again.Stats.SkippedSymlink)
}

func TestRun_NoFalsePositives(t *testing.T) {
	root := realTempDir(t)
	contents := []string{"alpha", "beta", "alpha", "gamma", "beta", "alpha", "", "delta", ""}
	for i, c := range contents {
		writeFile(t, filepath.Join(root, fmt.Sprintf("d%d", i%3), fmt.Sprintf("f%d", i)), c)
	}

	result, err := Run(context.Background(), testSettings(root), nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, result.Entries)

	for _, e := range result.Entries {
		ref, err := os.ReadFile(e.Reference.Path)
		require.NoError(t, err)
		dup, err := os.ReadFile(e.Duplicate.Path)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(ref, dup), "%s and %s differ", e.Reference.Path, e.Duplicate.Path)
	}
	// alpha x3, beta x2, empty x2
	assert.Len(t, result.Groups, 3)
	assert.Len(t, result.Entries, 4)
}

func buildManyFiles(t *testing.T) string {
	t.Helper()
	root := realTempDir(t)
	for i := 0; i < 60; i++ {
		dir := filepath.Join(root, fmt.Sprintf("dir%d", i%5), fmt.Sprintf("sub%d", i%3))
		writeFile(t, filepath.Join(dir, fmt.Sprintf("file%02d.dat", i)), fmt.Sprintf("content-%d", i%7))
	}
	return root
}

func TestRun_Deterministic(t *testing.T) {
	root := buildManyFiles(t)

	first, err := Run(context.Background(), testSettings(root), nil, nil)
	require.NoError(t, err)
	second, err := Run(context.Background(), testSettings(root), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, entryPairs(first.Entries), entryPairs(second.Entries))
	assert.Len(t, first.Groups, 7)
}

func TestRun_WorkersMatchSequential(t *testing.T) {
	root := buildManyFiles(t)

	sequential, err := Run(context.Background(), testSettings(root), nil, nil)
	require.NoError(t, err)

	for _, workers := range []int{2, 8} {
		settings := testSettings(root)
		settings.HashWorkers = workers
		concurrent, err := Run(context.Background(), settings, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, entryPairs(sequential.Entries), entryPairs(concurrent.Entries), "workers=%d", workers)
		assert.Equal(t, sequential.Stats.FilesHashed, concurrent.Stats.FilesHashed)
	}
}

func TestRun_ResilientToUnreadableEntries(t *testing.T) {
	skipIfRoot(t)

	root := realTempDir(t)
	x := writeFile(t, filepath.Join(root, "x"), "dup")
	y := writeFile(t, filepath.Join(root, "y"), "dup")
	locked := writeFile(t, filepath.Join(root, "locked"), "dup")
	require.NoError(t, os.Chmod(locked, 0000))
	lockedDir := filepath.Join(root, "private")
	writeFile(t, filepath.Join(lockedDir, "z"), "dup")
	require.NoError(t, os.Chmod(lockedDir, 0000))
	t.Cleanup(func() { os.Chmod(lockedDir, 0755) })

	result, err := Run(context.Background(), testSettings(root), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, [][2]string{{x, y}}, entryPairs(result.Entries))
	assert.Equal(t, int64(1), result.Stats.SkippedUnreadable)
	assert.Equal(t, int64(1), result.Stats.TraversalErrors)
	require.Len(t, result.Failures, 1)
	assert.True(t, IsKind(result.Failures[0], ErrTraversal))
}

func TestRun_InvalidRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	rep := newCaptureReporter()

	result, err := Run(context.Background(), testSettings(missing), rep, nil)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, IsKind(err, ErrRootInvalid))
	assert.Equal(t, 0, rep.summaries)
}

func TestRun_InvalidSettings(t *testing.T) {
	settings := testSettings(t.TempDir())
	settings.HashAlgorithm = "crc32"

	_, err := Run(context.Background(), settings, nil, nil)
	assert.True(t, IsKind(err, ErrConfig))
}

func TestRun_Cancelled(t *testing.T) {
	root := buildManyFiles(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := newCaptureReporter()
	result, err := Run(ctx, testSettings(root), rep, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.True(t, result.Interrupted)
	assert.Empty(t, result.Entries)
	assert.Equal(t, 1, rep.summaries, "interrupted runs still get a summary")
}

func TestRun_OverlappingRoots(t *testing.T) {
	root := realTempDir(t)
	writeFile(t, filepath.Join(root, "sub", "only.txt"), "unique")

	result, err := Run(context.Background(), testSettings(root, filepath.Join(root, "sub")), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{root}, result.Roots)
	assert.Empty(t, result.Entries, "a file must not be its own duplicate")
	assert.Equal(t, int64(1), result.Stats.FilesHashed)
}

func TestRun_ReferenceOrderAcrossRoots(t *testing.T) {
	base := realTempDir(t)
	first := writeFile(t, filepath.Join(base, "zeta", "f"), "same")
	second := writeFile(t, filepath.Join(base, "alpha", "f"), "same")
	roots := []string{filepath.Join(base, "zeta"), filepath.Join(base, "alpha")}

	discovery, err := Run(context.Background(), testSettings(roots...), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{first, second}}, entryPairs(discovery.Entries))

	settings := testSettings(roots...)
	settings.ReferenceOrder = ReferencePath
	byPath, err := Run(context.Background(), settings, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{second, first}}, entryPairs(byPath.Entries))
}

func TestRun_IgnorePatterns(t *testing.T) {
	root := realTempDir(t)
	writeFile(t, filepath.Join(root, "keep", "a"), "same")
	writeFile(t, filepath.Join(root, "cache", "a"), "same")

	settings := testSettings(root)
	settings.Ignore = []string{`^cache/`}

	result, err := Run(context.Background(), settings, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
	assert.Equal(t, int64(1), result.Stats.DirsIgnored)
}

func TestRun_HumanReport(t *testing.T) {
	root := realTempDir(t)
	x := writeFile(t, filepath.Join(root, "x.txt"), "hello")
	y := writeFile(t, filepath.Join(root, "y.txt"), "hello")

	var buf bytes.Buffer
	reporter, err := NewReporter(&buf, ReportOptions{Format: FormatHuman, Color: ColorNever})
	require.NoError(t, err)

	_, err = Run(context.Background(), testSettings(root), reporter, nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Reference file to keep: "+x)
	assert.Contains(t, out, "[dry-run] Deleting duplicate file "+y)
	assert.Contains(t, out, fmt.Sprintf("[dry-run] Creating symbolic link %s -> %s", y, x))
	assert.Contains(t, out, "Summary")
}
