package dupelink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreManager holds regular expression exclusion rules. Paths are matched
// relative to the scan root with forward slashes; directories are also tried
// with a trailing slash so "\.git/" excludes the whole subtree.
type IgnoreManager struct {
	patterns []*regexp.Regexp
}

// NewIgnoreManager compiles the given patterns
func NewIgnoreManager(patterns []string) (*IgnoreManager, error) {
	im := &IgnoreManager{}
	for _, p := range patterns {
		if err := im.AddPattern(p); err != nil {
			return nil, err
		}
	}
	return im, nil
}

// LoadIgnoreFile adds one pattern per line from path. Empty lines and lines
// starting with # are skipped. A missing file is not an error.
func (im *IgnoreManager) LoadIgnoreFile(path string) error {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pattern, err := regexp.Compile(line)
		if err != nil {
			return fmt.Errorf("invalid regex pattern at line %d: %s - %w", lineNum, line, err)
		}
		im.patterns = append(im.patterns, pattern)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ignore file: %w", err)
	}
	return nil
}

// AddPattern adds a new ignore pattern
func (im *IgnoreManager) AddPattern(patternStr string) error {
	patternStr = strings.TrimSpace(patternStr)
	if patternStr == "" {
		return nil
	}
	pattern, err := regexp.Compile(patternStr)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %s - %w", patternStr, err)
	}
	im.patterns = append(im.patterns, pattern)
	return nil
}

// ShouldIgnore checks if a path relative to its root matches any pattern
func (im *IgnoreManager) ShouldIgnore(relativePath string, isDir bool) bool {
	if im == nil || len(im.patterns) == 0 {
		return false
	}
	if relativePath == "." || relativePath == "" {
		return false
	}

	normalisedPath := filepath.ToSlash(relativePath)
	for _, pattern := range im.patterns {
		if pattern.MatchString(normalisedPath) {
			return true
		}
		if isDir && pattern.MatchString(normalisedPath+"/") {
			return true
		}
	}
	return false
}

// HasPatterns returns true if there are any ignore patterns loaded
func (im *IgnoreManager) HasPatterns() bool {
	return im != nil && len(im.patterns) > 0
}

// Patterns returns the source text of every loaded pattern
func (im *IgnoreManager) Patterns() []string {
	if im == nil {
		return nil
	}
	out := make([]string, len(im.patterns))
	for i, p := range im.patterns {
		out[i] = p.String()
	}
	return out
}
