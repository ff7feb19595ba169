package dupelink

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ParseHumanSize parses human-readable size strings (e.g., "2M", "512k", "1G")
func ParseHumanSize(sizeStr string) (int, error) {
	if sizeStr == "" {
		return 0, fmt.Errorf("empty size string")
	}

	// Convert to uppercase for consistent parsing
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))

	// Extract numeric part and suffix
	var numPart string
	var suffix string
	for i, char := range sizeStr {
		if char >= '0' && char <= '9' || char == '.' {
			numPart += string(char)
		} else {
			suffix = strings.TrimSpace(sizeStr[i:])
			break
		}
	}

	if numPart == "" {
		return 0, fmt.Errorf("no numeric part in size string: %s", sizeStr)
	}

	num, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric part in size string %s: %w", sizeStr, err)
	}

	var multiplier int64 = 1
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size suffix: %s", suffix)
	}

	result := int64(num * float64(multiplier))
	if result <= 0 {
		return 0, fmt.Errorf("size must be positive: %s", sizeStr)
	}
	if result > int64(^uint(0)>>1) {
		return 0, fmt.Errorf("size too large: %s", sizeStr)
	}

	return int(result), nil
}

// HumanSize renders a byte count with a binary suffix, e.g. 1536 -> "1.5K"
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	suffixes := "KMGTPE"
	value := float64(n) / unit
	i := 0
	for value >= unit && i < len(suffixes)-1 {
		value /= unit
		i++
	}
	return fmt.Sprintf("%.1f%c", value, suffixes[i])
}

// normaliseRoots makes roots absolute and clean, then drops any root that lies
// under another root so no file is visited twice.
// Example: ["/home/user/docs", "/home/user/docs/old", "/home/user/photos"]
//
//	-> ["/home/user/docs", "/home/user/photos"]
//
// Order of the surviving roots is preserved from the input.
func normaliseRoots(roots []string) ([]string, error) {
	var absRoots []string
	seen := make(map[string]bool)
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, newError(ErrRootInvalid, root, "failed to resolve absolute path", err)
		}
		abs = filepath.Clean(abs)
		if seen[abs] {
			continue
		}
		seen[abs] = true
		absRoots = append(absRoots, abs)
	}

	sorted := append([]string(nil), absRoots...)
	sort.Strings(sorted)

	redundant := make(map[string]bool)
	for i, path := range sorted {
		for j := 0; j < i; j++ {
			if isPathUnder(path, sorted[j]) {
				redundant[path] = true
				break
			}
		}
	}

	var result []string
	for _, root := range absRoots {
		if !redundant[root] {
			result = append(result, root)
		}
	}
	return result, nil
}

// isPathUnder checks if childPath is under parentPath
func isPathUnder(childPath, parentPath string) bool {
	childPath = filepath.Clean(childPath)
	parentPath = filepath.Clean(parentPath)

	if childPath == parentPath {
		return false
	}

	parentWithSep := parentPath
	if !strings.HasSuffix(parentWithSep, string(filepath.Separator)) {
		parentWithSep += string(filepath.Separator)
	}
	return strings.HasPrefix(childPath, parentWithSep)
}
