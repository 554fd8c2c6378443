package drop

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaxCheckpointChars is the rune limit applied when a checkpoint is consumed.
const MaxCheckpointChars = 4000

// IsCheckpointName reports whether name follows the checkpoint*.md convention.
func IsCheckpointName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "checkpoint") && strings.HasSuffix(lower, ".md")
}

// LatestCheckpoint returns the content of the checkpoint file in dir whose
// name sorts last, truncated to MaxCheckpointChars. Names are expected to
// embed a sortable date (checkpoint-2026-02-06.md). Returns false when the
// directory is unreadable or holds no checkpoint.
func LatestCheckpoint(dir string) (string, bool) {
	if dir == "" {
		return "", false
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && IsCheckpointName(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	data, err := ReadPrefix(filepath.Join(dir, names[0]), MaxCheckpointChars)
	if err != nil {
		return "", false
	}
	return Truncate(string(data), MaxCheckpointChars), true
}
