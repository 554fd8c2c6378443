package drop

import (
	"io"
	"os"
	"unicode/utf8"
)

// ReadPrefix reads at most enough of path to hold maxChars+1 runes, so
// Truncate can still tell whether anything was cut. The rest of the file is
// never read.
func ReadPrefix(path string, maxChars int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	limit := int64(maxChars+1) * utf8.UTFMax
	return io.ReadAll(io.LimitReader(f, limit))
}
