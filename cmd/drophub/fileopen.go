package main

import (
	"fmt"

	"github.com/opoerator/drophub/internal/errors"
)

// readFile reads a drop file, refusing symlinks, directories and anything
// larger than limit bytes.
func readFile(path string, limit int64) (string, error) {
	f, err := openNoFollowRead(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if !info.Mode().IsRegular() {
		return "", errors.NewInvalidRequest(fmt.Sprintf("not a regular file: %s", path))
	}
	return readAllLimited(f, limit)
}
