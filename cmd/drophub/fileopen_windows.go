//go:build windows

package main

import (
	"fmt"
	"os"

	"github.com/opoerator/drophub/internal/errors"
)

// openNoFollowRead opens path for reading. O_NOFOLLOW does not exist on
// Windows, so symlinks are checked with Lstat first.
func openNoFollowRead(path string) (*os.File, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("file not found: %s", path))
		}
		return nil, errors.NewInternal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("cannot read from symlink")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return f, nil
}
