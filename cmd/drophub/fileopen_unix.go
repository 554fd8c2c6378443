//go:build !windows

package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"syscall"

	"github.com/opoerator/drophub/internal/errors"
)

// openNoFollowRead opens path read-only with O_NOFOLLOW so a drop file that
// is a symlink is rejected instead of followed.
func openNoFollowRead(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		switch {
		case stderrors.Is(err, syscall.ELOOP):
			return nil, errors.NewInvalidRequest("cannot read from symlink")
		case stderrors.Is(err, syscall.ENOENT):
			return nil, errors.NewInvalidRequest(fmt.Sprintf("file not found: %s", path))
		}
		return nil, errors.NewInternal(err)
	}
	return os.NewFile(uintptr(fd), path), nil
}
