//go:build !windows

package filesystem

import (
	"os"

	"github.com/pkg/errors"

	"golang.org/x/sys/unix"
)

// probeIdentity derives a directory identity from device and inode numbers.
// The abs argument is the absolute form of the path being probed, while orig
// is the path as originally specified (used for error reporting).
func probeIdentity(abs, orig string) (Identity, error) {
	// Perform a stat operation, following symlinks.
	var metadata unix.Stat_t
	if err := unix.Stat(abs, &metadata); err != nil {
		if os.IsNotExist(err) || err == unix.ENOTDIR {
			return Identity{}, &NotADirectoryError{Path: orig}
		}
		return Identity{}, errors.Wrap(err, "unable to probe path")
	}

	// Verify that the path references a directory.
	if metadata.Mode&unix.S_IFMT != unix.S_IFDIR {
		return Identity{}, &NotADirectoryError{Path: orig}
	}

	// Success.
	return Identity{
		device: uint64(metadata.Dev),
		inode:  uint64(metadata.Ino),
	}, nil
}
