//go:build windows

package filesystem

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// probeIdentity derives a directory identity from the fully symlink-resolved
// path, since device and inode numbers aren't uniformly available on Windows.
// The abs argument is the absolute form of the path being probed, while orig
// is the path as originally specified (used for error reporting).
func probeIdentity(abs, orig string) (Identity, error) {
	// Perform a stat operation, following symlinks.
	metadata, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Identity{}, &NotADirectoryError{Path: orig}
		}
		return Identity{}, errors.Wrap(err, "unable to probe path")
	}

	// Verify that the path references a directory.
	if !metadata.IsDir() {
		return Identity{}, &NotADirectoryError{Path: orig}
	}

	// Resolve all symlinks so that every alias of the directory yields the
	// same identity key.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Identity{}, errors.Wrap(err, "unable to resolve path")
	}

	// Success.
	return Identity{path: resolved}, nil
}
