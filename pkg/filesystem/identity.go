package filesystem

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// NotADirectoryError indicates that a path expected to reference a directory
// does not exist or references something other than a directory.
type NotADirectoryError struct {
	// Path is the offending path.
	Path string
}

// Error implements error.Error.
func (e *NotADirectoryError) Error() string {
	return fmt.Sprintf("not a directory: %s", e.Path)
}

// IsNotADirectory indicates whether or not an error (or any error in its
// chain) is a NotADirectoryError.
func IsNotADirectory(err error) bool {
	var target *NotADirectoryError
	return errors.As(err, &target)
}

// Identity uniquely names a physical directory on the current host,
// independent of which path alias (symlink, bind mount, overlapping root) was
// used to reach it. On POSIX systems it is derived from device and inode
// numbers; elsewhere it falls back to a fully symlink-resolved path. It is
// comparable and usable as a map key.
type Identity struct {
	// device is the containing filesystem's device ID.
	device uint64
	// inode is the directory's inode number on that device.
	inode uint64
	// path is the canonicalized directory path, used only on platforms where
	// device and inode numbers aren't available.
	path string
}

// String provides a human-readable representation of the identity.
func (i Identity) String() string {
	if i.path != "" {
		return i.path
	}
	return fmt.Sprintf("%d:%d", i.device, i.inode)
}

// identityCache memoizes identity probes per distinct absolute path string for
// the lifetime of the process. Status calls are comparatively expensive and
// the filesystem is assumed quiescent during a traversal run. Only successful
// probes are cached.
var identityCache = struct {
	sync.Mutex
	identities map[string]Identity
}{identities: make(map[string]Identity)}

// IdentityOf resolves a directory path to its identity. It fails with a
// NotADirectoryError if the path does not exist or is not a directory. Probes
// are memoized per distinct absolute path string, so relative paths are made
// absolute (against the current working directory) before lookup.
func IdentityOf(path string) (Identity, error) {
	// Convert to an absolute path. Caching results for relative paths would be
	// incorrect as soon as the working directory changes.
	abs, err := filepath.Abs(path)
	if err != nil {
		return Identity{}, errors.Wrap(err, "unable to compute absolute path")
	}

	// Check for a cached identity.
	identityCache.Lock()
	if identity, ok := identityCache.identities[abs]; ok {
		identityCache.Unlock()
		return identity, nil
	}
	identityCache.Unlock()

	// Probe the filesystem.
	identity, err := probeIdentity(abs, path)
	if err != nil {
		return Identity{}, err
	}

	// Cache the result.
	identityCache.Lock()
	identityCache.identities[abs] = identity
	identityCache.Unlock()

	// Success.
	return identity, nil
}
