// Package traversal implements visit-once directory traversal across
// overlapping roots and symlink aliases, with caller payloads attached to
// directories and inherited by their descendants.
package traversal

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/depscout/depscout/pkg/filesystem"
	"github.com/depscout/depscout/pkg/logging"
)

// Step describes a single visited directory: its immediate children, split
// into subdirectories and files, and the ordered payloads attached to it or
// to any directory on the path from the current walk's root down to it
// (outermost payloads first, in the order they were added).
type Step[T any] struct {
	// Directory is the path of the directory being visited.
	Directory string
	// Subdirectories are the paths of the directory's immediate
	// subdirectories, in sorted order. Symlinks to directories are included.
	Subdirectories []string
	// Files are the paths of the directory's immediate non-directory entries,
	// in sorted order. Broken symlinks are treated as files.
	Files []string
	// Attached is the accumulated payload for the directory.
	Attached []T
}

// Traverser encapsulates the traversal of a directory structure. It tracks
// three pieces of state: the set of pending root directories, the set of
// directory identities that must not be (re-)visited, and a table of payloads
// attached at each directory. All bookkeeping is keyed on directory identity
// rather than path, so overlapping roots, symlink aliases, and symlink cycles
// each surface a directory's content exactly once and every traversal
// terminates in time proportional to the number of distinct directories.
//
// A Traverser is single-use: once a traversal has been driven to exhaustion,
// a new Traverser must be constructed to traverse again. It assumes the
// directory structure remains unchanged for the duration of the traversal.
// It is not safe for concurrent use.
type Traverser[T any] struct {
	// pending maps pending root paths to their identities.
	pending map[string]filesystem.Identity
	// skip is the set of directory identities that must not be traversed.
	// Identities of directories that have already been visited are also
	// recorded here; skips and completed visits are indistinguishable.
	skip map[filesystem.Identity]bool
	// attached maps directory identities to the payloads attached directly at
	// that directory.
	attached map[filesystem.Identity][]T
	// logger is the traversal logger.
	logger *logging.Logger
}

// New creates an empty traverser. The logger may be nil.
func New[T any](logger *logging.Logger) *Traverser[T] {
	return &Traverser[T]{
		pending:  make(map[string]filesystem.Identity),
		skip:     make(map[filesystem.Identity]bool),
		attached: make(map[filesystem.Identity][]T),
		logger:   logger,
	}
}

// Add registers a directory as a traversal root, optionally attaching
// payloads to it. It fails with a filesystem.NotADirectoryError if the path
// does not currently reference a directory.
//
// Payloads attached to a directory are inherited by all of its descendants
// during traversal. Adding the same directory multiple times accumulates
// payloads in call order; payloads are never deduplicated or overwritten. No
// matter how many times a directory is added, it is visited at most once, and
// re-adding a directory that has already been visited will not cause it to be
// re-visited.
func (t *Traverser[T]) Add(path string, payload ...T) error {
	path = filepath.Clean(path)

	// Compute the directory's identity. This also validates that the path
	// currently references a directory.
	identity, err := filesystem.IdentityOf(path)
	if err != nil {
		return err
	}

	// Re-adding a fully visited (or skipped) directory won't yield it again.
	// Its attachment list still grows, which is observable only to descendants
	// that haven't been visited yet, so this is almost certainly a caller
	// error.
	if t.skip[identity] {
		t.logger.Warnf("re-adding already visited or skipped directory: %s", path)
	}

	// Enqueue the root and append any payloads.
	t.pending[path] = identity
	t.attached[identity] = append(t.attached[identity], payload...)

	// Success.
	return nil
}

// SkipDir excludes a directory (and, implicitly, everything below it) from
// any future visitation decision, including directories already enqueued but
// not yet visited. Explicitly Add()ed subdirectories of a skipped directory
// are still traversed. Skipping is idempotent and never undone.
func (t *Traverser[T]) SkipDir(path string) error {
	identity, err := filesystem.IdentityOf(path)
	if err != nil {
		return err
	}
	t.skip[identity] = true
	return nil
}

// nextPendingRoot selects the lexicographically smallest pending root whose
// identity is not in the skip set.
func (t *Traverser[T]) nextPendingRoot() (string, bool) {
	var candidates []string
	for path, identity := range t.pending {
		if !t.skip[identity] {
			candidates = append(candidates, path)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	return candidates[0], true
}

// accumulateAttached concatenates the attachment table entries for every
// directory on the path from root down to dir, outermost first.
func (t *Traverser[T]) accumulateAttached(root, dir string) ([]T, error) {
	// Collect the directory chain from dir up to (and including) root.
	var chain []string
	for path := dir; ; path = filepath.Dir(path) {
		chain = append(chain, path)
		if path == root || path == filepath.Dir(path) {
			break
		}
	}

	// Accumulate payloads from the outermost directory inward. Identity
	// lookups here hit the memoization cache since every directory on the
	// chain has already been visited.
	var result []T
	for i := len(chain) - 1; i >= 0; i-- {
		identity, err := filesystem.IdentityOf(chain[i])
		if err != nil {
			return nil, errors.Wrap(err, "unable to identify ancestor directory")
		}
		result = append(result, t.attached[identity]...)
	}
	return result, nil
}

// Traverse returns a cursor over the traversal's steps. The cursor is lazy:
// each call to Next performs just enough filesystem work to produce one step,
// then returns control to the consumer, which may call Add or SkipDir before
// requesting the next step; such calls are honored for all subsequent
// visitation decisions, including within the walk currently in progress.
//
// Add, SkipDir, and the cursor must all be driven from a single goroutine.
func (t *Traverser[T]) Traverse() *Cursor[T] {
	return &Cursor[T]{traverser: t}
}

// Cursor is a restartable iterator over traversal steps. Use it in the
// standard scanner pattern:
//
//	cursor := traverser.Traverse()
//	for cursor.Next() {
//		step := cursor.Step()
//		...
//	}
//	if err := cursor.Err(); err != nil {
//		...
//	}
type Cursor[T any] struct {
	// traverser is the traverser whose state drives (and is mutated by) this
	// cursor.
	traverser *Traverser[T]
	// walkRoot is the pending root from which the current depth-first walk
	// started.
	walkRoot string
	// stack holds the directories still to be visited in the current walk, in
	// reverse visitation order.
	stack []string
	// step is the most recently produced step.
	step *Step[T]
	// err is the error that terminated the traversal, if any.
	err error
	// done indicates that the traversal ran to completion.
	done bool
}

// Next advances the cursor to the next traversal step. It returns false when
// the traversal is exhausted or has failed, in which case Err indicates which
// of the two occurred.
func (c *Cursor[T]) Next() bool {
	// Don't resume an exhausted or failed traversal.
	if c.done || c.err != nil {
		return false
	}

	t := c.traverser
	for {
		// If the current walk is finished, start a walk from the next pending
		// root, if any remains.
		if len(c.stack) == 0 {
			root, ok := t.nextPendingRoot()
			if !ok {
				c.done = true
				c.step = nil
				return false
			}
			t.logger.Debugf("walking pending root %s", root)
			c.walkRoot = root
			c.stack = append(c.stack, root)
		}

		// Pop the next directory of the current walk.
		dir := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]

		// Compute its identity. A directory that vanished mid-walk is fatal.
		identity, err := filesystem.IdentityOf(dir)
		if err != nil {
			return c.fail(errors.Wrap(err, "unable to identify directory"))
		}

		// Prune directories that have been visited or skipped. The consumer
		// may have grown the skip set since this directory was enqueued.
		if t.skip[identity] {
			t.logger.Debugf("pruning %s (%v)", dir, identity)
			continue
		}

		// Mark the directory visited before yielding, so that aliases of it
		// encountered later in this walk (or any other) are pruned.
		t.skip[identity] = true
		t.logger.Trace("visiting %s (%v)", dir, identity)

		// List and classify the directory's children.
		subdirectories, files, err := listChildren(dir)
		if err != nil {
			return c.fail(err)
		}

		// Schedule the subdirectories depth-first, pushed in reverse so that
		// they are visited in sorted order. Visitation decisions for them are
		// deferred until they are popped.
		for i := len(subdirectories) - 1; i >= 0; i-- {
			c.stack = append(c.stack, subdirectories[i])
		}

		// Accumulate the attached payloads along the walk root's chain.
		attached, err := t.accumulateAttached(c.walkRoot, dir)
		if err != nil {
			return c.fail(err)
		}

		// Produce the step and suspend.
		c.step = &Step[T]{
			Directory:      dir,
			Subdirectories: subdirectories,
			Files:          files,
			Attached:       attached,
		}
		return true
	}
}

// Step returns the step produced by the last successful call to Next.
func (c *Cursor[T]) Step() *Step[T] {
	return c.step
}

// Err returns the error that terminated the traversal, if any. Steps already
// produced remain valid even after a failure.
func (c *Cursor[T]) Err() error {
	return c.err
}

// fail records a fatal traversal error.
func (c *Cursor[T]) fail(err error) bool {
	c.err = err
	c.step = nil
	return false
}

// listChildren lists a directory's immediate children, splitting them into
// subdirectory and file paths, each in sorted order. Symlinks are followed
// for classification, so a symlink to a directory counts as a subdirectory;
// broken symlinks count as files.
func listChildren(dir string) ([]string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, errors.Wrap(err, "unable to list directory")
	}
	var subdirectories, files []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if isDirectory(entry, path) {
			subdirectories = append(subdirectories, path)
		} else {
			files = append(files, path)
		}
	}
	return subdirectories, files, nil
}

// isDirectory indicates whether a directory entry references a directory,
// following symlinks.
func isDirectory(entry fs.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink != 0 {
		if info, err := os.Stat(path); err == nil {
			return info.IsDir()
		}
	}
	return false
}
