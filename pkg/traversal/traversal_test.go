package traversal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/depscout/depscout/pkg/filesystem"
)

// mkDir creates a directory beneath root.
func mkDir(t *testing.T, root, name string) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("unable to create directory: %v", err)
	}
	return path
}

// mkFile creates an empty file beneath root, creating parents as needed.
func mkFile(t *testing.T, root, name string) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("unable to create parent directory: %v", err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("unable to create file: %v", err)
	}
	return path
}

// mkSymlink creates a symlink beneath root pointing at target, creating
// parents as needed.
func mkSymlink(t *testing.T, root, name, target string) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("unable to create parent directory: %v", err)
	}
	if err := os.Symlink(target, path); err != nil {
		t.Fatalf("unable to create symlink: %v", err)
	}
	return path
}

// collect drives a cursor to exhaustion, failing the test on any traversal
// error.
func collect[T any](t *testing.T, traverser *Traverser[T]) []*Step[T] {
	t.Helper()
	var steps []*Step[T]
	cursor := traverser.Traverse()
	for cursor.Next() {
		steps = append(steps, cursor.Step())
	}
	if err := cursor.Err(); err != nil {
		t.Fatalf("traversal failed: %v", err)
	}
	return steps
}

// stepComparison returns the comparison options used for step equality.
func stepComparison[T any]() []cmp.Option {
	return []cmp.Option{cmpopts.EquateEmpty()}
}

func TestTraverseEmptyDirectory(t *testing.T) {
	root := t.TempDir()
	traverser := New[int](nil)
	if err := traverser.Add(root, 7); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	steps := collect(t, traverser)
	expected := []*Step[int]{
		{Directory: root, Attached: []int{7}},
	}
	if diff := cmp.Diff(expected, steps, stepComparison[int]()...); diff != "" {
		t.Errorf("steps did not match expected:\n%s", diff)
	}
}

func TestTraverseFilesAndSubdirectories(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "b.txt")
	mkFile(t, root, "a.txt")
	mkFile(t, root, "sub/inner.txt")
	mkDir(t, root, "empty")
	traverser := New[int](nil)
	if err := traverser.Add(root); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	steps := collect(t, traverser)
	expected := []*Step[int]{
		{
			Directory: root,
			Subdirectories: []string{
				filepath.Join(root, "empty"),
				filepath.Join(root, "sub"),
			},
			Files: []string{
				filepath.Join(root, "a.txt"),
				filepath.Join(root, "b.txt"),
			},
		},
		{Directory: filepath.Join(root, "empty")},
		{
			Directory: filepath.Join(root, "sub"),
			Files:     []string{filepath.Join(root, "sub", "inner.txt")},
		},
	}
	if diff := cmp.Diff(expected, steps, stepComparison[int]()...); diff != "" {
		t.Errorf("steps did not match expected:\n%s", diff)
	}
}

func TestTraverseAttachmentInheritance(t *testing.T) {
	root := t.TempDir()
	sub := mkDir(t, root, "sub")
	nested := mkDir(t, root, "sub/nested")
	traverser := New[int](nil)
	if err := traverser.Add(root, 123); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	if err := traverser.Add(sub, 456); err != nil {
		t.Fatalf("unable to add subdirectory: %v", err)
	}
	steps := collect(t, traverser)
	expected := []*Step[int]{
		{Directory: root, Subdirectories: []string{sub}, Attached: []int{123}},
		{Directory: sub, Subdirectories: []string{nested}, Attached: []int{123, 456}},
		{Directory: nested, Attached: []int{123, 456}},
	}
	if diff := cmp.Diff(expected, steps, stepComparison[int]()...); diff != "" {
		t.Errorf("steps did not match expected:\n%s", diff)
	}
}

func TestTraverseRepeatedAddAccumulatesPayloads(t *testing.T) {
	root := t.TempDir()
	traverser := New[string](nil)
	if err := traverser.Add(root, "first"); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	if err := traverser.Add(root, "second", "third"); err != nil {
		t.Fatalf("unable to re-add root: %v", err)
	}
	steps := collect(t, traverser)
	if len(steps) != 1 {
		t.Fatalf("step count did not match expected: %d != 1", len(steps))
	}
	expected := []string{"first", "second", "third"}
	if diff := cmp.Diff(expected, steps[0].Attached); diff != "" {
		t.Errorf("attached payloads did not match expected:\n%s", diff)
	}
}

func TestTraverseSymlinkAliasVisitedOnce(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "b/file.txt")
	mkSymlink(t, root, "a", "b")
	traverser := New[int](nil)
	if err := traverser.Add(root); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	steps := collect(t, traverser)

	// The aliased directory surfaces exactly once, under whichever of its
	// names sorts first, and the alias lists the same content.
	if len(steps) != 2 {
		t.Fatalf("step count did not match expected: %d != 2", len(steps))
	}
	alias := steps[1]
	if alias.Directory != filepath.Join(root, "a") {
		t.Errorf("aliased directory did not match expected: %s", alias.Directory)
	}
	expectedFiles := []string{filepath.Join(root, "a", "file.txt")}
	if diff := cmp.Diff(expectedFiles, alias.Files); diff != "" {
		t.Errorf("aliased files did not match expected:\n%s", diff)
	}
}

func TestTraverseMutualSymlinkCycle(t *testing.T) {
	root := t.TempDir()
	mkDir(t, root, "x")
	mkDir(t, root, "y")
	mkSymlink(t, root, "x/link", filepath.Join("..", "y"))
	mkSymlink(t, root, "y/link", filepath.Join("..", "x"))
	traverser := New[int](nil)
	if err := traverser.Add(root); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	steps := collect(t, traverser)

	// The cycle must terminate with each distinct directory visited once:
	// the root, x, and y (surfacing as x/link since x is entered first).
	expected := []string{
		root,
		filepath.Join(root, "x"),
		filepath.Join(root, "x", "link"),
	}
	var visited []string
	for _, step := range steps {
		visited = append(visited, step.Directory)
	}
	if diff := cmp.Diff(expected, visited); diff != "" {
		t.Errorf("visited directories did not match expected:\n%s", diff)
	}
}

func TestTraverseSymlinkToAncestor(t *testing.T) {
	root := t.TempDir()
	mkDir(t, root, "sub")
	mkSymlink(t, root, "sub/parent", "..")
	traverser := New[int](nil)
	if err := traverser.Add(root); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	steps := collect(t, traverser)
	expected := []string{root, filepath.Join(root, "sub")}
	var visited []string
	for _, step := range steps {
		visited = append(visited, step.Directory)
	}
	if diff := cmp.Diff(expected, visited); diff != "" {
		t.Errorf("visited directories did not match expected:\n%s", diff)
	}
}

func TestTraverseBrokenSymlinkIsFile(t *testing.T) {
	root := t.TempDir()
	mkSymlink(t, root, "dangling", "missing_target")
	traverser := New[int](nil)
	if err := traverser.Add(root); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	steps := collect(t, traverser)
	if len(steps) != 1 {
		t.Fatalf("step count did not match expected: %d != 1", len(steps))
	}
	expectedFiles := []string{filepath.Join(root, "dangling")}
	if diff := cmp.Diff(expectedFiles, steps[0].Files); diff != "" {
		t.Errorf("files did not match expected:\n%s", diff)
	}
}

func TestTraverseSkipTakesPrecedence(t *testing.T) {
	root := t.TempDir()
	sub := mkDir(t, root, "sub")
	traverser := New[int](nil)
	if err := traverser.Add(root, 1); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	if err := traverser.Add(sub, 2); err != nil {
		t.Fatalf("unable to add subdirectory: %v", err)
	}
	if err := traverser.SkipDir(root); err != nil {
		t.Fatalf("unable to skip root: %v", err)
	}
	steps := collect(t, traverser)

	// The skipped root is never visited, but the explicitly added
	// subdirectory still is, as its own walk root. Payloads attached to the
	// skipped ancestor are not inherited.
	expected := []*Step[int]{
		{Directory: sub, Attached: []int{2}},
	}
	if diff := cmp.Diff(expected, steps, stepComparison[int]()...); diff != "" {
		t.Errorf("steps did not match expected:\n%s", diff)
	}
}

func TestTraverseSkipIsIdempotent(t *testing.T) {
	root := t.TempDir()
	sub := mkDir(t, root, "sub")
	traverser := New[int](nil)
	if err := traverser.Add(root); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	if err := traverser.SkipDir(sub); err != nil {
		t.Fatalf("unable to skip subdirectory: %v", err)
	}
	if err := traverser.SkipDir(sub); err != nil {
		t.Fatalf("unable to re-skip subdirectory: %v", err)
	}
	steps := collect(t, traverser)
	if len(steps) != 1 || steps[0].Directory != root {
		t.Errorf("steps did not match expected: %v", steps)
	}
}

func TestTraverseMidWalkSkip(t *testing.T) {
	root := t.TempDir()
	mkFile(t, root, "keep/kept.txt")
	skip := mkDir(t, root, "prune")
	mkFile(t, root, "prune/lost.txt")
	traverser := New[int](nil)
	if err := traverser.Add(root); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	var visited []string
	cursor := traverser.Traverse()
	for cursor.Next() {
		step := cursor.Step()
		visited = append(visited, step.Directory)
		if step.Directory == root {
			if err := traverser.SkipDir(skip); err != nil {
				t.Fatalf("unable to skip mid-walk: %v", err)
			}
		}
	}
	if err := cursor.Err(); err != nil {
		t.Fatalf("traversal failed: %v", err)
	}
	expected := []string{root, filepath.Join(root, "keep")}
	if diff := cmp.Diff(expected, visited); diff != "" {
		t.Errorf("visited directories did not match expected:\n%s", diff)
	}
}

func TestTraverseMidWalkAdd(t *testing.T) {
	root := t.TempDir()
	extra := t.TempDir()
	mkFile(t, extra, "late.txt")
	traverser := New[string](nil)
	if err := traverser.Add(root, "original"); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	var steps []*Step[string]
	cursor := traverser.Traverse()
	for cursor.Next() {
		step := cursor.Step()
		steps = append(steps, step)
		if step.Directory == root {
			if err := traverser.Add(extra, "late"); err != nil {
				t.Fatalf("unable to add mid-walk: %v", err)
			}
		}
	}
	if err := cursor.Err(); err != nil {
		t.Fatalf("traversal failed: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("step count did not match expected: %d != 2", len(steps))
	}
	if steps[1].Directory != extra {
		t.Errorf("late root was not visited: %s", steps[1].Directory)
	}
	if diff := cmp.Diff([]string{"late"}, steps[1].Attached); diff != "" {
		t.Errorf("late attachments did not match expected:\n%s", diff)
	}
}

func TestTraverseOverlappingRoots(t *testing.T) {
	root := t.TempDir()
	sub := mkDir(t, root, "sub")
	traverser := New[int](nil)
	if err := traverser.Add(sub); err != nil {
		t.Fatalf("unable to add subdirectory: %v", err)
	}
	if err := traverser.Add(root); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	steps := collect(t, traverser)

	// The enclosing root sorts first, so the subdirectory is reached within
	// its walk and its own pending entry is pruned.
	expected := []string{root, sub}
	var visited []string
	for _, step := range steps {
		visited = append(visited, step.Directory)
	}
	if diff := cmp.Diff(expected, visited); diff != "" {
		t.Errorf("visited directories did not match expected:\n%s", diff)
	}
}

func TestAddRejectsNonDirectories(t *testing.T) {
	root := t.TempDir()
	file := mkFile(t, root, "file.txt")
	traverser := New[int](nil)
	tests := []string{
		file,
		filepath.Join(root, "does_not_exist"),
		filepath.Join(file, "beneath_a_file"),
	}
	for i, path := range tests {
		err := traverser.Add(path)
		if err == nil {
			t.Errorf("test index %d: adding %q unexpectedly succeeded", i, path)
		} else if !filesystem.IsNotADirectory(err) {
			t.Errorf("test index %d: error type did not match expected: %v", i, err)
		}
	}
}

func TestSkipRejectsNonDirectories(t *testing.T) {
	root := t.TempDir()
	file := mkFile(t, root, "file.txt")
	traverser := New[int](nil)
	if err := traverser.SkipDir(file); !filesystem.IsNotADirectory(err) {
		t.Errorf("error type did not match expected: %v", err)
	}
}

func TestCursorExhaustion(t *testing.T) {
	root := t.TempDir()
	traverser := New[int](nil)
	if err := traverser.Add(root); err != nil {
		t.Fatalf("unable to add root: %v", err)
	}
	cursor := traverser.Traverse()
	for cursor.Next() {
	}
	if err := cursor.Err(); err != nil {
		t.Fatalf("traversal failed: %v", err)
	}
	if cursor.Next() {
		t.Error("exhausted cursor unexpectedly resumed")
	}
	if cursor.Step() != nil {
		t.Error("exhausted cursor retained a step")
	}
}
