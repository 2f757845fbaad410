package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// newTestRepo creates an on-disk, worktree-less git repository undag can
// open via gitrepo.Open, and returns it alongside its directory.
func newTestRepo(t *testing.T) (*git.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, true)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	return repo, dir
}

func emptyTree(t *testing.T, repo *git.Repository) plumbing.Hash {
	t.Helper()
	tree := object.Tree{}
	obj := repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.TreeObject)
	if err := tree.Encode(obj); err != nil {
		t.Fatalf("encode empty tree: %v", err)
	}
	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		t.Fatalf("store empty tree: %v", err)
	}
	return hash
}

func commit(t *testing.T, repo *git.Repository, message string, parents ...plumbing.Hash) plumbing.Hash {
	t.Helper()
	c := &object.Commit{
		Author:       object.Signature{Name: "undag", Email: "undag@example.com", When: time.Unix(0, 0)},
		Committer:    object.Signature{Name: "undag", Email: "undag@example.com", When: time.Unix(0, 0)},
		Message:      message,
		TreeHash:     emptyTree(t, repo),
		ParentHashes: parents,
	}
	obj := repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.CommitObject)
	if err := c.Encode(obj); err != nil {
		t.Fatalf("encode commit: %v", err)
	}
	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		t.Fatalf("store commit: %v", err)
	}
	return hash
}

func tag(t *testing.T, repo *git.Repository, name string, hash plumbing.Hash) {
	t.Helper()
	ref := plumbing.NewHashReference(plumbing.ReferenceName("refs/tags/"+name), hash)
	if err := repo.Storer.SetReference(ref); err != nil {
		t.Fatalf("set tag %s: %v", name, err)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}

// captureCLI runs run(args) with stdin fed from in, and returns the exit
// code plus everything written to stdout/stderr.
func captureCLI(t *testing.T, args []string, in string) (int, string, string) {
	t.Helper()

	stdout, stderr, stdin := os.Stdout, os.Stderr, os.Stdin

	rOut, wOut, err := os.Pipe()
	if err != nil {
		t.Fatalf("stdout pipe: %v", err)
	}
	rErr, wErr, err := os.Pipe()
	if err != nil {
		t.Fatalf("stderr pipe: %v", err)
	}
	rIn, wIn, err := os.Pipe()
	if err != nil {
		t.Fatalf("stdin pipe: %v", err)
	}

	os.Stdout, os.Stderr, os.Stdin = wOut, wErr, rIn

	go func() {
		io.WriteString(wIn, in)
		wIn.Close()
	}()

	code := run(args)

	wOut.Close()
	wErr.Close()
	os.Stdout, os.Stderr, os.Stdin = stdout, stderr, stdin

	outBytes, _ := io.ReadAll(rOut)
	errBytes, _ := io.ReadAll(rErr)
	rOut.Close()
	rErr.Close()
	rIn.Close()

	return code, string(outBytes), string(errBytes)
}

func TestCLIRunsHelloWorld(t *testing.T) {
	repo, dir := newTestRepo(t)
	a := commit(t, repo, `println "Hello, world!"`)
	tag(t, repo, "_start", a)
	tag(t, repo, "_end", a)

	code, stdout, stderr := captureCLI(t, []string{dir}, "")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if stdout != "Hello, world!\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestCLIGreetingReadsStdin(t *testing.T) {
	repo, dir := newTestRepo(t)
	a := commit(t, repo, `println "Name?"`)
	b := commit(t, repo, "inpln name", a)
	c := commit(t, repo, "concat greeting \"Hi, \" $name", b)
	d := commit(t, repo, "println $greeting", c)
	tag(t, repo, "_start", a)
	tag(t, repo, "_end", d)

	code, stdout, _ := captureCLI(t, []string{dir}, "Ada\n")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if stdout != "Name?\nHi, Ada\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestCLIMissingStartTagIsLoadError(t *testing.T) {
	repo, dir := newTestRepo(t)
	a := commit(t, repo, "println \"a\"")
	tag(t, repo, "_end", a)

	code, _, stderr := captureCLI(t, []string{dir}, "")
	if code == 0 {
		t.Fatalf("expected non-zero exit code")
	}
	if !strings.Contains(stderr, "LoadError") {
		t.Fatalf("stderr = %q, want mention of LoadError", stderr)
	}
}

func TestCLIUnknownBranchTagReportsCommit(t *testing.T) {
	repo, dir := newTestRepo(t)
	a := commit(t, repo, "branch nope")
	b := commit(t, repo, "", a)
	tag(t, repo, "_start", a)
	tag(t, repo, "_end", b)

	code, _, stderr := captureCLI(t, []string{dir}, "")
	if code == 0 {
		t.Fatalf("expected non-zero exit code")
	}
	if !strings.Contains(stderr, "TagError") || !strings.Contains(stderr, a.String()) || !strings.Contains(stderr, "branch nope") {
		t.Fatalf("stderr = %q, want TagError mentioning commit %s and its instruction text", stderr, a)
	}
}

func TestCLIMaxStepsFlagOverridesConfig(t *testing.T) {
	repo, dir := newTestRepo(t)
	x := commit(t, repo, "")
	y := commit(t, repo, "", x)
	tag(t, repo, "_start", x)
	tag(t, repo, "_end", y)

	writeFile(t, filepath.Join(dir, "undag.yml"), "max_steps: 1\n")

	code, _, stderr := captureCLI(t, []string{"--max-steps", "2", dir}, "")
	if code != 0 {
		t.Fatalf("a two-commit straight line fits a two-step budget; exit code = %d, stderr = %q", code, stderr)
	}
}

func TestCLIEntryFlagOverridesStartTag(t *testing.T) {
	repo, dir := newTestRepo(t)
	a := commit(t, repo, `println "a"`)
	b := commit(t, repo, `println "b"`)
	tag(t, repo, "_start", a)
	tag(t, repo, "_end", b)
	tag(t, repo, "altstart", b)

	code, stdout, stderr := captureCLI(t, []string{"--entry", "altstart", dir}, "")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if stdout != "b\n" {
		t.Fatalf("stdout = %q, want output from the entry override's commit", stdout)
	}
}
