// Package gitrepo implements UnDAG's repository reader (spec §6) on top of
// github.com/go-git/go-git/v5: it walks every commit reachable from a tag,
// resolving git's replace mechanism (refs/replace/<sha>) so that grafted
// history surfaces as the cycles spec §3 and §9 require the rest of the
// interpreter to tolerate.
package gitrepo

import (
	"fmt"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"undag/pkg/graph"
)

// Open reads the on-disk repository at path and builds its CommitGraph.
func Open(path string) (*graph.CommitGraph, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	return Load(repo)
}

// Load builds a CommitGraph from an already-open go-git repository
// (disk-backed or, in tests, fully in-memory).
func Load(repo *git.Repository) (*graph.CommitGraph, error) {
	return graph.Build(&reader{repo: repo})
}

type reader struct {
	repo *git.Repository
}

func (r *reader) Read() ([]graph.RawCommit, map[string]graph.CommitID, error) {
	tags, err := r.readTags()
	if err != nil {
		return nil, nil, err
	}

	// Roots are walked in tag-name order so the commit enumeration order,
	// and with it the Children order the router breaks ties by, is the
	// same on every load.
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)
	var roots []plumbing.Hash
	for _, name := range names {
		roots = append(roots, plumbing.NewHash(string(tags[name])))
	}

	commits, err := r.walk(roots)
	if err != nil {
		return nil, nil, err
	}
	return commits, tags, nil
}

// readTags resolves every tag reference (lightweight or annotated) to the
// commit it ultimately names, chasing replacements along the way so a
// grafted tag target reports its replacement's identity.
func (r *reader) readTags() (map[string]graph.CommitID, error) {
	tags := make(map[string]graph.CommitID)

	iter, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("enumerate tags: %w", err)
	}
	defer iter.Close()

	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		hash, err := r.peelToCommit(ref.Hash())
		if err != nil {
			return fmt.Errorf("tag %q: %w", name, err)
		}
		resolved, err := r.resolveReplacement(hash)
		if err != nil {
			return fmt.Errorf("tag %q: %w", name, err)
		}
		tags[name] = graph.CommitID(resolved.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// peelToCommit follows an annotated tag object down to the commit it
// points at; a hash that is already a commit is returned unchanged.
func (r *reader) peelToCommit(hash plumbing.Hash) (plumbing.Hash, error) {
	if _, err := r.repo.CommitObject(hash); err == nil {
		return hash, nil
	}
	tagObj, err := r.repo.TagObject(hash)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%s is neither a commit nor an annotated tag: %w", hash, err)
	}
	commit, err := tagObj.Commit()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("peel annotated tag %s: %w", hash, err)
	}
	return commit.Hash, nil
}

// resolveReplacement chases refs/replace/<hash> until it finds a commit
// with no further replacement, exactly as the upstream interpreter's
// `replace` helper does. The visited set guards against a malformed
// repository whose replace refs form their own cycle.
func (r *reader) resolveReplacement(hash plumbing.Hash) (plumbing.Hash, error) {
	visited := map[plumbing.Hash]bool{}
	for {
		if visited[hash] {
			return hash, nil
		}
		visited[hash] = true

		ref, err := r.repo.Reference(plumbing.ReferenceName("refs/replace/"+hash.String()), true)
		if err != nil {
			return hash, nil
		}
		hash = ref.Hash()
	}
}

// walk performs a BFS over the commit graph starting from roots, chasing
// each parent edge through resolveReplacement before following it. The
// visited set both prevents revisiting a commit and is what keeps this
// loop-safe on a graph containing graft-induced cycles.
func (r *reader) walk(roots []plumbing.Hash) ([]graph.RawCommit, error) {
	visited := make(map[plumbing.Hash]bool)
	var queue []plumbing.Hash
	for _, root := range roots {
		if !visited[root] {
			visited[root] = true
			queue = append(queue, root)
		}
	}

	var commits []graph.RawCommit
	for len(queue) > 0 {
		hash := queue[0]
		queue = queue[1:]

		commit, err := r.repo.CommitObject(hash)
		if err != nil {
			return nil, fmt.Errorf("load commit %s: %w", hash, err)
		}

		parents := make([]graph.CommitID, 0, len(commit.ParentHashes))
		for _, parentHash := range commit.ParentHashes {
			resolved, err := r.resolveReplacement(parentHash)
			if err != nil {
				return nil, fmt.Errorf("resolve parent of %s: %w", hash, err)
			}
			parents = append(parents, graph.CommitID(resolved.String()))
			if !visited[resolved] {
				visited[resolved] = true
				queue = append(queue, resolved)
			}
		}

		commits = append(commits, graph.RawCommit{
			ID:      graph.CommitID(hash.String()),
			Message: strings.TrimRight(commit.Message, "\n"),
			Parents: parents,
		})
	}
	return commits, nil
}
