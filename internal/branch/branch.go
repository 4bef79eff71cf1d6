// Package branch finds the remote-tracking branch closest to a checkout.
package branch

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/thiagokokada/incrlint/internal/git/backend"
)

// Ancestry is the slice of the repository the resolver needs.
type Ancestry interface {
	Parents(hash string) ([]*backend.Commit, error)
	// IsAncestor reports whether ancestor is reachable from descendant,
	// including ancestor == descendant.
	IsAncestor(ancestor, descendant string) (bool, error)
	// ResolveRef returns nil, nil when name does not resolve.
	ResolveRef(name string) (*backend.Commit, error)
}

// Result is the branch chosen for comparison. Commit is nil only when the
// branch name does not resolve to any commit.
type Result struct {
	Name   string
	Commit *backend.Commit
}

// When returns the author time of the branch commit, or the zero time.
func (r Result) When() time.Time {
	if r.Commit == nil {
		return time.Time{}
	}
	return r.Commit.Author.When
}

type Resolver struct {
	anc    Ancestry
	remote string
}

// NewResolver returns a resolver over the tracking branches of remote.
func NewResolver(a Ancestry, remote string) *Resolver {
	return &Resolver{anc: a, remote: remote}
}

// Resolve picks the ref in refs that best matches current.
//
// A ref whose tip is current wins outright; when several do, the one named
// currentBranch is preferred. Otherwise every parent of current is matched
// against the refs containing it and the match with the latest author time
// wins, earlier candidates keeping ties. With no match the result is
// defaultBranch as resolved by the repository. A nil current (unborn HEAD)
// always falls back.
//
// Names in the result have the resolver's remote stripped: "origin/dev" is
// "dev".
func (r *Resolver) Resolve(refs []backend.Ref, current *backend.Commit, currentBranch, defaultBranch string) (Result, error) {
	if current != nil {
		if res, ok := r.exactMatch(refs, current, currentBranch); ok {
			slog.Debug("closest branch is checked out", slog.String("branch", res.Name))
			return res, nil
		}
		res, ok, err := r.closestAncestor(refs, current)
		if err != nil {
			return Result{}, err
		}
		if ok {
			slog.Debug("closest branch found in ancestry",
				slog.String("branch", res.Name),
				slog.String("commit", res.Commit.Hash),
			)
			return res, nil
		}
	}
	return r.fallback(defaultBranch)
}

func (r *Resolver) exactMatch(refs []backend.Ref, current *backend.Commit, currentBranch string) (Result, bool) {
	found := -1
	for i, ref := range refs {
		if ref.Hash != current.Hash {
			continue
		}
		if currentBranch != "" && ref.BranchNameIn(r.remote) == currentBranch {
			found = i
			break
		}
		if found < 0 {
			found = i
		}
	}
	if found < 0 {
		return Result{}, false
	}
	return Result{Name: refs[found].BranchNameIn(r.remote), Commit: current}, true
}

func (r *Resolver) closestAncestor(refs []backend.Ref, current *backend.Commit) (Result, bool, error) {
	parents, err := r.anc.Parents(current.Hash)
	if err != nil {
		return Result{}, false, fmt.Errorf("parents of %s: %w", current.Hash, err)
	}
	var best Result
	found := false
	for _, p := range parents {
		for _, ref := range refs {
			ok, err := r.anc.IsAncestor(p.Hash, ref.Hash)
			if err != nil {
				return Result{}, false, fmt.Errorf("is %s merged into %s: %w", p.Hash, ref.Name, err)
			}
			if !ok {
				continue
			}
			tip, err := r.tip(ref)
			if err != nil {
				return Result{}, false, err
			}
			if tip == nil {
				continue
			}
			if !found || tip.Author.When.After(best.When()) {
				best = Result{Name: ref.BranchNameIn(r.remote), Commit: tip}
				found = true
			}
		}
	}
	return best, found, nil
}

func (r *Resolver) tip(ref backend.Ref) (*backend.Commit, error) {
	c, err := r.anc.ResolveRef(ref.Hash)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref.Name, err)
	}
	return c, nil
}

func (r *Resolver) fallback(defaultBranch string) (Result, error) {
	c, err := r.anc.ResolveRef(defaultBranch)
	if err != nil {
		return Result{}, fmt.Errorf("resolve default branch %s: %w", defaultBranch, err)
	}
	slog.Debug("closest branch falls back to default", slog.String("branch", defaultBranch), slog.Bool("resolved", c != nil))
	return Result{Name: defaultBranch, Commit: c}, nil
}
