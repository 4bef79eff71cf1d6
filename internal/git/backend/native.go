package backend

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type native struct {
	path string
	repo *gitlib.Repository
}

// OpenNative opens the repository containing repoPath with go-git.
func OpenNative(repoPath string) (Backend, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, wrapErr("open repository", err)
	}
	root := abs
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}
	return &native{path: root, repo: repo}, nil
}

func (n *native) RepoPath() string {
	if n == nil {
		return ""
	}
	return n.path
}

func (n *native) HeadState() (hash string, headName string, ok bool, err error) {
	ref, err := n.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", "", false, nil
		}
		return "", "", false, wrapErr("resolve HEAD", err)
	}
	headName = "HEAD"
	if ref.Name().IsBranch() {
		headName = ref.Name().Short()
	}
	return ref.Hash().String(), headName, true, nil
}

func (n *native) ResolveRef(name string) (*Commit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	hash, err := n.repo.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, wrapErr(fmt.Sprintf("resolve %s", name), err)
	}
	c, err := n.repo.CommitObject(*hash)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, wrapErr(fmt.Sprintf("read commit %s", hash), err)
	}
	return toCommit(c), nil
}

func (n *native) ListRefs(prefix string) ([]Ref, error) {
	iter, err := n.repo.References()
	if err != nil {
		return nil, wrapErr("list refs", err)
	}
	defer iter.Close()
	var refs []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name()
		if ref.Type() != plumbing.HashReference || !name.IsRemote() {
			return nil
		}
		if !strings.HasPrefix(name.String(), prefix) {
			return nil
		}
		short := name.Short()
		if strings.HasSuffix(short, "/HEAD") {
			return nil
		}
		refs = append(refs, Ref{Hash: ref.Hash().String(), Name: short})
		return nil
	})
	if err != nil {
		return nil, wrapErr("list refs", err)
	}
	slices.SortFunc(refs, func(a, b Ref) int { return strings.Compare(a.Name, b.Name) })
	return refs, nil
}

func (n *native) Parents(hash string) ([]*Commit, error) {
	c, err := n.commit(hash)
	if err != nil {
		return nil, err
	}
	var parents []*Commit
	err = c.Parents().ForEach(func(p *object.Commit) error {
		parents = append(parents, toCommit(p))
		return nil
	})
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("parents of %s", hash), err)
	}
	return parents, nil
}

func (n *native) IsAncestor(ancestor, descendant string) (bool, error) {
	a, err := n.commit(ancestor)
	if err != nil {
		return false, err
	}
	d, err := n.commit(descendant)
	if err != nil {
		return false, err
	}
	ok, err := a.IsAncestor(d)
	if err != nil {
		return false, wrapErr(fmt.Sprintf("is %s ancestor of %s", ancestor, descendant), err)
	}
	return ok, nil
}

func (n *native) Blame(hash, path string) ([]BlameLine, error) {
	c, err := n.commit(hash)
	if err != nil {
		return nil, err
	}
	res, err := gitlib.Blame(c, path)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("blame %s", path), err)
	}
	lines := make([]BlameLine, 0, len(res.Lines))
	for _, l := range res.Lines {
		lines = append(lines, BlameLine{Hash: l.Hash.String(), Author: l.Author, When: l.Date, Text: l.Text})
	}
	return lines, nil
}

func (n *native) LastModification(path string) (*Commit, error) {
	if _, err := n.repo.Head(); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, wrapErr("resolve HEAD", err)
	}
	iter, err := n.repo.Log(&gitlib.LogOptions{FileName: &path})
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("log %s", path), err)
	}
	defer iter.Close()
	c, err := iter.Next()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, wrapErr(fmt.Sprintf("log %s", path), err)
	}
	return toCommit(c), nil
}

func (n *native) LocalChanges(path string) (LocalChanges, error) {
	var res LocalChanges
	wt, err := n.repo.Worktree()
	if err != nil {
		if errors.Is(err, gitlib.ErrIsBareRepository) {
			return res, nil
		}
		return res, wrapErr("open worktree", err)
	}
	status, err := wt.Status()
	if err != nil {
		return res, wrapErr("status", err)
	}
	path = filepath.ToSlash(path)
	for name, st := range status {
		if path != "" && name != path {
			continue
		}
		if st.Worktree == gitlib.Untracked {
			res.Untracked = true
			continue
		}
		if st.Staging != gitlib.Unmodified {
			res.HasStaged = true
		}
		if st.Worktree != gitlib.Unmodified {
			res.HasWorktree = true
		}
	}
	return res, nil
}

func (n *native) RemoteURL(remote string) (string, error) {
	r, err := n.repo.Remote(remote)
	if err != nil {
		if errors.Is(err, gitlib.ErrRemoteNotFound) {
			return "", nil
		}
		return "", wrapErr(fmt.Sprintf("remote %s", remote), err)
	}
	urls := r.Config().URLs
	if len(urls) == 0 {
		return "", nil
	}
	return urls[0], nil
}

func (n *native) commit(hash string) (*object.Commit, error) {
	c, err := n.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("read commit %s", hash), err)
	}
	return c, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound)
}

func toCommit(c *object.Commit) *Commit {
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	return &Commit{
		Hash:         c.Hash.String(),
		ParentHashes: parents,
		Author:       Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
		Committer:    Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: c.Committer.When},
		Message:      c.Message,
	}
}
