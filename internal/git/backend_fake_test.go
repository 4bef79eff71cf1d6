package git

import (
	"errors"

	gitbackend "github.com/thiagokokada/incrlint/internal/git/backend"
)

type fakeBackend struct {
	repoPath string

	headStateFunc        func() (hash string, headName string, ok bool, err error)
	resolveRefFunc       func(name string) (*gitbackend.Commit, error)
	listRefsFunc         func(prefix string) ([]gitbackend.Ref, error)
	parentsFunc          func(hash string) ([]*gitbackend.Commit, error)
	isAncestorFunc       func(ancestor, descendant string) (bool, error)
	diffFunc             func(oldHash, newHash string, paths ...string) ([]gitbackend.DiffEntry, error)
	editScriptFunc       func(entry gitbackend.DiffEntry) ([]gitbackend.Edit, error)
	blameFunc            func(hash, path string) ([]gitbackend.BlameLine, error)
	lastModificationFunc func(path string) (*gitbackend.Commit, error)
	localChangesFunc     func(path string) (gitbackend.LocalChanges, error)
	remoteURLFunc        func(remote string) (string, error)

	lastListRefsPrefix string
	lastRemote         string
}

func (f *fakeBackend) RepoPath() string { return f.repoPath }

func (f *fakeBackend) HeadState() (hash string, headName string, ok bool, err error) {
	if f.headStateFunc != nil {
		return f.headStateFunc()
	}
	return "", "", false, errors.New("unexpected HeadState call")
}

func (f *fakeBackend) ResolveRef(name string) (*gitbackend.Commit, error) {
	if f.resolveRefFunc != nil {
		return f.resolveRefFunc(name)
	}
	return nil, errors.New("unexpected ResolveRef call")
}

func (f *fakeBackend) ListRefs(prefix string) ([]gitbackend.Ref, error) {
	f.lastListRefsPrefix = prefix
	if f.listRefsFunc != nil {
		return f.listRefsFunc(prefix)
	}
	return nil, errors.New("unexpected ListRefs call")
}

func (f *fakeBackend) Parents(hash string) ([]*gitbackend.Commit, error) {
	if f.parentsFunc != nil {
		return f.parentsFunc(hash)
	}
	return nil, errors.New("unexpected Parents call")
}

func (f *fakeBackend) IsAncestor(ancestor, descendant string) (bool, error) {
	if f.isAncestorFunc != nil {
		return f.isAncestorFunc(ancestor, descendant)
	}
	return false, errors.New("unexpected IsAncestor call")
}

func (f *fakeBackend) Diff(oldHash, newHash string, paths ...string) ([]gitbackend.DiffEntry, error) {
	if f.diffFunc != nil {
		return f.diffFunc(oldHash, newHash, paths...)
	}
	return nil, errors.New("unexpected Diff call")
}

func (f *fakeBackend) EditScript(entry gitbackend.DiffEntry) ([]gitbackend.Edit, error) {
	if f.editScriptFunc != nil {
		return f.editScriptFunc(entry)
	}
	return nil, errors.New("unexpected EditScript call")
}

func (f *fakeBackend) Blame(hash, path string) ([]gitbackend.BlameLine, error) {
	if f.blameFunc != nil {
		return f.blameFunc(hash, path)
	}
	return nil, errors.New("unexpected Blame call")
}

func (f *fakeBackend) LastModification(path string) (*gitbackend.Commit, error) {
	if f.lastModificationFunc != nil {
		return f.lastModificationFunc(path)
	}
	return nil, errors.New("unexpected LastModification call")
}

func (f *fakeBackend) LocalChanges(path string) (gitbackend.LocalChanges, error) {
	if f.localChangesFunc != nil {
		return f.localChangesFunc(path)
	}
	return gitbackend.LocalChanges{}, errors.New("unexpected LocalChanges call")
}

func (f *fakeBackend) RemoteURL(remote string) (string, error) {
	f.lastRemote = remote
	if f.remoteURLFunc != nil {
		return f.remoteURLFunc(remote)
	}
	return "", errors.New("unexpected RemoteURL call")
}
