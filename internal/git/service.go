package git

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/thiagokokada/incrlint/internal/branch"
	gitbackend "github.com/thiagokokada/incrlint/internal/git/backend"
	"github.com/thiagokokada/incrlint/internal/region"
)

const (
	DefaultRemote = "origin"
	DefaultBranch = "master"
)

// Service answers the repository questions asked during an incremental
// report. It is safe for concurrent use; backend calls are serialized.
type Service struct {
	// mu serializes backend access, go-git repositories are not safe for
	// concurrent use.
	mu sync.Mutex

	backend       gitbackend.Backend
	remote        string
	defaultBranch string

	resolver *branch.Resolver
	tracker  *region.Tracker
}

type Option func(*Service)

// WithRemote sets the remote whose tracking branches are compared against.
func WithRemote(name string) Option {
	return func(s *Service) {
		if name = strings.TrimSpace(name); name != "" {
			s.remote = name
		}
	}
}

// WithDefaultBranch sets the branch used when no remote branch contains the
// checkout.
func WithDefaultBranch(name string) Option {
	return func(s *Service) {
		if name = strings.TrimSpace(name); name != "" {
			s.defaultBranch = name
		}
	}
}

func Open(repoPath string, opts ...Option) (*Service, error) {
	b, err := gitbackend.Open(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return NewWithBackend(b, opts...), nil
}

func NewWithBackend(b gitbackend.Backend, opts ...Option) *Service {
	s := &Service{
		backend:       b,
		remote:        DefaultRemote,
		defaultBranch: DefaultBranch,
	}
	for _, opt := range opts {
		opt(s)
	}
	// The resolver and tracker reach the backend through s so they share mu.
	s.resolver = branch.NewResolver(lockedBackend{s}, s.remote)
	s.tracker = region.NewTracker(lockedBackend{s})
	return s
}

func (s *Service) RepoPath() string {
	return s.backend.RepoPath()
}

func (s *Service) Remote() string {
	return s.remote
}

func (s *Service) DefaultBranch() string {
	return s.defaultBranch
}

// ClosestRemoteBranch returns the tracking branch of the configured remote
// that is closest to HEAD. See branch.Resolver for the rules.
func (s *Service) ClosestRemoteBranch() (branch.Result, error) {
	s.mu.Lock()
	current, headName, err := s.headLocked()
	if err != nil {
		s.mu.Unlock()
		return branch.Result{}, err
	}
	refs, err := s.backend.ListRefs(gitbackend.RemotesPrefix + s.remote + "/")
	s.mu.Unlock()
	if err != nil {
		return branch.Result{}, fmt.Errorf("list remote branches: %w", err)
	}
	slog.Debug("ClosestRemoteBranch",
		slog.String("head", headName),
		slog.Int("remote_refs", len(refs)),
		slog.Bool("unborn", current == nil),
	)
	res, err := s.resolver.Resolve(refs, current, headName, s.defaultBranch)
	if err != nil {
		return branch.Result{}, fmt.Errorf("closest remote branch: %w", err)
	}
	return res, nil
}

func (s *Service) headLocked() (*gitbackend.Commit, string, error) {
	hash, headName, ok, err := s.backend.HeadState()
	if err != nil {
		return nil, "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if !ok {
		return nil, "", nil
	}
	c, err := s.backend.ResolveRef(hash)
	if err != nil {
		return nil, "", fmt.Errorf("read HEAD commit: %w", err)
	}
	return c, headName, nil
}

// Head returns the checked out commit, nil on an unborn branch.
func (s *Service) Head() (*gitbackend.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, _, err := s.headLocked()
	return c, err
}

// Commit resolves a revision (hash, branch or remote branch). A revision that
// does not exist yields nil.
func (s *Service) Commit(rev string) (*gitbackend.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.ResolveRef(rev)
}

// RemoteCommit resolves the tip of branch on the configured remote.
func (s *Service) RemoteCommit(branchName string) (*gitbackend.Commit, error) {
	return s.Commit(s.remote + "/" + branchName)
}

// FileDiffs lists the changes of path between two commits. A nil commit on
// either side means there is nothing to compare.
func (s *Service) FileDiffs(from, to *gitbackend.Commit, path string) ([]gitbackend.DiffEntry, error) {
	if from == nil || to == nil || from.Hash == to.Hash {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Diff(from.Hash, to.Hash, path)
}

// AreEquivalentRegions reports whether from, a region before diffs, and to, a
// region after them, denote the same code.
func (s *Service) AreEquivalentRegions(diffs []gitbackend.DiffEntry, from, to region.FileRegion) (bool, error) {
	return s.tracker.AreEquivalent(diffs, from, to)
}

// Blame attributes every line of path at HEAD. It returns nil on an unborn
// branch.
func (s *Service) Blame(path string) ([]gitbackend.BlameLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, _, ok, err := s.backend.HeadState()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return s.backend.Blame(hash, path)
}

// LastModification returns the newest commit touching path, or nil.
func (s *Service) LastModification(path string) (*gitbackend.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.LastModification(path)
}

func (s *Service) LocalChanges(path string) (gitbackend.LocalChanges, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.LocalChanges(path)
}

// RemoteURL returns the fetch URL of the configured remote, empty when the
// remote does not exist.
func (s *Service) RemoteURL() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.RemoteURL(s.remote)
}

// RelPath converts path, absolute or relative to the working directory, into
// a slash separated path relative to the repository root.
func (s *Service) RelPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	root := s.RepoPath()
	// Both sides or neither, so a missing file compares like its root.
	resolvedRoot, errRoot := filepath.EvalSymlinks(root)
	resolvedAbs, errAbs := filepath.EvalSymlinks(abs)
	if errRoot == nil && errAbs == nil {
		root, abs = resolvedRoot, resolvedAbs
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("%s is not inside %s: %w", path, root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the repository %s", path, root)
	}
	return filepath.ToSlash(rel), nil
}

// lockedBackend exposes the backend to the resolver and tracker with the
// service lock held per call.
type lockedBackend struct {
	s *Service
}

func (l lockedBackend) Parents(hash string) ([]*gitbackend.Commit, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.s.backend.Parents(hash)
}

func (l lockedBackend) IsAncestor(ancestor, descendant string) (bool, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.s.backend.IsAncestor(ancestor, descendant)
}

func (l lockedBackend) ResolveRef(name string) (*gitbackend.Commit, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.s.backend.ResolveRef(name)
}

func (l lockedBackend) EditScript(entry gitbackend.DiffEntry) ([]gitbackend.Edit, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.s.backend.EditScript(entry)
}
