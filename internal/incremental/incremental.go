// Package incremental decides which violations of a fresh analysis are new
// compared to the last analysis stored on the hub.
package incremental

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/thiagokokada/incrlint/internal/branch"
	"github.com/thiagokokada/incrlint/internal/git/backend"
	"github.com/thiagokokada/incrlint/internal/hub"
	"github.com/thiagokokada/incrlint/internal/region"
	"github.com/thiagokokada/incrlint/internal/report"
)

// ErrNoRemoteURL is returned by Prepare when the compared remote has no URL
// the hub could know the repository by.
var ErrNoRemoteURL = errors.New("remote has no URL")

// Repository is the subset of git.Service used by the filter.
type Repository interface {
	Remote() string
	ClosestRemoteBranch() (branch.Result, error)
	RemoteCommit(branchName string) (*backend.Commit, error)
	Commit(rev string) (*backend.Commit, error)
	RemoteURL() (string, error)
	RelPath(path string) (string, error)
	LastModification(path string) (*backend.Commit, error)
	LocalChanges(path string) (backend.LocalChanges, error)
	Blame(path string) ([]backend.BlameLine, error)
	FileDiffs(from, to *backend.Commit, path string) ([]backend.DiffEntry, error)
	AreEquivalentRegions(diffs []backend.DiffEntry, from, to region.FileRegion) (bool, error)
}

// Hub is the subset of hub.Client used by the filter.
type Hub interface {
	RepositoryID(ctx context.Context, remoteURL string) (string, error)
	LastAnalysis(ctx context.Context, repoID, branch string) (hub.Analysis, error)
	PreviousIssues(ctx context.Context, repoID, branch, location string) ([]hub.Issue, error)
}

// Session is the state shared by every file of one report. FetchHead and
// LastAnalysis are nil when the commit is unknown locally.
type Session struct {
	RepositoryID  string
	Branch        string
	CompareBranch string
	FetchHead     *backend.Commit
	LastAnalysis  *backend.Commit
	// WorkingDir is the absolute directory violation paths are relative to.
	WorkingDir string
}

type Filter struct {
	repo       Repository
	hub        Hub
	workingDir string
}

func New(repo Repository, h Hub, workingDir string) *Filter {
	return &Filter{repo: repo, hub: h, workingDir: workingDir}
}

// Prepare resolves the branch the checkout is compared against and the
// commit the hub analysed last for it.
func (f *Filter) Prepare(ctx context.Context) (Session, error) {
	workingDir, err := filepath.Abs(f.workingDir)
	if err != nil {
		return Session{}, fmt.Errorf("resolve working directory: %w", err)
	}
	s := Session{WorkingDir: workingDir}

	closest, err := f.repo.ClosestRemoteBranch()
	if err != nil {
		return Session{}, err
	}
	s.Branch = closest.Name

	s.FetchHead, err = f.repo.RemoteCommit(s.Branch)
	if err != nil {
		return Session{}, fmt.Errorf("resolve %s/%s: %w", f.repo.Remote(), s.Branch, err)
	}

	remoteURL, err := f.repo.RemoteURL()
	if err != nil {
		return Session{}, fmt.Errorf("read remote URL: %w", err)
	}
	if remoteURL == "" {
		return Session{}, fmt.Errorf("%w: %s", ErrNoRemoteURL, f.repo.Remote())
	}
	s.RepositoryID, err = f.hub.RepositoryID(ctx, remoteURL)
	if err != nil {
		return Session{}, err
	}

	analysis, err := f.hub.LastAnalysis(ctx, s.RepositoryID, s.Branch)
	if err != nil {
		return Session{}, err
	}
	s.CompareBranch = analysis.AnalyzedBranch
	if analysis.Commit != "" {
		s.LastAnalysis, err = f.repo.Commit(analysis.Commit)
		if err != nil {
			return Session{}, fmt.Errorf("resolve analysed commit %s: %w", analysis.Commit, err)
		}
	}

	// A CI build of the branch itself: the hub is behind the remote, so only
	// what happened since the analysis counts.
	if isPrevious(s.LastAnalysis, s.FetchHead) {
		s.FetchHead = s.LastAnalysis
	}

	slog.Debug("Prepare",
		slog.String("repository", s.RepositoryID),
		slog.String("branch", s.Branch),
		slog.String("compare_branch", s.CompareBranch),
		slog.String("fetch_head", hashOf(s.FetchHead)),
		slog.String("last_analysis", hashOf(s.LastAnalysis)),
	)
	return s, nil
}

// NewViolations returns the violations of one file that were not reported by
// the last analysis. path is absolute or relative to the session working
// directory. Files that do not exist or were not touched since FetchHead
// report nothing.
func (f *Filter) NewViolations(ctx context.Context, s Session, path string, vs []report.Violation) ([]report.Violation, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(s.WorkingDir, filepath.FromSlash(path))
	}
	if _, err := os.Stat(full); err != nil {
		slog.Debug("skipping missing file", slog.String("path", full), slog.Any("error", err))
		return nil, nil
	}
	location, err := f.repo.RelPath(full)
	if err != nil {
		return nil, err
	}

	touched, err := f.touched(s, location)
	if err != nil {
		return nil, err
	}
	if !touched {
		slog.Debug("untouched file", slog.String("location", location))
		return nil, nil
	}

	previous, err := f.hub.PreviousIssues(ctx, s.RepositoryID, s.CompareBranch, location)
	if err != nil {
		return nil, err
	}
	blame, err := f.repo.Blame(location)
	if err != nil {
		return nil, fmt.Errorf("blame %s: %w", location, err)
	}
	diffs, err := f.repo.FileDiffs(s.LastAnalysis, s.FetchHead, location)
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", location, err)
	}

	var fresh []report.Violation
	for _, v := range vs {
		isNew, err := f.isNew(s, v, blame, diffs, previous)
		if err != nil {
			return nil, err
		}
		if isNew {
			fresh = append(fresh, v)
		}
	}
	slog.Debug("NewViolations",
		slog.String("location", location),
		slog.Int("violations", len(vs)),
		slog.Int("previous", len(previous)),
		slog.Int("new", len(fresh)),
	)
	return fresh, nil
}

// FilterAll runs NewViolations for every file of vs.
func (f *Filter) FilterAll(ctx context.Context, s Session, vs []report.Violation) ([]report.Violation, error) {
	var out []report.Violation
	for _, group := range report.GroupByFile(vs) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fresh, err := f.NewViolations(ctx, s, group.File, group.Violations)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", group.File, err)
		}
		out = append(out, fresh...)
	}
	return out, nil
}

func (f *Filter) touched(s Session, location string) (bool, error) {
	last, err := f.repo.LastModification(location)
	if err != nil {
		return false, fmt.Errorf("last modification of %s: %w", location, err)
	}
	if isPrevious(s.FetchHead, last) {
		return true, nil
	}
	changes, err := f.repo.LocalChanges(location)
	if err != nil {
		return false, fmt.Errorf("status of %s: %w", location, err)
	}
	return !changes.Clean(), nil
}

func (f *Filter) isNew(s Session, v report.Violation, blame []backend.BlameLine, diffs []backend.DiffEntry, previous []hub.Issue) (bool, error) {
	if line := v.BeginLine - 1; line >= 0 && line < len(blame) && s.FetchHead != nil {
		if s.FetchHead.Author.When.Before(blame[line].When) {
			return true, nil
		}
	}
	to := v.Region()
	for _, issue := range previous {
		same, err := f.repo.AreEquivalentRegions(diffs, issue.Region(), to)
		if err != nil {
			return false, fmt.Errorf("compare with previous issue: %w", err)
		}
		if same {
			return false, nil
		}
	}
	return true, nil
}

// isPrevious reports whether a was authored before b. Absent commits are
// never previous.
func isPrevious(a, b *backend.Commit) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Author.When.Before(b.Author.When)
}

func hashOf(c *backend.Commit) string {
	if c == nil {
		return ""
	}
	return c.Hash
}
