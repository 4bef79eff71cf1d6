package backend

import (
	"slices"
	"strings"
	"time"
)

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

type Commit struct {
	Hash         string
	ParentHashes []string
	Author       Signature
	Committer    Signature
	Message      string
}

// LocalChanges summarizes uncommitted state, optionally restricted to a path.
type LocalChanges struct {
	HasWorktree bool
	HasStaged   bool
	Untracked   bool
}

// Clean reports whether there is nothing to commit.
func (l LocalChanges) Clean() bool {
	return !l.HasWorktree && !l.HasStaged && !l.Untracked
}

// Ref is a remote-tracking branch.
type Ref struct {
	Hash string
	Name string // short name: origin/main
}

// BranchNameIn returns the ref name without remote, which may itself contain
// slashes: "team/origin/dev" in "team/origin" is "dev". Refs of other remotes
// fall back to BranchName.
func (r Ref) BranchNameIn(remote string) string {
	if remote != "" {
		if branch, ok := strings.CutPrefix(r.Name, remote+"/"); ok && branch != "" {
			return branch
		}
	}
	return r.BranchName()
}

// BranchName returns the ref name without its remote, so "origin/main" becomes "main".
func (r Ref) BranchName() string {
	if _, branch, ok := strings.Cut(r.Name, "/"); ok && branch != "" {
		return branch
	}
	return r.Name
}

type ChangeType uint8

const (
	ChangeAdd ChangeType = iota
	ChangeDelete
	ChangeModify
	ChangeRename
)

func (c ChangeType) String() string {
	switch c {
	case ChangeAdd:
		return "ADD"
	case ChangeDelete:
		return "DELETE"
	case ChangeModify:
		return "MODIFY"
	case ChangeRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// DiffEntry is one file-level change between two commits. OldPath is empty
// for additions and NewPath is empty for deletions.
type DiffEntry struct {
	Change  ChangeType
	OldPath string
	NewPath string
	OldHash string
	NewHash string
}

// keepNewPaths drops the entries whose destination is not one of paths, so a
// path filter follows the file as it exists in the newer commit. No paths
// keeps everything.
func keepNewPaths(entries []DiffEntry, paths []string) []DiffEntry {
	if len(paths) == 0 {
		return entries
	}
	return slices.DeleteFunc(entries, func(e DiffEntry) bool {
		return !slices.Contains(paths, e.NewPath)
	})
}

// Edit is one contiguous change of an edit script. Ranges are 0-based and
// half-open: lines [BeginA, EndA) of the old file became [BeginB, EndB).
type Edit struct {
	BeginA int
	EndA   int
	BeginB int
	EndB   int
}

// LengthDelta is the number of lines the edit adds (negative when it removes).
func (e Edit) LengthDelta() int {
	return (e.EndB - e.BeginB) - (e.EndA - e.BeginA)
}

type BlameLine struct {
	Hash   string
	Author string
	When   time.Time
	Text   string
}
