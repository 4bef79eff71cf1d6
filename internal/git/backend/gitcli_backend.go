package backend

import (
	"errors"
	"fmt"
	"strings"
)

// commitFormat prints one field per line with the raw message last, matching
// parseGitLogRecord.
const commitFormat = "%H%n%P%n%an%n%ae%n%aI%n%cn%n%ce%n%cI%n%B"

func (g *gitCLI) HeadState() (hash string, headName string, ok bool, err error) {
	out, err := g.runGitCommand([]string{"rev-parse", "-q", "--verify", "HEAD"}, true, "git rev-parse")
	if err != nil {
		return "", "", false, err
	}
	hash = strings.TrimSpace(out)
	if hash == "" {
		return "", "", false, nil
	}
	ref, err := g.runGitCommand([]string{"symbolic-ref", "-q", "--short", "HEAD"}, true, "git symbolic-ref")
	if err != nil {
		return "", "", false, err
	}
	headName = strings.TrimSpace(ref)
	if headName == "" {
		headName = "HEAD"
	}
	return hash, headName, true, nil
}

func (g *gitCLI) ResolveRef(name string) (*Commit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	if strings.HasPrefix(name, "-") {
		return nil, wrapErr("git rev-parse", fmt.Errorf("invalid revision %q", name))
	}
	out, err := g.runGitCommand([]string{"rev-parse", "-q", "--verify", name + "^{commit}"}, true, "git rev-parse")
	if err != nil {
		return nil, err
	}
	hash := strings.TrimSpace(out)
	if hash == "" {
		return nil, nil
	}
	return g.loadCommit(hash)
}

func (g *gitCLI) loadCommit(hash string) (*Commit, error) {
	out, err := g.runGitCommand(
		[]string{"log", "-1", "--no-color", "--pretty=format:" + commitFormat, hash},
		false,
		"git log",
	)
	if err != nil {
		return nil, err
	}
	c, err := parseGitLogRecord([]byte(out))
	if err != nil {
		return nil, wrapErr("git log", err)
	}
	return c, nil
}

func (g *gitCLI) ListRefs(prefix string) ([]Ref, error) {
	out, err := g.runGitCommand(
		[]string{
			"--no-pager",
			"show-ref",
		},
		true,
		"git show-ref",
	)
	if err != nil {
		return nil, err
	}
	refs, err := parseRefsFromShowRef(out, prefix)
	if err != nil {
		return nil, wrapErr("git show-ref", err)
	}
	return refs, nil
}

func (g *gitCLI) Parents(hash string) ([]*Commit, error) {
	c, err := g.loadCommit(hash)
	if err != nil {
		return nil, err
	}
	parents := make([]*Commit, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		pc, err := g.loadCommit(p)
		if err != nil {
			return nil, err
		}
		parents = append(parents, pc)
	}
	return parents, nil
}

func (g *gitCLI) IsAncestor(ancestor, descendant string) (bool, error) {
	return g.runGitCheck([]string{"merge-base", "--is-ancestor", ancestor, descendant}, "git merge-base")
}

func (g *gitCLI) Diff(oldHash, newHash string, paths ...string) ([]DiffEntry, error) {
	args := []string{"diff", "--no-color", "--no-ext-diff", "--no-renames", "--name-status", "-z", oldHash, newHash, "--"}
	args = append(args, paths...)
	out, err := g.runGitCommand(args, true, "git diff")
	if err != nil {
		return nil, err
	}
	entries, err := parseNameStatus(out, oldHash, newHash)
	if err != nil {
		return nil, wrapErr("git diff", err)
	}
	// The pathspec also matches deletions of the path.
	return keepNewPaths(entries, paths), nil
}

func (g *gitCLI) EditScript(entry DiffEntry) ([]Edit, error) {
	if entry.Change != ChangeModify {
		return nil, nil
	}
	out, err := g.runGitCommand(
		[]string{"diff", "--no-color", "--no-ext-diff", "--no-renames", "-U0", entry.OldHash, entry.NewHash, "--", entry.NewPath},
		true,
		"git diff",
	)
	if err != nil {
		return nil, err
	}
	edits, err := parseUnifiedHunks(out)
	if err != nil {
		return nil, wrapErr("git diff", err)
	}
	return edits, nil
}

func (g *gitCLI) Blame(hash, path string) ([]BlameLine, error) {
	out, err := g.runGitCommand([]string{"blame", "--porcelain", hash, "--", path}, false, "git blame")
	if err != nil {
		return nil, err
	}
	lines, err := parseBlamePorcelain(out)
	if err != nil {
		return nil, wrapErr("git blame", err)
	}
	return lines, nil
}

func (g *gitCLI) LastModification(path string) (*Commit, error) {
	if _, _, ok, err := g.HeadState(); err != nil || !ok {
		return nil, err
	}
	out, err := g.runGitCommand(
		[]string{"log", "-1", "--no-color", "--pretty=format:" + commitFormat, "--", path},
		false,
		"git log",
	)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}
	c, err := parseGitLogRecord([]byte(out))
	if err != nil {
		return nil, wrapErr("git log", err)
	}
	return c, nil
}

func (g *gitCLI) LocalChanges(path string) (LocalChanges, error) {
	args := []string{"status", "--porcelain=v2"}
	if path != "" {
		args = append(args, "--", path)
	}
	out, err := g.runGitCommand(args, false, "git status")
	if err != nil {
		return LocalChanges{}, err
	}
	res, err := parseStatusPorcelainV2(strings.NewReader(out))
	if err != nil {
		return res, wrapErr("git status", fmt.Errorf("parse: %w", err))
	}
	return res, nil
}

func (g *gitCLI) RemoteURL(remote string) (string, error) {
	if strings.TrimSpace(remote) == "" {
		return "", wrapErr("git config", errors.New("remote not specified"))
	}
	out, err := g.runGitCommand([]string{"config", "--get", "remote." + remote + ".url"}, true, "git config")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
