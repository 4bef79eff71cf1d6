// Package gittest builds throwaway git repositories for tests by driving the
// git executable.
package gittest

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Epoch is the author date of the first commit made by Repo.Commit. Every
// following commit is one minute later, so commit order and author order
// agree.
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type Repo struct {
	t       testing.TB
	Dir     string
	commits int
}

// RequireGit skips the test when no git executable is available.
func RequireGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not found")
	}
}

// Init creates an empty repository whose default branch is master.
func Init(t testing.TB) *Repo {
	t.Helper()
	RequireGit(t)
	r := &Repo{t: t, Dir: t.TempDir()}
	r.Git("init", "-q")
	return r
}

// Clone clones src into a fresh directory. The clone has src as its origin
// remote.
func Clone(t testing.TB, src *Repo) *Repo {
	t.Helper()
	RequireGit(t)
	dir := filepath.Join(t.TempDir(), "clone")
	r := &Repo{t: t, Dir: dir, commits: src.commits}
	r.run(filepath.Dir(dir), nil, "clone", "-q", src.Dir, dir)
	return r
}

// Git runs git inside the repository and returns its trimmed stdout. Any
// failure aborts the test.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()
	return r.run(r.Dir, nil, args...)
}

func (r *Repo) run(dir string, env []string, args ...string) string {
	r.t.Helper()
	full := append([]string{
		"-c", "user.name=Test User",
		"-c", "user.email=test@example.com",
		"-c", "commit.gpgsign=false",
		"-c", "tag.gpgsign=false",
		"-c", "init.defaultBranch=master",
	}, args...)
	cmd := exec.Command("git", full...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_NOSYSTEM=1", "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	cmd.Env = append(cmd.Env, env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		r.t.Fatalf("git %s: %v: %s", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(stdout.String())
}

// WriteFile writes content to path, relative to the repository root.
func (r *Repo) WriteFile(path, content string) {
	r.t.Helper()
	full := filepath.Join(r.Dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", path, err)
	}
}

// Commit stages everything and commits it, returning the new commit hash.
func (r *Repo) Commit(msg string) string {
	r.t.Helper()
	return r.CommitAt(msg, Epoch.Add(time.Duration(r.commits)*time.Minute))
}

// CommitAt is Commit with an explicit author and committer date.
func (r *Repo) CommitAt(msg string, when time.Time) string {
	r.t.Helper()
	r.Git("add", "-A")
	date := when.Format(time.RFC3339)
	env := []string{"GIT_AUTHOR_DATE=" + date, "GIT_COMMITTER_DATE=" + date}
	r.run(r.Dir, env, "commit", "-q", "--allow-empty", "-m", msg)
	r.commits++
	return r.Git("rev-parse", "HEAD")
}

// CommitFile writes a single file and commits it.
func (r *Repo) CommitFile(path, content, msg string) string {
	r.t.Helper()
	r.WriteFile(path, content)
	return r.Commit(msg)
}

// Lines joins lines with a trailing newline.
func Lines(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// NumberedLines returns n lines "line 1".."line n".
func NumberedLines(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("line %d", i+1)
	}
	return out
}
