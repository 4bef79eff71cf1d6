package backend

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

type gitCLI struct {
	path string
}

// OpenCLI opens the repository containing repoPath through the git executable.
func OpenCLI(repoPath string) (Backend, error) {
	version, err := checkGitExecutable()
	if err != nil {
		return nil, wrapErr("open repository", err)
	}
	slog.Debug("git executable", slog.String("version", version.String()))
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	tmp := &gitCLI{path: abs}
	root, err := tmp.runGitCommand([]string{"rev-parse", "--show-toplevel"}, false, "git rev-parse")
	if err != nil {
		return nil, wrapErr("open repository", err)
	}
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, wrapErr("open repository", errors.New("git rev-parse returned empty root"))
	}
	return &gitCLI{path: root}, nil
}

func (g *gitCLI) RepoPath() string {
	if g == nil {
		return ""
	}
	return g.path
}

func (g *gitCLI) runGitCommand(args []string, allowExit1 bool, context string) (string, error) {
	if g == nil || g.path == "" {
		return "", wrapErr(context, errors.New("repository root not set"))
	}
	out, code, stderr, err := g.exec(args)
	if err != nil {
		if allowExit1 && code == 1 && stderr == "" {
			// exit status 1 without diagnostics is how git reports "nothing found"
			return out, nil
		}
		if stderr != "" {
			return "", &Error{Op: context, Err: fmt.Errorf("%v: %s", err, stderr)}
		}
		return "", wrapErr(context, err)
	}
	return out, nil
}

// runGitCheck runs a predicate command such as "merge-base --is-ancestor",
// mapping exit status 0 to true and 1 to false.
func (g *gitCLI) runGitCheck(args []string, context string) (bool, error) {
	if g == nil || g.path == "" {
		return false, wrapErr(context, errors.New("repository root not set"))
	}
	_, code, stderr, err := g.exec(args)
	switch {
	case err == nil:
		return true, nil
	case code == 1:
		return false, nil
	case stderr != "":
		return false, &Error{Op: context, Err: fmt.Errorf("%v: %s", err, stderr)}
	default:
		return false, wrapErr(context, err)
	}
}

func (g *gitCLI) exec(args []string) (stdout string, code int, stderr string, err error) {
	cmdArgs := append([]string{"-C", g.path}, args...)
	cmd := exec.Command("git", cmdArgs...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	code = 0
	if err != nil {
		code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
	}
	return outBuf.String(), code, strings.TrimSpace(errBuf.String()), err
}
