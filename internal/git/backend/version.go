package backend

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Oldest git accepted by the CLI backend. "git status --porcelain=v2" is the
// newest flag it relies on.
var minGitVersion = gitVersion{major: 2, minor: 11, patch: 0}

type gitVersion struct {
	major int
	minor int
	patch int
}

func (v gitVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

func (v gitVersion) less(other gitVersion) bool {
	if v.major != other.major {
		return v.major < other.major
	}
	if v.minor != other.minor {
		return v.minor < other.minor
	}
	return v.patch < other.patch
}

// versionRE takes the first dotted number, so vendor suffixes such as
// "2.39.3.windows.1" or "(Apple Git-146)" are dropped.
var versionRE = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

func parseGitVersionOutput(out string) (gitVersion, bool) {
	s := strings.TrimSpace(out)
	s = strings.TrimSpace(strings.TrimPrefix(s, "git version"))
	m := versionRE.FindStringSubmatch(s)
	if m == nil {
		return gitVersion{}, false
	}
	var v gitVersion
	var err error
	if v.major, err = strconv.Atoi(m[1]); err != nil {
		return gitVersion{}, false
	}
	if v.minor, err = strconv.Atoi(m[2]); err != nil {
		return gitVersion{}, false
	}
	if m[3] != "" {
		if v.patch, err = strconv.Atoi(m[3]); err != nil {
			return gitVersion{}, false
		}
	}
	return v, true
}

func validateGitVersionOutput(out string) (gitVersion, error) {
	got, ok := parseGitVersionOutput(out)
	if !ok {
		return gitVersion{}, fmt.Errorf("unable to parse git version output: %q", strings.TrimSpace(out))
	}
	if got.less(minGitVersion) {
		return got, fmt.Errorf("git %s is too old; incrlint requires git >= %s", got, minGitVersion)
	}
	return got, nil
}

// checkGitExecutable runs "git --version" once per process.
var checkGitExecutable = sync.OnceValues(func() (gitVersion, error) {
	raw, err := exec.Command("git", "--version").CombinedOutput()
	out := strings.TrimSpace(string(raw))
	if err != nil {
		if out != "" {
			return gitVersion{}, fmt.Errorf("git --version: %v: %s", err, out)
		}
		return gitVersion{}, fmt.Errorf("git --version: %w", err)
	}
	return validateGitVersionOutput(out)
})
