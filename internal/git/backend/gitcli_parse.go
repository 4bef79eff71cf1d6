package backend

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

func parseGitLogRecord(rec []byte) (*Commit, error) {
	parts := strings.Split(string(rec), "\n")
	if len(parts) < 8 {
		return nil, fmt.Errorf("unexpected git log record: got %d lines", len(parts))
	}
	hashStr := strings.TrimSpace(parts[0])
	if hashStr == "" {
		return nil, fmt.Errorf("missing commit hash")
	}
	var parents []string
	parentLine := strings.TrimSpace(parts[1])
	if parentLine != "" {
		parents = append(parents, strings.Fields(parentLine)...)
	}
	authorWhen, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[4]))
	if err != nil {
		return nil, fmt.Errorf("author date of %s: %w", hashStr, err)
	}
	committerWhen, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[7]))
	if err != nil {
		return nil, fmt.Errorf("committer date of %s: %w", hashStr, err)
	}
	message := ""
	if len(parts) > 8 {
		message = strings.Join(parts[8:], "\n")
	}
	return &Commit{
		Hash:         hashStr,
		ParentHashes: parents,
		Author:       Signature{Name: parts[2], Email: parts[3], When: authorWhen},
		Committer:    Signature{Name: parts[5], Email: parts[6], When: committerWhen},
		Message:      message,
	}, nil
}

func parseStatusPorcelainV2(r io.Reader) (LocalChanges, error) {
	var res LocalChanges
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 2 {
			continue
		}
		switch line[0] {
		case '1', '2', 'u':
			if len(line) < 4 {
				continue
			}
			stagedState := line[2]
			worktreeState := line[3]
			if stagedState != '.' {
				res.HasStaged = true
			}
			if worktreeState != '.' && worktreeState != '?' {
				res.HasWorktree = true
			}
		case '?':
			res.Untracked = true
		default:
			// '!' ignored, '#' headers
		}
	}
	return res, scanner.Err()
}

// parseRefsFromShowRef parses "git show-ref" output, keeping the
// remote-tracking branches under prefix. Symbolic remote HEADs are skipped.
// The result is sorted by name.
func parseRefsFromShowRef(out string, prefix string) ([]Ref, error) {
	var refs []Ref
	for rawLine := range strings.SplitSeq(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		hash, refName := parts[0], parts[1]
		if !strings.HasPrefix(refName, prefix) {
			continue
		}
		short, ok := strings.CutPrefix(refName, RemotesPrefix)
		if !ok || short == "" || strings.HasSuffix(short, "/HEAD") {
			continue
		}
		refs = append(refs, Ref{Hash: hash, Name: short})
	}
	slices.SortFunc(refs, func(a, b Ref) int { return strings.Compare(a.Name, b.Name) })
	return refs, nil
}

// parseNameStatus parses "git diff --name-status -z" output.
func parseNameStatus(out, oldHash, newHash string) ([]DiffEntry, error) {
	fields := strings.Split(strings.TrimSuffix(out, "\x00"), "\x00")
	if len(fields) == 1 && fields[0] == "" {
		return nil, nil
	}
	var entries []DiffEntry
	for i := 0; i < len(fields); {
		status := strings.TrimSpace(fields[i])
		i++
		if status == "" {
			return nil, fmt.Errorf("empty status at field %d", i)
		}
		need := 1
		if status[0] == 'R' || status[0] == 'C' {
			need = 2
		}
		if i+need > len(fields) {
			return nil, fmt.Errorf("truncated name-status entry %q", status)
		}
		entry := DiffEntry{OldHash: oldHash, NewHash: newHash}
		switch status[0] {
		case 'A':
			entry.Change = ChangeAdd
			entry.NewPath = fields[i]
		case 'D':
			entry.Change = ChangeDelete
			entry.OldPath = fields[i]
		case 'M', 'T':
			entry.Change = ChangeModify
			entry.OldPath = fields[i]
			entry.NewPath = fields[i]
		case 'R':
			entry.Change = ChangeRename
			entry.OldPath = fields[i]
			entry.NewPath = fields[i+1]
		case 'C':
			entry.Change = ChangeAdd
			entry.NewPath = fields[i+1]
		default:
			return nil, fmt.Errorf("unsupported change status %q", status)
		}
		i += need
		entries = append(entries, entry)
	}
	return entries, nil
}

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// parseUnifiedHunks turns the hunk headers of a zero-context unified diff
// into edits. A zero-length side "-N,0" means an insertion after line N, which
// is index N in 0-based coordinates.
func parseUnifiedHunks(out string) ([]Edit, error) {
	var edits []Edit
	for line := range strings.SplitSeq(out, "\n") {
		if !strings.HasPrefix(line, "@@ ") {
			continue
		}
		m := hunkHeader.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("malformed hunk header: %q", line)
		}
		beginA, endA, err := hunkRange(m[1], m[2])
		if err != nil {
			return nil, err
		}
		beginB, endB, err := hunkRange(m[3], m[4])
		if err != nil {
			return nil, err
		}
		edits = append(edits, Edit{BeginA: beginA, EndA: endA, BeginB: beginB, EndB: endB})
	}
	return edits, nil
}

func hunkRange(startStr, countStr string) (begin, end int, err error) {
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return 0, 0, fmt.Errorf("hunk start %q: %w", startStr, err)
	}
	count := 1
	if countStr != "" {
		if count, err = strconv.Atoi(countStr); err != nil {
			return 0, 0, fmt.Errorf("hunk count %q: %w", countStr, err)
		}
	}
	if count == 0 {
		return start, start, nil
	}
	return start - 1, start - 1 + count, nil
}

// parseBlamePorcelain parses "git blame --porcelain". Commit headers are only
// printed the first time a commit appears, so author data is remembered per
// hash.
func parseBlamePorcelain(out string) ([]BlameLine, error) {
	type commitInfo struct {
		author string
		when   time.Time
	}
	infos := map[string]*commitInfo{}
	byFinal := map[int]BlameLine{}
	var cur string
	final := 0
	maxFinal := 0
	for line := range strings.SplitSeq(out, "\n") {
		if text, ok := strings.CutPrefix(line, "\t"); ok {
			if cur == "" {
				return nil, fmt.Errorf("content line before commit header")
			}
			info := infos[cur]
			byFinal[final] = BlameLine{Hash: cur, Author: info.author, When: info.when, Text: text}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) >= 3 && isObjectName(fields[0]) {
			n, err := strconv.Atoi(fields[2])
			if err != nil {
				return nil, fmt.Errorf("blame line number %q: %w", fields[2], err)
			}
			cur, final = fields[0], n
			maxFinal = max(maxFinal, n)
			if infos[cur] == nil {
				infos[cur] = &commitInfo{}
			}
			continue
		}
		if cur == "" {
			continue
		}
		switch fields[0] {
		case "author-mail":
			if len(fields) > 1 {
				infos[cur].author = strings.Trim(fields[1], "<>")
			}
		case "author-time":
			if len(fields) > 1 {
				sec, err := strconv.ParseInt(fields[1], 10, 64)
				if err != nil {
					return nil, fmt.Errorf("author-time %q: %w", fields[1], err)
				}
				infos[cur].when = time.Unix(sec, 0)
			}
		}
	}
	lines := make([]BlameLine, 0, maxFinal)
	for i := 1; i <= maxFinal; i++ {
		l, ok := byFinal[i]
		if !ok {
			return nil, fmt.Errorf("blame output missing line %d", i)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func isObjectName(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
