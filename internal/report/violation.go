// Package report models static-analysis violations: decoding them from the
// analyser's output and rendering the ones that survive filtering.
package report

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/zeebo/xxh3"

	"github.com/thiagokokada/incrlint/internal/region"
)

// Violation is one finding of the analyser. Positions are 1-based, as
// analysers print them.
type Violation struct {
	File        string `json:"file" yaml:"file"`
	Rule        string `json:"rule" yaml:"rule"`
	Message     string `json:"message" yaml:"message"`
	BeginLine   int    `json:"beginLine" yaml:"beginLine"`
	BeginColumn int    `json:"beginColumn" yaml:"beginColumn"`
	EndLine     int    `json:"endLine" yaml:"endLine"`
	EndColumn   int    `json:"endColumn" yaml:"endColumn"`
}

// Region returns the 0-based region of the violation. A missing end position
// collapses to the begin position.
func (v Violation) Region() region.FileRegion {
	endLine, endColumn := v.EndLine, v.EndColumn
	if endLine <= 0 {
		endLine, endColumn = v.BeginLine, v.BeginColumn
	}
	return region.New(v.BeginLine-1, max(v.BeginColumn-1, 0), endLine-1, max(endColumn-1, 0))
}

// ID fingerprints the violation by file, rule and region.
func (v Violation) ID() string {
	h := xxh3.New()
	_, _ = h.WriteString(v.File)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(v.Rule)
	_, _ = h.Write([]byte{0})
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], v.Region().Key())
	_, _ = h.Write(key[:])
	return fmt.Sprintf("%016x", h.Sum64())
}

func (v Violation) validate() error {
	if v.File == "" {
		return fmt.Errorf("violation %q has no file", v.Rule)
	}
	if v.BeginLine <= 0 {
		return fmt.Errorf("violation %q in %s: beginLine must be positive, got %d", v.Rule, v.File, v.BeginLine)
	}
	return nil
}

// FileViolations groups the violations of one file in input order.
type FileViolations struct {
	File       string
	Violations []Violation
}

// GroupByFile groups violations per file, files sorted by name.
func GroupByFile(vs []Violation) []FileViolations {
	index := map[string]int{}
	var groups []FileViolations
	for _, v := range vs {
		i, ok := index[v.File]
		if !ok {
			i = len(groups)
			index[v.File] = i
			groups = append(groups, FileViolations{File: v.File})
		}
		groups[i].Violations = append(groups[i].Violations, v)
	}
	slices.SortStableFunc(groups, func(a, b FileViolations) int { return cmp.Compare(a.File, b.File) })
	return groups
}
