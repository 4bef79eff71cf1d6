// Package region decides whether two source locations, taken at different
// revisions of a file, denote the same code.
package region

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// FileRegion is a span of lines and columns, all 0-based. It is a comparable
// value: equality and map hashing both use the four coordinates.
type FileRegion struct {
	BeginLine   int
	BeginColumn int
	EndLine     int
	EndColumn   int
}

// New returns the region between two positions, swapping them if the end
// comes before the begin.
func New(beginLine, beginColumn, endLine, endColumn int) FileRegion {
	if endLine < beginLine || (endLine == beginLine && endColumn < beginColumn) {
		beginLine, endLine = endLine, beginLine
		beginColumn, endColumn = endColumn, beginColumn
	}
	return FileRegion{BeginLine: beginLine, BeginColumn: beginColumn, EndLine: endLine, EndColumn: endColumn}
}

// IncludesLine reports whether line lies in [BeginLine, EndLine].
func (r FileRegion) IncludesLine(line int) bool {
	return r.BeginLine <= line && line <= r.EndLine
}

// Move shifts the region by delta lines. Columns are untouched.
func (r *FileRegion) Move(delta int) {
	r.BeginLine += delta
	r.EndLine += delta
}

func (r FileRegion) StartsAtSameLine(other FileRegion) bool {
	return r.BeginLine == other.BeginLine
}

// Key is a stable digest of the coordinates, suitable for persisted
// fingerprints.
func (r FileRegion) Key() uint64 {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(int64(r.BeginLine)))
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(r.BeginColumn)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(int64(r.EndLine)))
	binary.LittleEndian.PutUint64(buf[24:], uint64(int64(r.EndColumn)))
	return xxh3.Hash(buf[:])
}

func (r FileRegion) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.BeginLine, r.BeginColumn, r.EndLine, r.EndColumn)
}
