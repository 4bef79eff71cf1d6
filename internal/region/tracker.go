package region

import (
	"fmt"
	"log/slog"

	"github.com/thiagokokada/incrlint/internal/git/backend"
)

type EditScripter interface {
	EditScript(entry backend.DiffEntry) ([]backend.Edit, error)
}

// Tracker checks region equivalence over the diffs of a single file.
type Tracker struct {
	scripts EditScripter
}

func NewTracker(s EditScripter) *Tracker {
	return &Tracker{scripts: s}
}

// AreEquivalent reports whether from, a region of the old revision, and to, a
// region of the new one, are the same code once the edits in diffs are
// applied. Only MODIFY entries are considered. The regions are copies, so the
// caller's values are never shifted.
func (t *Tracker) AreEquivalent(diffs []backend.DiffEntry, from, to FileRegion) (bool, error) {
	var scripts [][]backend.Edit
	for _, d := range diffs {
		if d.Change != backend.ChangeModify {
			continue
		}
		edits, err := t.scripts.EditScript(d)
		if err != nil {
			return false, fmt.Errorf("edit script of %s: %w", d.NewPath, err)
		}
		scripts = append(scripts, edits)
	}
	ok := Replay(scripts, from, to)
	slog.Debug("region equivalence",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("scripts", len(scripts)),
		slog.Bool("equivalent", ok),
	)
	return ok, nil
}

// Replay carries from forward through the edit scripts and compares its
// start line with to.
//
// Edits starting before from shift it by their length delta, even when they
// run into the region. An edit that starts inside from in the old revision and
// inside to in the new one is a rewrite of the region and makes the regions
// equivalent outright. Every other edit is ignored. In particular an edit
// starting inside from whose new position falls outside to neither shifts
// nor matches, so the result then only depends on the earlier shifts. This is
// a coarse heuristic and callers rely on it as is.
func Replay(scripts [][]backend.Edit, from, to FileRegion) bool {
	for _, edits := range scripts {
		for _, e := range edits {
			switch {
			case e.BeginA < from.BeginLine:
				from.Move(e.LengthDelta())
			case from.IncludesLine(e.BeginA) && to.IncludesLine(e.BeginB):
				return true
			}
		}
	}
	return from.StartsAtSameLine(to)
}
