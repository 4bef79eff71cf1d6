package region

import (
	"errors"
	"testing"

	"github.com/thiagokokada/incrlint/internal/git/backend"
)

func TestNew_SwapsReversedBounds(t *testing.T) {
	t.Parallel()

	got := New(9, 4, 3, 1)
	want := FileRegion{BeginLine: 3, BeginColumn: 1, EndLine: 9, EndColumn: 4}
	if got != want {
		t.Fatalf("New() = %+v, want %+v", got, want)
	}
	if got := New(2, 8, 2, 3); got.BeginColumn != 3 || got.EndColumn != 8 {
		t.Fatalf("New() same line = %+v, want columns swapped", got)
	}
	if got := New(1, 0, 2, 0); got != (FileRegion{BeginLine: 1, EndLine: 2}) {
		t.Fatalf("New() ordered = %+v", got)
	}
}

func TestFileRegion_IncludesLine(t *testing.T) {
	t.Parallel()

	r := New(5, 0, 7, 10)
	for line, want := range map[int]bool{4: false, 5: true, 6: true, 7: true, 8: false} {
		if got := r.IncludesLine(line); got != want {
			t.Fatalf("IncludesLine(%d) = %v, want %v", line, got, want)
		}
	}
}

func TestFileRegion_Move(t *testing.T) {
	t.Parallel()

	r := New(5, 2, 7, 10)
	r.Move(3)
	if r != (FileRegion{BeginLine: 8, BeginColumn: 2, EndLine: 10, EndColumn: 10}) {
		t.Fatalf("Move(3) = %+v", r)
	}
	r.Move(-8)
	if r.BeginLine != 0 || r.EndLine != 2 {
		t.Fatalf("Move(-8) = %+v", r)
	}
}

func TestFileRegion_EqualityAndKey(t *testing.T) {
	t.Parallel()

	a := New(1, 2, 3, 4)
	b := New(1, 2, 3, 4)
	c := New(1, 2, 3, 5)

	seen := map[FileRegion]int{a: 1}
	seen[b]++
	if len(seen) != 1 || seen[a] != 2 {
		t.Fatalf("equal regions must share a map key: %v", seen)
	}
	if a.Key() != b.Key() {
		t.Fatal("equal regions must have equal keys")
	}
	if a.Key() == c.Key() {
		t.Fatal("different regions should have different keys")
	}
	if New(1, 2, 3, 4).Key() == New(2, 1, 3, 4).Key() {
		t.Fatal("key must depend on field order")
	}
}

func TestReplay(t *testing.T) {
	t.Parallel()

	plusThree := []backend.Edit{{BeginA: 0, EndA: 5, BeginB: 0, EndB: 8}}

	tests := []struct {
		name    string
		scripts [][]backend.Edit
		from    FileRegion
		to      FileRegion
		want    bool
	}{
		{
			name: "no_edits_same_line",
			from: New(4, 0, 4, 9),
			to:   New(4, 2, 6, 0),
			want: true,
		},
		{
			name: "no_edits_different_line",
			from: New(4, 0, 4, 9),
			to:   New(5, 0, 5, 9),
			want: false,
		},
		{
			name:    "shift_by_three_matches",
			scripts: [][]backend.Edit{plusThree},
			from:    New(10, 0, 10, 5),
			to:      New(13, 0, 13, 5),
			want:    true,
		},
		{
			name:    "shift_by_three_off_by_one",
			scripts: [][]backend.Edit{plusThree},
			from:    New(10, 0, 10, 5),
			to:      New(14, 0, 14, 5),
			want:    false,
		},
		{
			name: "shifts_accumulate_across_scripts",
			scripts: [][]backend.Edit{
				{{BeginA: 1, EndA: 1, BeginB: 1, EndB: 3}},
				{{BeginA: 2, EndA: 5, BeginB: 2, EndB: 3}},
			},
			from: New(10, 0, 10, 0),
			to:   New(10, 0, 10, 0),
			want: true,
		},
		{
			name: "deletion_before_region",
			scripts: [][]backend.Edit{
				{{BeginA: 0, EndA: 4, BeginB: 0, EndB: 0}},
			},
			from: New(10, 0, 12, 0),
			to:   New(6, 0, 8, 0),
			want: true,
		},
		{
			name: "edits_after_region_ignored",
			scripts: [][]backend.Edit{
				{{BeginA: 20, EndA: 20, BeginB: 20, EndB: 30}},
			},
			from: New(10, 0, 10, 0),
			to:   New(10, 0, 10, 0),
			want: true,
		},
		{
			name: "rewrite_inside_both_regions",
			scripts: [][]backend.Edit{
				{{BeginA: 11, EndA: 12, BeginB: 41, EndB: 45}},
			},
			from: New(10, 0, 12, 0),
			to:   New(40, 0, 44, 0),
			want: true,
		},
		{
			name: "rewrite_short_circuits_later_shifts",
			scripts: [][]backend.Edit{
				{
					{BeginA: 10, EndA: 11, BeginB: 10, EndB: 11},
					{BeginA: 0, EndA: 0, BeginB: 0, EndB: 50},
				},
			},
			from: New(10, 0, 10, 0),
			to:   New(10, 0, 10, 0),
			want: true,
		},
		{
			name: "edit_inside_from_outside_to_ignored",
			scripts: [][]backend.Edit{
				{{BeginA: 11, EndA: 12, BeginB: 30, EndB: 31}},
			},
			from: New(10, 0, 12, 0),
			to:   New(20, 0, 22, 0),
			want: false,
		},
		{
			// The edit starts at the region's first line in the old file but
			// its new position is past to; it is neither a shift nor a
			// rewrite, so the later edit alone decides.
			name: "overlap_without_rewrite_is_skipped",
			scripts: [][]backend.Edit{
				{
					{BeginA: 10, EndA: 14, BeginB: 10, EndB: 20},
					{BeginA: 30, EndA: 30, BeginB: 36, EndB: 40},
				},
			},
			from: New(10, 0, 13, 0),
			to:   New(4, 0, 8, 0),
			want: false,
		},
		{
			name: "edit_overlapping_start_from_left_shifts",
			scripts: [][]backend.Edit{
				{{BeginA: 8, EndA: 12, BeginB: 8, EndB: 10}},
			},
			from: New(10, 0, 14, 0),
			to:   New(8, 0, 12, 0),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Replay(tt.scripts, tt.from, tt.to); got != tt.want {
				t.Fatalf("Replay() = %v, want %v", got, tt.want)
			}
		})
	}
}

type fakeScripter struct {
	scripts map[string][]backend.Edit
	err     error
	calls   []backend.DiffEntry
}

func (f *fakeScripter) EditScript(entry backend.DiffEntry) ([]backend.Edit, error) {
	f.calls = append(f.calls, entry)
	if entry.Change != backend.ChangeModify {
		return nil, errors.New("unexpected EditScript call for " + entry.Change.String())
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.scripts[entry.NewPath], nil
}

func TestTracker_AreEquivalent(t *testing.T) {
	t.Parallel()

	s := &fakeScripter{scripts: map[string][]backend.Edit{
		"a.go": {{BeginA: 0, EndA: 5, BeginB: 0, EndB: 8}},
	}}
	diffs := []backend.DiffEntry{
		{Change: backend.ChangeAdd, NewPath: "a.go"},
		{Change: backend.ChangeModify, OldPath: "a.go", NewPath: "a.go"},
		{Change: backend.ChangeDelete, OldPath: "a.go"},
		{Change: backend.ChangeRename, OldPath: "b.go", NewPath: "a.go"},
	}
	from := New(10, 0, 10, 5)
	to := New(13, 0, 13, 5)

	ok, err := NewTracker(s).AreEquivalent(diffs, from, to)
	if err != nil {
		t.Fatalf("AreEquivalent: %v", err)
	}
	if !ok {
		t.Fatal("expected regions to be equivalent after +3 shift")
	}
	if len(s.calls) != 1 {
		t.Fatalf("expected 1 EditScript call, got %d: %+v", len(s.calls), s.calls)
	}
	if from.BeginLine != 10 {
		t.Fatalf("caller region was mutated: %+v", from)
	}

	ok, err = NewTracker(s).AreEquivalent(diffs, from, New(14, 0, 14, 5))
	if err != nil || ok {
		t.Fatalf("AreEquivalent(14) = %v, %v; want false", ok, err)
	}
}

func TestTracker_OnlyNonModifyEntries(t *testing.T) {
	t.Parallel()

	s := &fakeScripter{}
	diffs := []backend.DiffEntry{{Change: backend.ChangeAdd, NewPath: "a.go"}}

	ok, err := NewTracker(s).AreEquivalent(diffs, New(3, 0, 3, 0), New(3, 0, 3, 0))
	if err != nil || !ok {
		t.Fatalf("AreEquivalent = %v, %v; want true", ok, err)
	}
	ok, err = NewTracker(s).AreEquivalent(diffs, New(3, 0, 3, 0), New(4, 0, 4, 0))
	if err != nil || ok {
		t.Fatalf("AreEquivalent = %v, %v; want false", ok, err)
	}
	if len(s.calls) != 0 {
		t.Fatalf("unexpected EditScript calls: %+v", s.calls)
	}
}

func TestTracker_PropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := &backend.Error{Op: "diff", Err: errors.New("missing blob")}
	s := &fakeScripter{err: boom}
	diffs := []backend.DiffEntry{{Change: backend.ChangeModify, OldPath: "a.go", NewPath: "a.go"}}

	_, err := NewTracker(s).AreEquivalent(diffs, New(0, 0, 0, 0), New(0, 0, 0, 0))
	if !errors.Is(err, backend.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
