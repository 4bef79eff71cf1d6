package backend_test

import (
	"errors"
	"testing"

	"github.com/thiagokokada/incrlint/internal/git/backend"
	"github.com/thiagokokada/incrlint/internal/gittest"
)

var adapters = []struct {
	name string
	open func(string) (backend.Backend, error)
}{
	{name: "native", open: backend.OpenNative},
	{name: "gitcli", open: backend.OpenCLI},
}

func forEachAdapter(t *testing.T, dir string, fn func(t *testing.T, b backend.Backend)) {
	t.Helper()
	for _, a := range adapters {
		t.Run(a.name, func(t *testing.T) {
			b, err := a.open(dir)
			if err != nil {
				t.Fatalf("open %s: %v", dir, err)
			}
			fn(t, b)
		})
	}
}

func TestAdapters_EmptyRepository(t *testing.T) {
	t.Parallel()

	repo := gittest.Init(t)
	forEachAdapter(t, repo.Dir, func(t *testing.T, b backend.Backend) {
		if _, _, ok, err := b.HeadState(); err != nil || ok {
			t.Fatalf("HeadState() ok=%v err=%v, want unborn HEAD", ok, err)
		}
		c, err := b.ResolveRef("master")
		if err != nil || c != nil {
			t.Fatalf("ResolveRef(master) = %v, %v; want nil, nil", c, err)
		}
		refs, err := b.ListRefs(backend.RemotesPrefix)
		if err != nil || len(refs) != 0 {
			t.Fatalf("ListRefs() = %+v, %v; want empty", refs, err)
		}
		last, err := b.LastModification("anything.txt")
		if err != nil || last != nil {
			t.Fatalf("LastModification() = %v, %v; want nil, nil", last, err)
		}
		url, err := b.RemoteURL("origin")
		if err != nil || url != "" {
			t.Fatalf("RemoteURL() = %q, %v; want empty", url, err)
		}
	})
}

func TestAdapters_RefsAndAncestry(t *testing.T) {
	t.Parallel()

	origin := gittest.Init(t)
	c1 := origin.CommitFile("a.txt", "one\n", "first")
	origin.Git("tag", "-a", "v1", "-m", "release v1")
	c2 := origin.CommitFile("a.txt", "two\n", "second")
	origin.Git("checkout", "-q", "-b", "dev", c1)
	c3 := origin.CommitFile("b.txt", "dev\n", "dev work")
	origin.Git("checkout", "-q", "master")

	clone := gittest.Clone(t, origin)

	forEachAdapter(t, clone.Dir, func(t *testing.T, b backend.Backend) {
		hash, head, ok, err := b.HeadState()
		if err != nil || !ok || hash != c2 || head != "master" {
			t.Fatalf("HeadState() = %q, %q, %v, %v", hash, head, ok, err)
		}

		refs, err := b.ListRefs(backend.RemotesPrefix)
		if err != nil {
			t.Fatalf("ListRefs() error = %v", err)
		}
		if len(refs) != 2 {
			t.Fatalf("ListRefs() = %+v, want origin/dev and origin/master", refs)
		}
		if refs[0].Name != "origin/dev" || refs[0].Hash != c3 {
			t.Fatalf("refs[0] = %+v", refs[0])
		}
		if refs[1].Name != "origin/master" || refs[1].Hash != c2 || refs[1].BranchName() != "master" {
			t.Fatalf("refs[1] = %+v", refs[1])
		}

		for _, prefix := range []string{"refs/tags/", "refs/heads/", "refs/"} {
			others, err := b.ListRefs(prefix)
			if err != nil {
				t.Fatalf("ListRefs(%s) error = %v", prefix, err)
			}
			for _, ref := range others {
				if ref.Name != "origin/dev" && ref.Name != "origin/master" {
					t.Fatalf("ListRefs(%s) returned %+v outside the remote namespace", prefix, ref)
				}
			}
		}

		got, err := b.ResolveRef("origin/dev")
		if err != nil || got == nil || got.Hash != c3 {
			t.Fatalf("ResolveRef(origin/dev) = %+v, %v", got, err)
		}
		if got.Author.Email != "test@example.com" || got.Author.When.IsZero() {
			t.Fatalf("unexpected author: %+v", got.Author)
		}
		if missing, err := b.ResolveRef("origin/nope"); err != nil || missing != nil {
			t.Fatalf("ResolveRef(origin/nope) = %+v, %v; want nil, nil", missing, err)
		}

		parents, err := b.Parents(c2)
		if err != nil || len(parents) != 1 || parents[0].Hash != c1 {
			t.Fatalf("Parents(c2) = %+v, %v", parents, err)
		}
		roots, err := b.Parents(c1)
		if err != nil || len(roots) != 0 {
			t.Fatalf("Parents(c1) = %+v, %v; want none", roots, err)
		}

		for _, tc := range []struct {
			ancestor, descendant string
			want                 bool
		}{
			{c1, c2, true},
			{c2, c1, false},
			{c2, c2, true},
			{c2, c3, false},
			{c1, c3, true},
		} {
			ok, err := b.IsAncestor(tc.ancestor, tc.descendant)
			if err != nil || ok != tc.want {
				t.Fatalf("IsAncestor(%s, %s) = %v, %v; want %v", tc.ancestor[:7], tc.descendant[:7], ok, err, tc.want)
			}
		}

		url, err := b.RemoteURL("origin")
		if err != nil || url == "" {
			t.Fatalf("RemoteURL(origin) = %q, %v", url, err)
		}
		if url, err := b.RemoteURL("upstream"); err != nil || url != "" {
			t.Fatalf("RemoteURL(upstream) = %q, %v; want empty", url, err)
		}
	})
}

func TestAdapters_DiffEditScriptAndBlame(t *testing.T) {
	t.Parallel()

	repo := gittest.Init(t)
	lines := gittest.NumberedLines(10)
	repo.WriteFile("f.txt", gittest.Lines(lines...))
	repo.WriteFile("gone.txt", "bye\n")
	repo.WriteFile("stable.txt", "same\n")
	c1 := repo.Commit("base")

	changed := append([]string{"a", "b", "c"}, lines...)
	changed[7] = "changed 5"
	repo.WriteFile("f.txt", gittest.Lines(changed...))
	repo.WriteFile("new.txt", "hello\n")
	repo.Git("rm", "-q", "gone.txt")
	c2 := repo.Commit("edit")

	forEachAdapter(t, repo.Dir, func(t *testing.T, b backend.Backend) {
		entries, err := b.Diff(c1, c2)
		if err != nil {
			t.Fatalf("Diff() error = %v", err)
		}
		byPath := map[string]backend.DiffEntry{}
		for _, e := range entries {
			p := e.NewPath
			if p == "" {
				p = e.OldPath
			}
			byPath[p] = e
		}
		if len(byPath) != 3 {
			t.Fatalf("Diff() = %+v, want 3 entries", entries)
		}
		if byPath["f.txt"].Change != backend.ChangeModify {
			t.Fatalf("f.txt change = %v", byPath["f.txt"].Change)
		}
		if byPath["new.txt"].Change != backend.ChangeAdd {
			t.Fatalf("new.txt change = %v", byPath["new.txt"].Change)
		}
		if byPath["gone.txt"].Change != backend.ChangeDelete {
			t.Fatalf("gone.txt change = %v", byPath["gone.txt"].Change)
		}

		only, err := b.Diff(c1, c2, "f.txt")
		if err != nil || len(only) != 1 || only[0].NewPath != "f.txt" {
			t.Fatalf("Diff(f.txt) = %+v, %v", only, err)
		}

		deleted, err := b.Diff(c1, c2, "gone.txt")
		if err != nil || len(deleted) != 0 {
			t.Fatalf("Diff(gone.txt) = %+v, %v; want no entries", deleted, err)
		}

		edits, err := b.EditScript(only[0])
		if err != nil {
			t.Fatalf("EditScript() error = %v", err)
		}
		want := []backend.Edit{
			{BeginA: 0, EndA: 0, BeginB: 0, EndB: 3},
			{BeginA: 4, EndA: 5, BeginB: 7, EndB: 8},
		}
		if len(edits) != len(want) {
			t.Fatalf("EditScript() = %+v, want %+v", edits, want)
		}
		for i := range want {
			if edits[i] != want[i] {
				t.Fatalf("edit %d = %+v, want %+v", i, edits[i], want[i])
			}
		}
		if none, err := b.EditScript(byPath["new.txt"]); err != nil || len(none) != 0 {
			t.Fatalf("EditScript(add) = %+v, %v; want none", none, err)
		}

		blame, err := b.Blame(c2, "f.txt")
		if err != nil {
			t.Fatalf("Blame() error = %v", err)
		}
		if len(blame) != 13 {
			t.Fatalf("Blame() returned %d lines, want 13", len(blame))
		}
		if blame[0].Hash != c2 || blame[3].Hash != c1 || blame[7].Hash != c2 || blame[8].Hash != c1 {
			t.Fatalf("unexpected blame attribution: %+v", blame)
		}
		if blame[3].Text != "line 1" || blame[3].Author != "test@example.com" {
			t.Fatalf("blame[3] = %+v", blame[3])
		}

		last, err := b.LastModification("stable.txt")
		if err != nil || last == nil || last.Hash != c1 {
			t.Fatalf("LastModification(stable.txt) = %+v, %v", last, err)
		}
		last, err = b.LastModification("f.txt")
		if err != nil || last == nil || last.Hash != c2 {
			t.Fatalf("LastModification(f.txt) = %+v, %v", last, err)
		}
		last, err = b.LastModification("never.txt")
		if err != nil || last != nil {
			t.Fatalf("LastModification(never.txt) = %+v, %v; want nil", last, err)
		}
	})
}

func TestAdapters_LocalChanges(t *testing.T) {
	t.Parallel()

	repo := gittest.Init(t)
	repo.WriteFile("tracked.txt", "v1\n")
	repo.WriteFile("clean.txt", "v1\n")
	repo.Commit("base")
	repo.WriteFile("tracked.txt", "v2\n")
	repo.WriteFile("untracked.txt", "new\n")

	forEachAdapter(t, repo.Dir, func(t *testing.T, b backend.Backend) {
		got, err := b.LocalChanges("tracked.txt")
		if err != nil || !got.HasWorktree || got.HasStaged {
			t.Fatalf("LocalChanges(tracked.txt) = %+v, %v", got, err)
		}
		got, err = b.LocalChanges("untracked.txt")
		if err != nil || !got.Untracked || got.Clean() {
			t.Fatalf("LocalChanges(untracked.txt) = %+v, %v", got, err)
		}
		got, err = b.LocalChanges("clean.txt")
		if err != nil || !got.Clean() {
			t.Fatalf("LocalChanges(clean.txt) = %+v, %v", got, err)
		}
	})
}

func TestAdapters_FailuresAreUnavailable(t *testing.T) {
	t.Parallel()
	gittest.RequireGit(t)

	notRepo := t.TempDir()
	for _, a := range adapters {
		if _, err := a.open(notRepo); !errors.Is(err, backend.ErrUnavailable) {
			t.Fatalf("%s: open(non-repo) error = %v, want ErrUnavailable", a.name, err)
		}
	}

	repo := gittest.Init(t)
	c1 := repo.CommitFile("a.txt", "a\n", "first")
	const unknown = "0123456789abcdef0123456789abcdef01234567"
	forEachAdapter(t, repo.Dir, func(t *testing.T, b backend.Backend) {
		if _, err := b.IsAncestor(unknown, c1); !errors.Is(err, backend.ErrUnavailable) {
			t.Fatalf("IsAncestor(unknown) error = %v, want ErrUnavailable", err)
		}
		if _, err := b.Blame(c1, "missing.txt"); !errors.Is(err, backend.ErrUnavailable) {
			t.Fatalf("Blame(missing) error = %v, want ErrUnavailable", err)
		}
	})
}
