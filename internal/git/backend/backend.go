package backend

// Backend abstracts access to repository data.
//
// Two implementations exist: a pure-Go one built on go-git and one that shells
// out to the git executable. Callers never see library specific types, so the
// branch and region packages can be exercised against fakes.
//
// Lookups that find nothing are not errors: ResolveRef and LastModification
// return a nil commit. Every error returned by an implementation satisfies
// errors.Is(err, ErrUnavailable).
type Backend interface {
	RepoPath() string
	HeadState() (hash string, headName string, ok bool, err error)

	ResolveRef(name string) (*Commit, error)
	// ListRefs lists the remote-tracking branches whose full ref name starts
	// with prefix, sorted by name. Symbolic remote HEADs are left out.
	ListRefs(prefix string) ([]Ref, error)
	Parents(hash string) ([]*Commit, error)
	// IsAncestor reports whether ancestor is reachable from descendant by
	// following parent links. A commit is its own ancestor.
	IsAncestor(ancestor, descendant string) (bool, error)

	// Diff lists file changes between two commits. When paths are given only
	// entries whose new path matches one of them are returned.
	Diff(oldHash, newHash string, paths ...string) ([]DiffEntry, error)
	// EditScript returns the line edits of a MODIFY entry, sorted by BeginA.
	EditScript(entry DiffEntry) ([]Edit, error)

	Blame(hash, path string) ([]BlameLine, error)
	LastModification(path string) (*Commit, error)
	LocalChanges(path string) (LocalChanges, error)
	RemoteURL(remote string) (string, error)
}

// RemotesPrefix is the ref namespace holding remote-tracking branches.
const RemotesPrefix = "refs/remotes/"
