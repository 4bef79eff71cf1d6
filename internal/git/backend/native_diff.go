package backend

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/pmezard/go-difflib/difflib"
)

func (n *native) Diff(oldHash, newHash string, paths ...string) ([]DiffEntry, error) {
	oldTree, err := n.tree(oldHash)
	if err != nil {
		return nil, err
	}
	newTree, err := n.tree(newHash)
	if err != nil {
		return nil, err
	}
	changes, err := object.DiffTree(oldTree, newTree)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("diff %s..%s", oldHash, newHash), err)
	}
	var entries []DiffEntry
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, wrapErr(fmt.Sprintf("diff %s..%s", oldHash, newHash), err)
		}
		entry := DiffEntry{OldHash: oldHash, NewHash: newHash}
		switch action {
		case merkletrie.Insert:
			entry.Change = ChangeAdd
			entry.NewPath = change.To.Name
		case merkletrie.Delete:
			entry.Change = ChangeDelete
			entry.OldPath = change.From.Name
		case merkletrie.Modify:
			entry.Change = ChangeModify
			entry.OldPath = change.From.Name
			entry.NewPath = change.To.Name
		default:
			continue
		}
		entries = append(entries, entry)
	}
	return keepNewPaths(entries, paths), nil
}

func (n *native) EditScript(entry DiffEntry) ([]Edit, error) {
	if entry.Change != ChangeModify {
		return nil, nil
	}
	oldLines, err := n.fileLines(entry.OldHash, entry.OldPath)
	if err != nil {
		return nil, err
	}
	newLines, err := n.fileLines(entry.NewHash, entry.NewPath)
	if err != nil {
		return nil, err
	}
	return editsFromLines(oldLines, newLines), nil
}

// editsFromLines keeps the non-equal opcodes of a line matcher. Junk
// heuristics are disabled so blank lines and braces still anchor the match.
func editsFromLines(a, b []string) []Edit {
	matcher := difflib.NewMatcherWithJunk(a, b, false, nil)
	var edits []Edit
	for _, op := range matcher.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		edits = append(edits, Edit{BeginA: op.I1, EndA: op.I2, BeginB: op.J1, EndB: op.J2})
	}
	return edits
}

func (n *native) tree(hash string) (*object.Tree, error) {
	c, err := n.commit(hash)
	if err != nil {
		return nil, err
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("read tree of %s", hash), err)
	}
	return tree, nil
}

func (n *native) fileLines(hash, path string) ([]string, error) {
	tree, err := n.tree(hash)
	if err != nil {
		return nil, err
	}
	f, err := tree.File(path)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("read %s at %s", path, hash), err)
	}
	content, err := f.Contents()
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("read %s at %s", path, hash), err)
	}
	return difflib.SplitLines(content), nil
}
