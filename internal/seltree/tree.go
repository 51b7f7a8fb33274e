package seltree

import (
	"strings"
	"sync"

	"github.com/lucho00cuba/fim/internal/rule"
	"github.com/lucho00cuba/fim/internal/scanerr"
)

// Tree is the selection tree (C2): one tree-wide lock guards both the
// read-mostly classify/lookup path consulted by the traversal driver and
// the writes attach_record performs, per the design note in spec §9 that
// allows replacing the source's single mutex with a read-write lock as
// long as attach_record's path-creation stays atomic.
type Tree struct {
	mu        sync.RWMutex
	root      *Node
	installed bool // true once scan start freezes rule installation
}

// New returns an empty selection tree with just a root node.
func New() *Tree {
	return &Tree{root: newNode("", nil)}
}

func splitPath(relPath string) []string {
	relPath = strings.Trim(relPath, "/")
	if relPath == "" {
		return nil
	}
	return strings.Split(relPath, "/")
}

// InstallRule materializes ancestor nodes as needed and attaches rule to
// its anchor node. Pre-scan only (spec §3 invariant 5, "rule lists are
// frozen at scan start"); calling it after Freeze is a structural error.
func (t *Tree) InstallRule(r *rule.Rule) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.installed {
		return scanerr.NewStructural("install_rule called after scan start", nil)
	}

	node := t.root
	for _, seg := range splitPath(r.Anchor) {
		child, ok := node.children[seg]
		if !ok {
			child = newNode(seg, node)
			node.children[seg] = child
		}
		node = child
	}
	node.rules.Add(r)
	return nil
}

// Freeze locks rule installation, called once by the scan engine before
// the first traversal begins.
func (t *Tree) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.installed = true
}

// ancestorChain walks from the root along relPath, returning every node
// visited (root first) plus, for each, the path remaining relative to
// that node's own anchor. It stops at the first segment with no existing
// child, which per invariant 2 (every rule anchor's full ancestor chain
// is materialized at install time) means no anchor exists any deeper.
func (t *Tree) ancestorChain(relPath string) (visited []*Node, remainders []string, exact bool) {
	segs := splitPath(relPath)
	node := t.root
	visited = append(visited, node)
	remainders = append(remainders, relPath)

	for i, seg := range segs {
		child, ok := node.children[seg]
		if !ok {
			return visited, remainders, false
		}
		node = child
		visited = append(visited, node)
		remainders = append(remainders, strings.Join(segs[i+1:], "/"))
	}
	return visited, remainders, true
}

// Classify walks the tree along relPath, evaluating each visited node's
// rules via the rule package, and returns the combined verdict per
// spec §4.2.
func (t *Tree) Classify(relPath string, kind rule.FileType) (rule.MatchResult, *rule.Rule) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	visited, remainders, exact := t.ancestorChain(relPath)

	// Limit rules compose across every visited ancestor: the path is
	// admitted only if none of them deny it outright.
	fullyInside, reachable := true, true
	for i, node := range visited {
		full, reach := rule.MatchLimit(remainders[i], &node.rules)
		if !full {
			fullyInside = false
		}
		if !reach {
			reachable = false
		}
	}
	if !reachable {
		return rule.NoLimitMatch, nil
	}
	if !fullyInside {
		return rule.PartialLimitMatch, nil
	}

	// Deepest matching ancestor wins, except an exclude at any ancestor
	// always wins outright regardless of depth (spec §4.2 tie-breaks).
	var deepestResult rule.MatchResult = rule.NoMatch
	var deepestRule *rule.Rule
	for i, node := range visited {
		res, r := rule.Match(remainders[i], &node.rules, kind)
		if r != nil && r.Kind == rule.Negative {
			return rule.NoMatch, r
		}
		if res != rule.NoMatch {
			deepestResult = res
			deepestRule = r
		}
	}
	if deepestResult != rule.NoMatch {
		return deepestResult, deepestRule
	}

	// Nothing matched directly. PARTIAL_MATCH covers two distinct reasons
	// a descendant subtree might still yield matches: a positive rule at
	// some visited ancestor whose pattern could still be satisfied by a
	// deeper path (reachability, mirroring limit-rule composition above),
	// or the walk landing exactly on an anchor node that itself has
	// further anchors installed below it.
	for i, node := range visited {
		for _, r := range node.rules.Selective {
			if r.MayMatchDescendant(remainders[i]) {
				return rule.PartialMatch, nil
			}
		}
		for _, r := range node.rules.Equal {
			if r.MayMatchDescendant(remainders[i]) {
				return rule.PartialMatch, nil
			}
		}
	}
	if exact && visited[len(visited)-1].HasChildren() {
		return rule.PartialMatch, nil
	}
	return rule.NoMatch, nil
}

// LookupNode reports whether a node already exists at or materializes
// relPath exactly, used by the traversal driver to detect existing
// interior structure for paths that otherwise did not match (spec C2
// "lookup_node").
func (t *Tree) LookupNode(relPath string) *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	visited, _, exact := t.ancestorChain(relPath)
	if !exact {
		return nil
	}
	return visited[len(visited)-1]
}

// AttachRecord locates or allocates the node for record.Path and sets its
// record slot. Called only by the tree-insertion consumer (spec invariant
// 5). Setting twice for the same path is a structural programming error.
func (t *Tree) AttachRecord(rec *Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	node := t.root
	for _, seg := range splitPath(rec.Path) {
		child, ok := node.children[seg]
		if !ok {
			child = newNode(seg, node)
			node.children[seg] = child
		}
		node = child
	}
	if node.record != nil {
		return scanerr.NewStructural("duplicate record attach for path "+rec.Path, nil)
	}
	node.record = rec
	for cur := node; cur != nil; cur = cur.parent {
		cur.checked = true
	}
	return nil
}

// Root returns the tree's root node, mainly for tests and report walkers.
func (t *Tree) Root() *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}
