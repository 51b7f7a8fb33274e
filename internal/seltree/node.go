// Package seltree implements the selection tree (C2): rules organized by
// the directory anchor at which they apply, descent/match queries, and
// the record slots the tree-insertion consumer populates.
package seltree

import (
	"sort"
	"strings"

	"github.com/lucho00cuba/fim/internal/rule"
)

// Record is the immutable per-path aggregate C3 produces and C2 stores
// (spec §3 "Completed record").
type Record struct {
	Path      string
	Kind      rule.FileType
	Attrs     map[rule.Attr]any
	Digests   map[rule.Attr][]byte
	Partial   bool
	ErrorKind string
}

// Node is one selection-tree node, identified by its path prefix — a
// single directory segment below its parent (spec §3).
type Node struct {
	name     string
	parent   *Node
	children map[string]*Node

	rules   rule.Set
	checked bool

	record *Record
}

func newNode(name string, parent *Node) *Node {
	return &Node{
		name:     name,
		parent:   parent,
		children: make(map[string]*Node),
	}
}

// Name returns this node's own path segment.
func (n *Node) Name() string { return n.name }

// Path reconstructs this node's full path from the root.
func (n *Node) Path() string {
	var segs []string
	for cur := n; cur != nil && cur.parent != nil; cur = cur.parent {
		segs = append([]string{cur.name}, segs...)
	}
	return strings.Join(segs, "/")
}

// Record returns the completed record attached to this node, if any.
func (n *Node) Record() *Record { return n.record }

// HasChildren reports whether any rule anchor or matched path created a
// node below this one.
func (n *Node) HasChildren() bool { return len(n.children) > 0 }

// Checked reports whether some rule at or under this node has matched at
// least one path during the current scan (spec §3: "used to propagate
// descent"). It is diagnostic — Classify's descent decisions are driven
// by anchor structure (HasChildren), not by whether a match has already
// happened — but is exposed for reporting/testing and kept in sync by
// AttachRecord.
func (n *Node) Checked() bool { return n.checked }

// Children returns this node's children sorted by name, matching the
// sorted DFS order the traversal driver submits entries in (spec §5).
func (n *Node) Children() []*Node {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Node, len(names))
	for i, name := range names {
		out[i] = n.children[name]
	}
	return out
}
