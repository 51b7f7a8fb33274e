// Package traverse implements the traversal driver (C4): an explicit-stack
// directory walk that consults the selection tree (C2) at every entry to
// decide whether to inspect it, descend into it, or skip it outright.
package traverse

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lucho00cuba/fim/internal/extract"
	"github.com/lucho00cuba/fim/internal/logger"
	"github.com/lucho00cuba/fim/internal/rule"
	"github.com/lucho00cuba/fim/internal/scanerr"
	"github.com/lucho00cuba/fim/internal/seltree"
)

// Request is one inspection request handed to the pipeline (spec §4.4
// step 3: "enqueue a request {path, attr_mask, raw_metadata}").
type Request struct {
	Path     string
	AttrMask rule.AttrMask
	Raw      extract.RawMeta
}

// Sink is how the driver hands off an inspection request. In pipeline
// mode it enqueues into Q1; in serial mode it can run C3/C2 synchronously
// in the same call.
type Sink func(context.Context, Request) error

// Diagnostic is one dry-run classification event (spec §4.4 "Dry-run").
type Diagnostic struct {
	RelPath string
	Rule    *rule.Rule
	Result  rule.MatchResult
}

// DiagnosticSink receives dry-run diagnostics instead of inspection requests.
type DiagnosticSink func(Diagnostic)

// Driver walks a root directory against a selection tree, deciding per
// entry whether to inspect, descend, or skip it.
type Driver struct {
	Root     string
	Tree     *seltree.Tree
	AttrMask rule.AttrMask
	Sink     Sink
	DryRun   bool
	Diag     DiagnosticSink
}

// Run walks Root to completion or until ctx is cancelled. It returns the
// first context error or Sink error encountered; per-entry failures are logged and
// skipped, never propagated (spec §4.4 steps 1-2: "on failure, log and
// continue").
func (d *Driver) Run(ctx context.Context) error {
	log := logger.Logger().With("component", "traverse")
	stack := []string{d.Root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			terr := scanerr.NewTransient(dir, "readdir", err)
			log.Warn("skipping unreadable directory", "error", terr)
			continue
		}

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)

		// Subdirectories are pushed in reverse order once the directory is
		// done, so they are popped (and submitted) in sorted DFS order.
		var subdirs []string
		for _, name := range names {
			childPath := filepath.Join(dir, name)

			raw, err := extract.CaptureRawMeta(childPath)
			if err != nil {
				terr := scanerr.NewTransient(childPath, "lstat", err)
				log.Warn("skipping unreadable entry", "error", terr)
				continue
			}

			relPath := relativeTo(d.Root, childPath)
			result, matched := d.Tree.Classify(relPath, raw.Kind)
			isDir := raw.Kind == rule.FileDirectory

			if d.DryRun {
				if d.Diag != nil {
					d.Diag(Diagnostic{RelPath: relPath, Rule: matched, Result: result})
				}
				if shouldDescend(result, isDir, func() bool { return d.Tree.LookupNode(relPath) != nil }) {
					subdirs = append(subdirs, childPath)
				}
				continue
			}

			if shouldInspect(result, isDir) {
				req := Request{Path: childPath, AttrMask: d.AttrMask, Raw: raw}
				if err := d.Sink(ctx, req); err != nil {
					return err
				}
			}
			if shouldDescend(result, isDir, func() bool { return d.Tree.LookupNode(relPath) != nil }) {
				subdirs = append(subdirs, childPath)
			}
		}
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}
	return nil
}

// shouldInspect implements the "inspect" column of the decision table in
// spec §4.4.
func shouldInspect(result rule.MatchResult, isDir bool) bool {
	switch result {
	case rule.EqualMatch, rule.SelectiveMatch:
		return true
	default:
		return false
	}
}

// shouldDescend implements the push/skip column of the decision table in
// spec §4.4. hasNode is evaluated lazily (only NO_MATCH on a directory
// needs the lookup_node call).
func shouldDescend(result rule.MatchResult, isDir bool, hasNode func() bool) bool {
	if !isDir {
		return false
	}
	switch result {
	case rule.EqualMatch:
		return false
	case rule.SelectiveMatch, rule.PartialMatch, rule.PartialLimitMatch:
		return true
	case rule.NoMatch:
		return hasNode()
	case rule.NoLimitMatch:
		return false
	default:
		return false
	}
}

// relativeTo strips root's prefix from path, yielding the slash-separated
// relative path the selection tree keys on. Symlinks are never followed
// here or anywhere else in the driver (spec §4.4 "Ordering").
func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = strings.TrimPrefix(path, root)
	}
	return filepath.ToSlash(rel)
}
