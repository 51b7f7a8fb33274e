// Package scan wires the selection tree (C2), traversal driver (C4) and
// pipeline (C5) behind one function, Run: the public entry point a caller supplies
// compiled rules, a root prefix, and a sink to, and gets back a populated
// selection tree (spec.md §6 "Outputs produced").
package scan

import (
	"context"
	"fmt"

	"github.com/lucho00cuba/fim/internal/extract"
	"github.com/lucho00cuba/fim/internal/logger"
	"github.com/lucho00cuba/fim/internal/pipeline"
	"github.com/lucho00cuba/fim/internal/rule"
	"github.com/lucho00cuba/fim/internal/scanerr"
	"github.com/lucho00cuba/fim/internal/seltree"
	"github.com/lucho00cuba/fim/internal/sink"
	"github.com/lucho00cuba/fim/internal/traverse"
)

// Config is the explicit, caller-owned configuration for one scan (spec
// §9 "Global configuration": "the core should take it as an explicit
// context value ... so that two scans in one process are possible"). It
// is threaded through, never stored in a package-level global.
type Config struct {
	// Root is the absolute directory prefix the scan walks.
	Root string
	// Rules are installed into the selection tree before the scan starts.
	Rules []*rule.Rule
	// AttrMask is the union of attributes any installed rule may request;
	// extraction never produces more than this regardless of a rule's own
	// narrower mask.
	AttrMask rule.AttrMask
	// Workers is N from spec §6; zero selects serial mode.
	Workers      int
	QueueFactor  int
	BufferSize   int
	Capabilities extract.Capabilities
	// DryRun runs classification only; no inspection requests, no records
	// (spec §4.4 "Dry-run").
	DryRun bool
	// Diag receives dry-run diagnostics; ignored unless DryRun is set.
	Diag traverse.DiagnosticSink
	// Sink receives every completed record once attached to the tree, in
	// addition to the tree itself holding it. Optional.
	Sink sink.Sink
}

// Result is what one completed scan returns.
type Result struct {
	Tree *seltree.Tree
}

// Run installs cfg.Rules into a fresh selection tree, then drives the
// traversal/pipeline to completion over cfg.Root (spec §2 "system
// overview": selection tree classifies, pipeline drives/fans-out/funnels).
func Run(ctx context.Context, cfg Config) (*Result, error) {
	tree := seltree.New()
	for _, r := range cfg.Rules {
		if err := tree.InstallRule(r); err != nil {
			return nil, fmt.Errorf("installing rule for anchor %q: %w", r.Anchor, err)
		}
	}
	tree.Freeze()

	log := logger.Logger().With("component", "scan", "root", cfg.Root, "workers", cfg.Workers)
	log.Info("scan starting")

	p := pipeline.New(tree, pipeline.Config{
		Workers:      cfg.Workers,
		QueueFactor:  cfg.QueueFactor,
		BufferSize:   cfg.BufferSize,
		Capabilities: cfg.Capabilities,
	})
	pipelineSink, join := p.Sink(ctx)

	driver := &traverse.Driver{
		Root:     cfg.Root,
		Tree:     tree,
		AttrMask: cfg.AttrMask,
		Sink:     pipelineSink,
		DryRun:   cfg.DryRun,
		Diag:     cfg.Diag,
	}

	runErr := driver.Run(ctx)
	joinErr := join()
	if runErr != nil {
		log.Error("scan aborted during traversal", "error", runErr)
		return nil, runErr
	}
	if joinErr != nil {
		log.Error("scan aborted during pipeline drain", "error", joinErr)
		return nil, joinErr
	}

	if cfg.Sink != nil {
		if err := flushToSink(tree, cfg.Sink); err != nil {
			log.Error("sink flush failed", "error", err)
			return nil, err
		}
	}

	log.Info("scan complete")
	return &Result{Tree: tree}, nil
}

// flushToSink walks every node the scan attached a record to and hands
// each one to s, the role spec.md §1 assigns the external database writer
// ("the core consumes from them only ... a sink that accepts completed
// records").
func flushToSink(tree *seltree.Tree, s sink.Sink) error {
	var walk func(n *seltree.Node) error
	walk = func(n *seltree.Node) error {
		if rec := n.Record(); rec != nil {
			if err := s.Write(rec); err != nil {
				return scanerr.NewResource(fmt.Sprintf("writing record for %s", rec.Path), err)
			}
		}
		for _, child := range n.Children() {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(tree.Root())
}
