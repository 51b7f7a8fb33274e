// Package pipeline implements the bounded producer/consumer pipeline
// (C5): two bounded queues connecting the traversal driver (C4) to a pool
// of attribute extractors (C3) and a single tree-insertion consumer
// writing completed records into the selection tree (C2).
package pipeline

import (
	"context"
	"log/slog"

	"github.com/lucho00cuba/fim/internal/extract"
	"github.com/lucho00cuba/fim/internal/logger"
	"github.com/lucho00cuba/fim/internal/seltree"
	"github.com/lucho00cuba/fim/internal/traverse"
	"golang.org/x/sync/errgroup"
)

// Config controls worker count and queue depth. A zero Workers runs the
// scan in serial mode: the driver invokes extraction and tree-attach
// synchronously with no queues or goroutines at all (spec §4.5 "serial
// mode").
type Config struct {
	Workers      int
	QueueFactor  int // Q1 capacity is QueueFactor * Workers (spec: "4xN")
	BufferSize   int
	Capabilities extract.Capabilities
}

const defaultQueueFactor = 4

// Pipeline wires C4's output through N C3 workers into a single C2
// inserter via two bounded channels, matching the source's two-queue
// producer/consumer topology (spec §4.5).
type Pipeline struct {
	cfg  Config
	tree *seltree.Tree
}

// New returns a Pipeline over tree using cfg.
func New(tree *seltree.Tree, cfg Config) *Pipeline {
	if cfg.QueueFactor <= 0 {
		cfg.QueueFactor = defaultQueueFactor
	}
	return &Pipeline{cfg: cfg, tree: tree}
}

// Sink returns the traverse.Sink this pipeline exposes to the driver: in
// pipeline mode it enqueues onto Q1; in serial mode it runs extraction
// and attach synchronously and returns any structural error immediately.
func (p *Pipeline) Sink(ctx context.Context) (traverse.Sink, func() error) {
	if p.cfg.Workers <= 0 {
		return p.serialSink(), func() error { return nil }
	}
	return p.pipelinedSink(ctx)
}

func (p *Pipeline) serialSink() traverse.Sink {
	ex := extract.New(0, p.cfg.BufferSize, p.cfg.Capabilities)
	log := logger.Logger().With("component", "pipeline", "mode", "serial")
	return func(_ context.Context, req traverse.Request) error {
		rec, err := ex.Extract(req.Raw, req.AttrMask)
		if err != nil {
			log.Warn("dropping unrecoverable request", "path", req.Path, "error", err)
			return nil
		}
		return p.tree.AttachRecord(rec)
	}
}

// pipelinedSink launches the tree inserter and N worker goroutines and
// returns a Sink that enqueues onto Q1, plus a join function the caller
// must call once the driver finishes traversing (it closes Q1, waits for
// every worker and the inserter, and surfaces the first terminal error).
func (p *Pipeline) pipelinedSink(ctx context.Context) (traverse.Sink, func() error) {
	q1 := make(chan traverse.Request, p.cfg.QueueFactor*p.cfg.Workers)
	q2 := make(chan *seltree.Record, p.cfg.QueueFactor*p.cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	log := logger.Logger().With("component", "pipeline", "mode", "pipelined")

	g.Go(func() error {
		return runInserter(gctx, p.tree, q2, log)
	})

	workers := &errgroup.Group{}
	for i := 0; i < p.cfg.Workers; i++ {
		id := i
		workers.Go(func() error {
			return runWorker(gctx, id, p.cfg, q1, q2, log)
		})
	}
	g.Go(func() error {
		err := workers.Wait()
		close(q2)
		return err
	})

	sink := func(sctx context.Context, req traverse.Request) error {
		select {
		case q1 <- req:
			return nil
		case <-sctx.Done():
			return sctx.Err()
		}
	}

	join := func() error {
		close(q1)
		return g.Wait()
	}
	return sink, join
}

// runWorker drains Q1 until it is closed and empty, extracting each
// request and forwarding the completed record to Q2. It never returns an
// error for a per-entry failure (spec: "C3 never raises through Q2 — it
// encodes failures into the record").
func runWorker(ctx context.Context, id int, cfg Config, q1 <-chan traverse.Request, q2 chan<- *seltree.Record, log *slog.Logger) error {
	ex := extract.New(id, cfg.BufferSize, cfg.Capabilities)
	for {
		select {
		case req, ok := <-q1:
			if !ok {
				return nil
			}
			rec, err := ex.Extract(req.Raw, req.AttrMask)
			if err != nil {
				log.Warn("worker dropping unrecoverable request", "worker_id", id, "path", req.Path, "error", err)
				continue
			}
			select {
			case q2 <- rec:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runInserter drains Q2 until it is closed and empty, attaching every
// completed record to the selection tree. A duplicate-attach structural
// error aborts the scan (spec: "C2 validates the uniqueness invariant and
// aborts on violation").
func runInserter(ctx context.Context, tree *seltree.Tree, q2 <-chan *seltree.Record, log *slog.Logger) error {
	for {
		select {
		case rec, ok := <-q2:
			if !ok {
				return nil
			}
			if err := tree.AttachRecord(rec); err != nil {
				log.Error("tree attach failed", "path", rec.Path, "error", err)
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
