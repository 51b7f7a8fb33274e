// Package scan provides the "scan" command, which runs the file integrity
// scan engine end-to-end against a TOML rule config and a root path.
package scan

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lucho00cuba/fim/cmd"
	"github.com/lucho00cuba/fim/internal/config"
	"github.com/lucho00cuba/fim/internal/extract"
	"github.com/lucho00cuba/fim/internal/logger"
	"github.com/lucho00cuba/fim/internal/rule"
	fimscan "github.com/lucho00cuba/fim/internal/scan"
	"github.com/lucho00cuba/fim/internal/seltree"
	"github.com/lucho00cuba/fim/internal/sink"
	"github.com/lucho00cuba/fim/internal/traverse"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [root]",
	Short: "Scan a filesystem tree against a rule configuration",
	Long: `scan walks the given root against the selection rules compiled from
a TOML config file, computing metadata and content digests for every
selected entry and writing the completed records to an output sink.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]
		log := logger.With("command", "scan", "root", root)

		configPath, _ := cmd.Flags().GetString("config")
		if configPath == "" {
			return fmt.Errorf("--config is required")
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		out, _ := cmd.Flags().GetString("output")
		progress, _ := cmd.Flags().GetBool("progress")
		workersFlag, _ := cmd.Flags().GetInt("workers")

		file, rules, err := config.Load(configPath)
		if err != nil {
			log.Error("failed to load scan config", "error", err)
			return fmt.Errorf("loading scan config: %w", err)
		}

		workers := file.Workers
		if cmd.Flags().Changed("workers") {
			workers = workersFlag
		}
		if workers < 0 {
			workers = runtime.NumCPU()
		}

		var diag traverse.DiagnosticSink
		var bar *progressbar.ProgressBar
		if dryRun {
			diag = func(d traverse.Diagnostic) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.Result, d.RelPath)
			}
		} else if progress {
			bar = progressbar.Default(-1, "scanning")
		}

		var outSink sink.Sink
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				log.Error("failed to open output file", "error", err)
				return fmt.Errorf("opening output %q: %w", out, err)
			}
			outSink = sink.NewJSONLines(f)
		}

		log.Info("scan starting", "workers", workers, "rule_count", len(rules))
		start := time.Now()

		res, err := fimscan.Run(cmd.Context(), fimscan.Config{
			Root:         root,
			Rules:        rules,
			AttrMask:     unionAttrMasks(rules),
			Workers:      workers,
			QueueFactor:  file.QueueFactor,
			BufferSize:   file.BufferSize,
			Capabilities: extract.Capabilities{Xattr: file.Xattr},
			DryRun:       dryRun,
			Diag:         diag,
			Sink:         outSink,
		})

		if outSink != nil {
			if cerr := outSink.Close(); cerr != nil {
				log.Warn("failed to close output sink", "error", cerr)
			}
		}
		if err != nil {
			log.Error("scan failed", "error", err, "duration", time.Since(start))
			return err
		}
		if bar != nil {
			_ = bar.Finish()
		}

		duration := time.Since(start)
		count, totalBytes := summarize(res)
		log.Info("scan completed", "duration", duration, "records", count, "bytes", totalBytes)
		if !dryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %s in %s: %d records, %s of content\n",
				root, duration.Round(time.Millisecond), count, humanize.Bytes(uint64(totalBytes)))
		}
		return nil
	},
}

// unionAttrMasks combines every rule's requested attribute mask so the
// traversal driver passes a single mask covering whatever any matching
// rule might need (spec §4.3 treats attr_mask as a property of the
// matched rule; the CLI's extraction call is shared across all matches
// in one traversal, so it requests the union up front).
func unionAttrMasks(rules []*rule.Rule) rule.AttrMask {
	mask := rule.NewAttrMask()
	for _, r := range rules {
		mask = mask.Union(r.AttrMaskVal)
	}
	return mask
}

// summarize walks the resulting tree, counting attached records and
// summing any reported AttrSize value, for the human-readable summary
// line.
func summarize(res *fimscan.Result) (count int, totalBytes int64) {
	if res == nil {
		return 0, 0
	}
	var walk func(n *seltree.Node)
	walk = func(n *seltree.Node) {
		if rec := n.Record(); rec != nil {
			count++
			if sz, ok := rec.Attrs[rule.AttrSize].(int64); ok {
				totalBytes += sz
			}
		}
		for _, child := range n.Children() {
			walk(child)
		}
	}
	walk(res.Tree.Root())
	return count, totalBytes
}

func init() {
	scanCmd.Flags().String("config", "", "Path to a TOML scan-config file (required)")
	scanCmd.Flags().Bool("dry-run", false, "Classify entries without extracting or recording anything")
	scanCmd.Flags().String("output", "", "Write completed records as JSON lines to this file")
	scanCmd.Flags().Bool("progress", false, "Show a progress spinner while scanning")
	scanCmd.Flags().Int("workers", 0, "Worker count (0 = serial mode; overrides the config file's workers)")

	cmd.Register(scanCmd)
}
