package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucho00cuba/fim/internal/extract"
	"github.com/lucho00cuba/fim/internal/rule"
	"github.com/lucho00cuba/fim/internal/seltree"
	"github.com/lucho00cuba/fim/internal/traverse"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func runOverFiles(t *testing.T, cfg Config) *seltree.Tree {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "aaa")
	writeFile(t, filepath.Join(dir, "b.txt"), "bbb")

	tree := seltree.New()
	r, err := rule.Compile("", "^.*\\.txt$", rule.Selective, rule.NewAttrMask(rule.AttrSize, rule.AttrDigestSHA256), rule.FileAll)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.InstallRule(r); err != nil {
		t.Fatal(err)
	}
	tree.Freeze()

	p := New(tree, cfg)
	sink, join := p.Sink(context.Background())
	driver := &traverse.Driver{Root: dir, Tree: tree, AttrMask: rule.NewAttrMask(rule.AttrSize, rule.AttrDigestSHA256), Sink: sink}
	if err := driver.Run(context.Background()); err != nil {
		t.Fatalf("driver run failed: %v", err)
	}
	if err := join(); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	return tree
}

func TestSerialModeAttachesAllRecords(t *testing.T) {
	tree := runOverFiles(t, Config{Workers: 0})
	if n := tree.LookupNode("a.txt"); n == nil || n.Record() == nil {
		t.Fatal("a.txt not attached in serial mode")
	}
	if n := tree.LookupNode("b.txt"); n == nil || n.Record() == nil {
		t.Fatal("b.txt not attached in serial mode")
	}
}

func TestPipelinedModeAttachesAllRecords(t *testing.T) {
	tree := runOverFiles(t, Config{Workers: 4, BufferSize: 4096, Capabilities: extract.Capabilities{}})
	if n := tree.LookupNode("a.txt"); n == nil || n.Record() == nil {
		t.Fatal("a.txt not attached in pipelined mode")
	}
	if n := tree.LookupNode("b.txt"); n == nil || n.Record() == nil {
		t.Fatal("b.txt not attached in pipelined mode")
	}
	if len(tree.LookupNode("a.txt").Record().Digests) == 0 {
		t.Fatal("expected digest to be populated")
	}
}
