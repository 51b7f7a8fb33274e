package scan

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/lucho00cuba/fim/cmd"
	"github.com/lucho00cuba/fim/internal/logger"
)

func init() {
	logger.Init("error", "text", io.Discard)
}

func writeScanConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fim.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanCommandRunsAgainstConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	configPath := writeScanConfig(t, `
[[rule]]
pattern = "^.*$"
kind = "selective"
attrs = ["size"]
`)

	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"scan", root, "--config", configPath})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("scan command failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected scan summary output")
	}
}

func TestScanCommandRequiresConfig(t *testing.T) {
	root := t.TempDir()
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetArgs([]string{"scan", root})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error when --config is missing")
	}
}

func TestScanCommandDryRunEmitsNoSummary(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath := writeScanConfig(t, `
[[rule]]
pattern = "^.*$"
kind = "selective"
attrs = ["size"]
`)

	var buf bytes.Buffer
	rootCmd := cmd.GetRootCmd()
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"scan", root, "--config", configPath, "--dry-run"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("scan command failed: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("MATCH")) {
		t.Fatalf("expected dry-run diagnostics, got: %s", buf.String())
	}
	if bytes.Contains(buf.Bytes(), []byte("scanned ")) {
		t.Fatalf("dry-run printed a scan summary: %s", buf.String())
	}
}
