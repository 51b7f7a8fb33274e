package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lucho00cuba/fim/internal/rule"
)

func fullMask() rule.AttrMask {
	return rule.NewAttrMask(
		rule.AttrSize, rule.AttrMode, rule.AttrOwner, rule.AttrGroup,
		rule.AttrLinkCount, rule.AttrMTime, rule.AttrCTime, rule.AttrATime,
		rule.AttrInode, rule.AttrDevice, rule.AttrLinkTarget,
		rule.AttrDigestBLAKE3, rule.AttrDigestSHA256, rule.AttrDigestSHA512,
	)
}

func TestExtractRegularFilePopulatesDigestsAndMeta(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	meta, err := CaptureRawMeta(path)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Kind != rule.FileRegular {
		t.Fatalf("kind = %v, want FileRegular", meta.Kind)
	}

	ex := New(0, 0, Capabilities{})
	rec, err := ex.Extract(meta, fullMask())
	if err != nil {
		t.Fatal(err)
	}
	if rec.Partial {
		t.Fatalf("record unexpectedly partial: %s", rec.ErrorKind)
	}
	if rec.Attrs[rule.AttrSize] != int64(11) {
		t.Fatalf("size = %v, want 11", rec.Attrs[rule.AttrSize])
	}
	for _, a := range rule.DigestAttrs {
		if len(rec.Digests[a]) == 0 {
			t.Fatalf("digest %v not populated", a)
		}
	}
}

func TestExtractSymlinkClearsDigestsAndCapturesTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.txt")
	if err := os.WriteFile(target, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	meta, err := CaptureRawMeta(link)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Kind != rule.FileSymlink {
		t.Fatalf("kind = %v, want FileSymlink", meta.Kind)
	}

	ex := New(0, 0, Capabilities{})
	rec, err := ex.Extract(meta, fullMask())
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Digests) != 0 {
		t.Fatalf("symlink record has digests: %v", rec.Digests)
	}
	if rec.Attrs[rule.AttrLinkTarget] != target {
		t.Fatalf("link target = %v, want %v", rec.Attrs[rule.AttrLinkTarget], target)
	}
}

func TestExtractDirectorySkipsDigests(t *testing.T) {
	dir := t.TempDir()
	meta, err := CaptureRawMeta(dir)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Kind != rule.FileDirectory {
		t.Fatalf("kind = %v, want FileDirectory", meta.Kind)
	}

	ex := New(0, 0, Capabilities{})
	rec, err := ex.Extract(meta, fullMask())
	if err != nil {
		t.Fatal(err)
	}
	if rec.Partial {
		t.Fatalf("directory record unexpectedly partial")
	}
	if len(rec.Digests) != 0 {
		t.Fatalf("directory record has digests: %v", rec.Digests)
	}
}

func TestExtractUnreadableFileProducesPartialRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locked.txt")
	if err := os.WriteFile(path, []byte("secret"), 0o000); err != nil {
		t.Fatal(err)
	}
	if os.Geteuid() == 0 {
		t.Skip("root can read files regardless of mode")
	}

	meta, err := CaptureRawMeta(path)
	if err != nil {
		t.Fatal(err)
	}

	ex := New(0, 0, Capabilities{})
	rec, err := ex.Extract(meta, fullMask())
	if err != nil {
		t.Fatalf("Extract returned hard error for an openable-path failure: %v", err)
	}
	if !rec.Partial {
		t.Fatalf("expected partial record for unreadable file")
	}
	if rec.ErrorKind != "content_unreadable" {
		t.Fatalf("error kind = %q, want content_unreadable", rec.ErrorKind)
	}
}

func TestExtractRejectsEmptyPath(t *testing.T) {
	ex := New(0, 0, Capabilities{})
	_, err := ex.Extract(RawMeta{}, fullMask())
	if err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestExtractAppliesSupportedAttrsIntersection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	meta, err := CaptureRawMeta(path)
	if err != nil {
		t.Fatal(err)
	}

	ex := New(0, 0, Capabilities{})
	rec, err := ex.Extract(meta, rule.NewAttrMask(rule.AttrACL))
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Attrs) != 0 {
		t.Fatalf("unsupported attribute leaked through: %v", rec.Attrs)
	}
}
