package extract

import (
	"fmt"
	"os"

	"github.com/lucho00cuba/fim/internal/logger"
	"github.com/lucho00cuba/fim/internal/rule"
	"github.com/lucho00cuba/fim/internal/scanerr"
	"github.com/lucho00cuba/fim/internal/seltree"
)

// DefaultBufferSize is the read buffer size used when streaming file
// content through the requested digest algorithms.
const DefaultBufferSize = 256 * 1024

// SupportedAttrs is the set of attributes this extractor can ever
// populate; Extract computes attr_mask ∩ SupportedAttrs per spec §4.3.
var SupportedAttrs = rule.NewAttrMask(
	rule.AttrSize, rule.AttrMode, rule.AttrOwner, rule.AttrGroup,
	rule.AttrLinkCount, rule.AttrMTime, rule.AttrCTime, rule.AttrATime,
	rule.AttrInode, rule.AttrDevice, rule.AttrLinkTarget,
	rule.AttrDigestBLAKE3, rule.AttrDigestSHA256, rule.AttrDigestSHA512,
	rule.AttrXattr,
)

// Capabilities toggles optional, potentially unsupported attribute
// groups (spec §4.3: "each behind a capability flag"). ACL and security
// label capture are recognized by the spec but have no supported
// extraction path on this platform yet; SupportedAttrs omits them so
// they are silently dropped at the attr_mask ∩ SupportedAttrs step
// rather than reported as partial failures on every record.
type Capabilities struct {
	Xattr bool
}

// Extractor is C3. One Extractor is owned by exactly one pipeline worker
// goroutine; its read buffer is reused across requests and never shared,
// matching the "thread-local ... reused across requests" resource model
// in spec §5.
type Extractor struct {
	buf  []byte
	caps Capabilities
	id   int
}

// New returns an Extractor with its own read buffer. bufferSize <= 0
// selects DefaultBufferSize.
func New(id int, bufferSize int, caps Capabilities) *Extractor {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Extractor{buf: make([]byte, bufferSize), caps: caps, id: id}
}

// Extract turns raw metadata plus an attribute mask into a completed
// record (spec §4.3). It never returns an error for per-entry I/O
// failures — those are folded into a partial record — only for the
// unrecoverable case the caller must drop the request entirely for
// (spec: "bad path encoding ... drop the request and log").
func (e *Extractor) Extract(meta RawMeta, mask rule.AttrMask) (*seltree.Record, error) {
	if meta.Path == "" {
		return nil, scanerr.NewStructural("extract called with empty path", nil)
	}

	effective := mask.Intersect(SupportedAttrs)
	log := logger.Worker("extract", e.id).With("path", meta.Path)

	rec := &seltree.Record{
		Path:    meta.Path,
		Kind:    meta.Kind,
		Attrs:   map[rule.Attr]any{},
		Digests: map[rule.Attr][]byte{},
	}
	e.populateMetaAttrs(rec, meta, effective)

	switch meta.Kind {
	case rule.FileSymlink:
		if effective.Has(rule.AttrLinkTarget) {
			rec.Attrs[rule.AttrLinkTarget] = meta.LinkTarget
		}
		return rec, nil
	case rule.FileDirectory, rule.FileDevice, rule.FileSocket, rule.FileFIFO:
		return rec, nil
	}

	digestAttrs := requestedDigests(effective)
	if len(digestAttrs) == 0 {
		return rec, nil
	}

	f, err := os.Open(meta.Path)
	if err != nil {
		log.Warn("failed to open file for digesting", "error", err)
		rec.Partial = true
		rec.ErrorKind = "content_unreadable"
		return rec, nil
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Warn("failed to close file", "error", cerr)
		}
	}()

	digests, _, err := streamDigests(f, e.buf, digestAttrs)
	if err != nil {
		log.Warn("failed to read file content", "error", err)
		rec.Partial = true
		rec.ErrorKind = "content_unreadable"
		return rec, nil
	}
	rec.Digests = digests
	return rec, nil
}

func requestedDigests(mask rule.AttrMask) []rule.Attr {
	var out []rule.Attr
	for _, a := range rule.DigestAttrs {
		if mask.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

func (e *Extractor) populateMetaAttrs(rec *seltree.Record, meta RawMeta, mask rule.AttrMask) {
	if mask.Has(rule.AttrSize) {
		rec.Attrs[rule.AttrSize] = meta.Size
	}
	if mask.Has(rule.AttrMode) {
		rec.Attrs[rule.AttrMode] = meta.Mode
	}
	if mask.Has(rule.AttrOwner) {
		rec.Attrs[rule.AttrOwner] = meta.UID
	}
	if mask.Has(rule.AttrGroup) {
		rec.Attrs[rule.AttrGroup] = meta.GID
	}
	if mask.Has(rule.AttrLinkCount) {
		rec.Attrs[rule.AttrLinkCount] = meta.LinkCount
	}
	if mask.Has(rule.AttrMTime) {
		rec.Attrs[rule.AttrMTime] = meta.ModTime
	}
	if mask.Has(rule.AttrCTime) {
		rec.Attrs[rule.AttrCTime] = meta.ChangeTime
	}
	if mask.Has(rule.AttrATime) {
		rec.Attrs[rule.AttrATime] = meta.AccessTime
	}
	if mask.Has(rule.AttrInode) {
		rec.Attrs[rule.AttrInode] = meta.Inode
	}
	if mask.Has(rule.AttrDevice) {
		rec.Attrs[rule.AttrDevice] = meta.Device
	}
	if mask.Has(rule.AttrXattr) {
		if !e.caps.Xattr {
			return
		}
		xattrs, err := readXattrs(meta.Path)
		if err != nil {
			logger.Worker("extract", e.id).Warn("xattr read failed", "path", meta.Path, "error", err)
			rec.Partial = true
			rec.ErrorKind = appendErrorKind(rec.ErrorKind, "xattr_unreadable")
			return
		}
		if len(xattrs) > 0 {
			rec.Attrs[rule.AttrXattr] = xattrs
		}
	}
}

func appendErrorKind(existing, add string) string {
	if existing == "" {
		return add
	}
	return fmt.Sprintf("%s,%s", existing, add)
}
