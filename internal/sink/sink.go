// Package sink provides the Sink interface the scan engine writes
// completed records to, standing in for the database back-end spec.md §1
// names as an external collaborator ("the database back-end
// (serialization, compression, persisted layout)"). The engine itself
// only ever calls Sink.Write; what happens downstream of that call is
// entirely this package's concern.
package sink

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/lucho00cuba/fim/internal/rule"
	"github.com/lucho00cuba/fim/internal/seltree"
)

// Sink accepts one completed record at a time. The scan engine calls Write
// from a single goroutine once the pipeline has drained; JSONLines also
// serializes Write with a mutex, so it is safe for concurrent use.
type Sink interface {
	Write(rec *seltree.Record) error
	Close() error
}

// line is the JSON-lines wire shape one record is serialized to.
type line struct {
	Path      string            `json:"path"`
	Kind      string            `json:"kind"`
	Partial   bool              `json:"partial,omitempty"`
	ErrorKind string            `json:"error_kind,omitempty"`
	Attrs     map[string]any    `json:"attrs,omitempty"`
	Digests   map[string]string `json:"digests,omitempty"`
}

// JSONLines is a Sink that appends one JSON object per record to w,
// newline-delimited. It plays the role the source's on-disk database
// writer plays, without the compression/persisted-layout concerns
// spec.md explicitly puts out of scope.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
	w   io.WriteCloser
}

// NewJSONLines returns a JSONLines sink writing to w. The caller owns w's
// lifetime; Close calls w.Close().
func NewJSONLines(w io.WriteCloser) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w), w: w}
}

// Write serializes rec as one JSON line.
func (s *JSONLines) Write(rec *seltree.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := line{
		Path:      rec.Path,
		Kind:      kindName(rec.Kind),
		Partial:   rec.Partial,
		ErrorKind: rec.ErrorKind,
	}
	if len(rec.Attrs) > 0 {
		l.Attrs = make(map[string]any, len(rec.Attrs))
		for k, v := range rec.Attrs {
			l.Attrs[attrName(k)] = v
		}
	}
	if len(rec.Digests) > 0 {
		l.Digests = make(map[string]string, len(rec.Digests))
		for k, v := range rec.Digests {
			l.Digests[attrName(k)] = hex.EncodeToString(v)
		}
	}
	if err := s.enc.Encode(l); err != nil {
		return fmt.Errorf("writing record for %s: %w", rec.Path, err)
	}
	return nil
}

// Close closes the underlying writer.
func (s *JSONLines) Close() error {
	return s.w.Close()
}

func kindName(k rule.FileType) string {
	switch k {
	case rule.FileRegular:
		return "regular"
	case rule.FileDirectory:
		return "directory"
	case rule.FileSymlink:
		return "symlink"
	case rule.FileDevice:
		return "device"
	case rule.FileSocket:
		return "socket"
	case rule.FileFIFO:
		return "fifo"
	default:
		return "unknown"
	}
}

func attrName(a rule.Attr) string {
	switch a {
	case rule.AttrSize:
		return "size"
	case rule.AttrMode:
		return "mode"
	case rule.AttrOwner:
		return "owner"
	case rule.AttrGroup:
		return "group"
	case rule.AttrLinkCount:
		return "link_count"
	case rule.AttrMTime:
		return "mtime"
	case rule.AttrCTime:
		return "ctime"
	case rule.AttrATime:
		return "atime"
	case rule.AttrInode:
		return "inode"
	case rule.AttrDevice:
		return "device"
	case rule.AttrLinkTarget:
		return "link_target"
	case rule.AttrXattr:
		return "xattr"
	case rule.AttrACL:
		return "acl"
	case rule.AttrSecurityLabel:
		return "security"
	case rule.AttrDigestBLAKE3:
		return "blake3"
	case rule.AttrDigestSHA256:
		return "sha256"
	case rule.AttrDigestSHA512:
		return "sha512"
	default:
		return fmt.Sprintf("attr_%d", a)
	}
}
