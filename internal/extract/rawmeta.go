// Package extract implements the attribute extractor (C3): given a path,
// a desired attribute mask, and the raw metadata already captured by the
// traversal driver, it produces a completed record or a structured
// partial-failure marker — never a panic, never a crashed worker.
package extract

import (
	"os"

	"github.com/lucho00cuba/fim/internal/rule"
)

// RawMeta is the uninterpreted output of a single metadata syscall on a
// path (spec §3 "Raw-metadata record"). It is the extractor's input and
// is never stored long-term — only the completed Record survives past C3.
type RawMeta struct {
	Path       string
	Kind       rule.FileType
	Mode       os.FileMode
	Size       int64
	ModTime    int64 // unix nanoseconds
	LinkTarget string

	// Platform-specific fields, populated by rawmeta_unix.go on Linux
	// through syscall.Stat_t and left zero elsewhere.
	UID, GID   uint32
	LinkCount  uint64
	Inode      uint64
	Device     uint64
	ChangeTime int64
	AccessTime int64
}

// CaptureRawMeta performs the single link-following-disabled stat syscall
// the spec requires (spec §6 "link-following-disabled stat") and classifies
// the entry kind. Symlinks are classified by their own metadata, never
// followed (spec §4.4 "Ordering").
func CaptureRawMeta(path string) (RawMeta, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return RawMeta{}, err
	}

	meta := RawMeta{
		Path:    path,
		Mode:    info.Mode(),
		Size:    info.Size(),
		ModTime: info.ModTime().UnixNano(),
		Kind:    classifyKind(info.Mode()),
	}
	populatePlatformFields(&meta, info)

	if meta.Kind == rule.FileSymlink {
		target, err := os.Readlink(path)
		if err != nil {
			return meta, err
		}
		meta.LinkTarget = target
	}
	return meta, nil
}

func classifyKind(mode os.FileMode) rule.FileType {
	switch {
	case mode&os.ModeSymlink != 0:
		return rule.FileSymlink
	case mode.IsDir():
		return rule.FileDirectory
	case mode&os.ModeNamedPipe != 0:
		return rule.FileFIFO
	case mode&os.ModeSocket != 0:
		return rule.FileSocket
	case mode&os.ModeDevice != 0:
		return rule.FileDevice
	default:
		return rule.FileRegular
	}
}
