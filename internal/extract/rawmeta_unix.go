//go:build linux

package extract

import (
	"os"
	"syscall"
)

// populatePlatformFields fills in the owner/group/inode/device fields
// exposed by syscall.Stat_t on Linux.
func populatePlatformFields(meta *RawMeta, info os.FileInfo) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	meta.UID = st.Uid
	meta.GID = st.Gid
	meta.LinkCount = uint64(st.Nlink)
	meta.Inode = st.Ino
	meta.Device = uint64(st.Dev)
	meta.ChangeTime = st.Ctim.Sec*1e9 + st.Ctim.Nsec
	meta.AccessTime = st.Atim.Sec*1e9 + st.Atim.Nsec
}
