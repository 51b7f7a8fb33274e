//go:build !linux

package extract

import "os"

// populatePlatformFields is a no-op on platforms where syscall.Stat_t's
// layout isn't uniform enough to rely on here; owner/group/inode/device
// attributes are simply reported as unavailable (zero) rather than
// guessed at.
func populatePlatformFields(meta *RawMeta, info os.FileInfo) {}
