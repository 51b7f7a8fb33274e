//go:build !linux

package extract

import "errors"

// readXattrs is unsupported outside linux; callers only reach it behind
// Capabilities.Xattr, so this surfaces as a partial record rather than a
// crash.
func readXattrs(path string) (map[string][]byte, error) {
	return nil, errors.New("xattr capture not supported on this platform")
}
