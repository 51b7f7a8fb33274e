package extract

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"io"

	"github.com/lucho00cuba/fim/internal/rule"
	"github.com/zeebo/blake3"
)

// newHasher returns a fresh hash.Hash for the given digest attribute.
func newHasher(attr rule.Attr) hash.Hash {
	switch attr {
	case rule.AttrDigestBLAKE3:
		return blake3.New()
	case rule.AttrDigestSHA256:
		return sha256.New()
	case rule.AttrDigestSHA512:
		return sha512.New()
	default:
		return nil
	}
}

// streamDigests reads r once through a shared buffer, feeding every
// requested digest algorithm's hasher in the same pass (spec §4.3: "the
// extractor streams the file through all requested algorithms in a single
// pass, reusing one buffer").
func streamDigests(r io.Reader, buf []byte, attrs []rule.Attr) (map[rule.Attr][]byte, int64, error) {
	hashers := make(map[rule.Attr]hash.Hash, len(attrs))
	for _, a := range attrs {
		if h := newHasher(a); h != nil {
			hashers[a] = h
		}
	}

	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			for _, h := range hashers {
				if _, werr := h.Write(buf[:n]); werr != nil {
					return nil, total, werr
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, total, err
		}
	}

	out := make(map[rule.Attr][]byte, len(hashers))
	for a, h := range hashers {
		out[a] = h.Sum(nil)
	}
	return out, total, nil
}
