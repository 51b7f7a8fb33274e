package rule

import "github.com/RoaringBitmap/roaring"

// Attr identifies one extractable attribute or digest algorithm. Values are
// small and dense, which is exactly the shape github.com/RoaringBitmap/roaring
// is built for as a bitset.
type Attr uint32

const (
	AttrSize Attr = iota
	AttrMode
	AttrOwner
	AttrGroup
	AttrLinkCount
	AttrMTime
	AttrCTime
	AttrATime
	AttrInode
	AttrDevice
	AttrLinkTarget
	AttrXattr
	AttrACL
	AttrSecurityLabel
	AttrDigestBLAKE3
	AttrDigestSHA256
	AttrDigestSHA512
)

// DigestAttrs lists the attributes that name a content digest algorithm,
// as opposed to a metadata field.
var DigestAttrs = []Attr{AttrDigestBLAKE3, AttrDigestSHA256, AttrDigestSHA512}

// AttrMask is the bitset of attributes a rule requests be extracted on
// match (spec: "attr_mask (bitset of attributes to extract on match)").
type AttrMask struct {
	bits *roaring.Bitmap
}

// NewAttrMask builds a mask containing the given attributes.
func NewAttrMask(attrs ...Attr) AttrMask {
	bm := roaring.NewBitmap()
	for _, a := range attrs {
		bm.Add(uint32(a))
	}
	return AttrMask{bits: bm}
}

// Has reports whether attr is set in the mask.
func (m AttrMask) Has(attr Attr) bool {
	if m.bits == nil {
		return false
	}
	return m.bits.Contains(uint32(attr))
}

// Intersect returns the attributes present in both masks, used by the
// extractor to compute attr_mask ∩ supported_attributes (spec §4.3).
func (m AttrMask) Intersect(other AttrMask) AttrMask {
	if m.bits == nil || other.bits == nil {
		return NewAttrMask()
	}
	return AttrMask{bits: roaring.And(m.bits, other.bits)}
}

// Union returns the attributes present in either mask.
func (m AttrMask) Union(other AttrMask) AttrMask {
	bm := roaring.NewBitmap()
	if m.bits != nil {
		bm.Or(m.bits)
	}
	if other.bits != nil {
		bm.Or(other.bits)
	}
	return AttrMask{bits: bm}
}

// IsEmpty reports whether no attribute is set.
func (m AttrMask) IsEmpty() bool {
	return m.bits == nil || m.bits.IsEmpty()
}

// Attrs returns the set attributes in ascending order.
func (m AttrMask) Attrs() []Attr {
	if m.bits == nil {
		return nil
	}
	raw := m.bits.ToArray()
	out := make([]Attr, len(raw))
	for i, v := range raw {
		out[i] = Attr(v)
	}
	return out
}
