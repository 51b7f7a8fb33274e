// Package config loads the TOML scan-config file the fim CLI compiles
// into a rule list and engine parameters. It sits outside the core C1-C5
// boundary (spec.md §1 "the configuration parser that materializes rules"
// is an external collaborator) but is what a runnable binary needs to turn
// a file on disk into the []*rule.Rule and scan.Config the engine expects.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/lucho00cuba/fim/internal/rule"
)

// RuleSpec is one TOML [[rule]] table.
type RuleSpec struct {
	Anchor  string   `toml:"anchor"`
	Pattern string   `toml:"pattern"`
	Kind    string   `toml:"kind"` // "negative", "selective", "equal", "limit"
	Attrs   []string `toml:"attrs"`
	Types   []string `toml:"types"` // "regular", "directory", "symlink", "device", "socket", "fifo"; empty means all
}

// File is the top-level shape of a scan-config TOML document.
type File struct {
	Root        string     `toml:"root"`
	Workers     int        `toml:"workers"`
	QueueFactor int        `toml:"queue_factor"`
	BufferSize  int        `toml:"buffer_size"`
	Xattr       bool       `toml:"xattr"`
	Rules       []RuleSpec `toml:"rule"`
}

var kindTable = map[string]rule.Kind{
	"negative":  rule.Negative,
	"selective": rule.Selective,
	"equal":     rule.Equal,
	"limit":     rule.Limit,
}

var attrTable = map[string]rule.Attr{
	"size":         rule.AttrSize,
	"mode":         rule.AttrMode,
	"owner":        rule.AttrOwner,
	"group":        rule.AttrGroup,
	"link_count":   rule.AttrLinkCount,
	"mtime":        rule.AttrMTime,
	"ctime":        rule.AttrCTime,
	"atime":        rule.AttrATime,
	"inode":        rule.AttrInode,
	"device":       rule.AttrDevice,
	"link_target":  rule.AttrLinkTarget,
	"xattr":        rule.AttrXattr,
	"acl":          rule.AttrACL,
	"security":     rule.AttrSecurityLabel,
	"blake3":       rule.AttrDigestBLAKE3,
	"sha256":       rule.AttrDigestSHA256,
	"sha512":       rule.AttrDigestSHA512,
}

var fileTypeTable = map[string]rule.FileType{
	"regular":   rule.FileRegular,
	"directory": rule.FileDirectory,
	"symlink":   rule.FileSymlink,
	"device":    rule.FileDevice,
	"socket":    rule.FileSocket,
	"fifo":      rule.FileFIFO,
}

// Load parses a scan-config TOML file and compiles its rule table into
// rule.Rule values, the "list of compiled rules" the core consumes
// (spec.md §6).
func Load(path string) (*File, []*rule.Rule, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, nil, fmt.Errorf("decoding scan config %q: %w", path, err)
	}

	rules := make([]*rule.Rule, 0, len(f.Rules))
	for i, spec := range f.Rules {
		r, err := compileRuleSpec(spec)
		if err != nil {
			return nil, nil, fmt.Errorf("rule[%d] (%s): %w", i, spec.Pattern, err)
		}
		rules = append(rules, r)
	}
	return &f, rules, nil
}

func compileRuleSpec(spec RuleSpec) (*rule.Rule, error) {
	kind, ok := kindTable[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown rule kind %q", spec.Kind)
	}

	attrs := make([]rule.Attr, 0, len(spec.Attrs))
	for _, a := range spec.Attrs {
		attr, ok := attrTable[a]
		if !ok {
			return nil, fmt.Errorf("unknown attribute %q", a)
		}
		attrs = append(attrs, attr)
	}
	mask := rule.NewAttrMask(attrs...)

	types := rule.FileAll
	if len(spec.Types) > 0 {
		types = 0
		for _, ft := range spec.Types {
			typ, ok := fileTypeTable[ft]
			if !ok {
				return nil, fmt.Errorf("unknown file type %q", ft)
			}
			types |= typ
		}
	}

	return rule.Compile(spec.Anchor, spec.Pattern, kind, mask, types)
}
