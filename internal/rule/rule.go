// Package rule implements the path matcher (C1): compiled include/
// exclude/limit patterns and the priority evaluation that turns a
// relative path and an entry kind into a MatchResult.
package rule

import (
	"fmt"
	"regexp"
	"regexp/syntax"
	"strings"
)

// Kind is the rule class. Evaluation priority within one node is fixed:
// negative first, then selective, then equal, then limit (spec §4.1).
type Kind int

const (
	Negative Kind = iota
	Selective
	Equal
	Limit
)

func (k Kind) String() string {
	switch k {
	case Negative:
		return "negative"
	case Selective:
		return "selective"
	case Equal:
		return "equal"
	case Limit:
		return "limit"
	default:
		return "unknown"
	}
}

// FileType is a bitset of filesystem entry kinds a rule may apply to.
type FileType uint8

const (
	FileRegular FileType = 1 << iota
	FileDirectory
	FileSymlink
	FileDevice
	FileSocket
	FileFIFO
)

// FileAll permits every entry kind.
const FileAll = FileRegular | FileDirectory | FileSymlink | FileDevice | FileSocket | FileFIFO

// Rule is one compiled include/exclude/limit pattern (spec §3).
type Rule struct {
	// Anchor is the directory prefix (relative to the scan root) at which
	// this rule is active; empty string means the root.
	Anchor string
	// Regex is matched against the path relative to Anchor.
	Regex *regexp.Regexp
	Kind  Kind
	// AttrMaskVal is meaningful only for positive kinds (Selective, Equal).
	AttrMaskVal AttrMask
	FileTypes   FileType

	// literalPrefix is the longest fixed leading text the pattern demands,
	// used to test whether some path below relPath could still satisfy
	// this rule — for Limit rules, whether descending stays admissible;
	// for Selective/Equal rules, whether the selection tree should report
	// PARTIAL_MATCH and keep descending toward an as-yet-unmatched entry.
	// See MayMatchDescendant.
	literalPrefix string
}

// Compile builds a Rule from a pattern string, validating the regex.
func Compile(anchor, pattern string, kind Kind, mask AttrMask, types FileType) (*Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling rule pattern %q: %w", pattern, err)
	}
	return &Rule{
		Anchor:        anchor,
		Regex:         re,
		Kind:          kind,
		AttrMaskVal:   mask,
		FileTypes:     types,
		literalPrefix: literalPrefixOf(pattern),
	}, nil
}

// literalPrefixOf returns the longest fixed leading text an anchored regex
// pattern demands. Go's regexp package offers no native prefix/partial
// matching, so reachability of a limit rule below an as-yet-unmatched
// directory is approximated by comparing literal prefixes instead of
// walking the regex automaton: a deliberate, documented approximation
// (conservative — it may call an actually-dead branch "reachable", which
// only costs an extra descent, never a missed match, see MayMatchDescendant).
func literalPrefixOf(pattern string) string {
	parsed, err := syntax.Parse(strings.TrimPrefix(pattern, "^"), syntax.Perl)
	if err != nil {
		return ""
	}
	parsed = parsed.Simplify()
	return literalPrefixOfNode(parsed)
}

func literalPrefixOfNode(re *syntax.Regexp) string {
	switch re.Op {
	case syntax.OpLiteral:
		return string(re.Rune)
	case syntax.OpConcat:
		var b strings.Builder
		for _, sub := range re.Sub {
			switch sub.Op {
			case syntax.OpLiteral:
				b.WriteString(string(sub.Rune))
			case syntax.OpBeginText, syntax.OpBeginLine:
				continue
			default:
				return b.String()
			}
		}
		return b.String()
	default:
		return ""
	}
}

// MayMatchDescendant reports whether some path having relPath as a proper
// prefix could still satisfy this rule: true when relPath and the rule's
// required literal prefix agree on every character they both cover.
func (r *Rule) MayMatchDescendant(relPath string) bool {
	if r.literalPrefix == "" {
		return true
	}
	return strings.HasPrefix(r.literalPrefix, relPath) || strings.HasPrefix(relPath, r.literalPrefix)
}

// Applies reports whether the rule's file-type restriction permits kind.
func (r *Rule) Applies(kind FileType) bool {
	return r.FileTypes&kind != 0
}

// Set holds one node's rules, bucketed by kind in fixed priority order,
// the form the selection tree stores per-node (spec §3 "three ordered
// lists of rules ... by kind").
type Set struct {
	Negative  []*Rule
	Selective []*Rule
	Equal     []*Rule
	Limit     []*Rule
}

// Add appends r to the list matching its kind.
func (s *Set) Add(r *Rule) {
	switch r.Kind {
	case Negative:
		s.Negative = append(s.Negative, r)
	case Selective:
		s.Selective = append(s.Selective, r)
	case Equal:
		s.Equal = append(s.Equal, r)
	case Limit:
		s.Limit = append(s.Limit, r)
	}
}
