package rule

import "testing"

func mustRule(t *testing.T, anchor, pattern string, kind Kind, types FileType) *Rule {
	t.Helper()
	r, err := Compile(anchor, pattern, kind, NewAttrMask(), types)
	if err != nil {
		t.Fatalf("Compile(%q): %v", pattern, err)
	}
	return r
}

func TestMatchPriority(t *testing.T) {
	set := &Set{}
	set.Add(mustRule(t, "", `^bin/.*$`, Selective, FileAll))
	set.Add(mustRule(t, "", `^bin/secret$`, Negative, FileAll))

	got, r := Match("bin/secret", set, FileRegular)
	if got != NoMatch || r == nil || r.Kind != Negative {
		t.Fatalf("exclude should win over selective, got %v rule=%v", got, r)
	}

	got, r = Match("bin/other", set, FileRegular)
	if got != SelectiveMatch || r == nil {
		t.Fatalf("expected selective match, got %v", got)
	}
}

func TestMatchEqualVsSelective(t *testing.T) {
	set := &Set{}
	set.Add(mustRule(t, "", `^hosts$`, Equal, FileAll))

	got, r := Match("hosts", set, FileRegular)
	if got != EqualMatch || r == nil {
		t.Fatalf("expected equal match, got %v", got)
	}

	got, r = Match("passwd", set, FileRegular)
	if got != NoMatch || r != nil {
		t.Fatalf("expected plain no-match with nil rule, got %v rule=%v", got, r)
	}
}

func TestMatchFileTypeRestriction(t *testing.T) {
	set := &Set{}
	set.Add(mustRule(t, "", `^tmp$`, Selective, FileDirectory))

	got, _ := Match("tmp", set, FileRegular)
	if got != NoMatch {
		t.Fatalf("rule restricted to directories should not match a regular file, got %v", got)
	}

	got, _ = Match("tmp", set, FileDirectory)
	if got != SelectiveMatch {
		t.Fatalf("expected selective match for directory, got %v", got)
	}
}

func TestMatchLimit(t *testing.T) {
	set := &Set{}
	set.Add(mustRule(t, "", `^a/b/.*$`, Limit, FileAll))

	full, reachable := MatchLimit("a/b/1", set)
	if !full || !reachable {
		t.Fatalf("a/b/1 should be fully inside the limit, got full=%v reachable=%v", full, reachable)
	}

	full, reachable = MatchLimit("a", set)
	if full || !reachable {
		t.Fatalf("a should be partially reachable but not fully inside, got full=%v reachable=%v", full, reachable)
	}

	full, reachable = MatchLimit("a/c", set)
	if full || reachable {
		t.Fatalf("a/c should be outside the limit with no reachable descendant, got full=%v reachable=%v", full, reachable)
	}
}

func TestMatchLimitNoRules(t *testing.T) {
	set := &Set{}
	full, reachable := MatchLimit("anything", set)
	if !full || !reachable {
		t.Fatalf("absence of limit rules should never restrict, got full=%v reachable=%v", full, reachable)
	}
}
