package domain

import "testing"

func TestKeywordAutomatonMatch(t *testing.T) {
	a := newKeywordAutomaton([]string{"ads", "track", "tracker", "拼音", ""})
	if a.size() != 4 {
		t.Fatalf("expected 4 keywords, got %d", a.size())
	}

	tests := []struct {
		name    string
		text    string
		matched bool
	}{
		{"exact keyword", "ads", true},
		{"inside label", "myads.example.com", true},
		{"fail transition", "tractracker.net", true},
		{"overlap", "trackads", true},
		{"unicode keyword", "测试拼音是否匹配", true},
		{"partial only", "trac.example.com", false},
		{"non match", "example.com", false},
	}

	for _, tt := range tests {
		if got := a.match(tt.text); got != tt.matched {
			t.Errorf("%s: match(%s) = %t, want %t", tt.name, tt.text, got, tt.matched)
		}
	}
}

func TestKeywordAutomatonEmpty(t *testing.T) {
	a := newKeywordAutomaton(nil)
	if a.match("anything") {
		t.Fatal("expected empty automaton not to match")
	}
	var nilAutomaton *keywordAutomaton
	if nilAutomaton.match("anything") || nilAutomaton.size() != 0 {
		t.Fatal("expected nil automaton to be empty")
	}
}
