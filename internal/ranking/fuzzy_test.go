package ranking

import "testing"

func TestScoreEmptyInputs(t *testing.T) {
	m := NewMatcher()
	if s, spans := m.Score("", "firefox"); s != 0 || spans != nil {
		t.Errorf("Empty query should score 0, got %f %v", s, spans)
	}
	if s, _ := m.Score("ff", ""); s != 0 {
		t.Errorf("Empty target should score 0, got %f", s)
	}
}

func TestScoreNoMatch(t *testing.T) {
	m := NewMatcher()
	if s, _ := m.Score("zzz", "firefox"); s != 0 {
		t.Errorf("Expected 0 for non-match, got %f", s)
	}
}

func TestScoreExactIsOne(t *testing.T) {
	m := NewMatcher()
	s, spans := m.Score("firefox", "firefox")
	if s != 1 {
		t.Errorf("Exact match should score 1, got %f", s)
	}
	if len(spans) != 1 || spans[0] != [2]int{0, 7} {
		t.Errorf("Unexpected spans: %v", spans)
	}
}

func TestScoreBounds(t *testing.T) {
	m := NewMatcher()
	for _, target := range []string{"Firefox", "file forker", "f", "ffmpeg"} {
		s, _ := m.Score("ff", target)
		if s < 0 || s > 1 {
			t.Errorf("Score(ff, %q) = %f out of [0,1]", target, s)
		}
	}
}

func TestScoreMatchIsPositive(t *testing.T) {
	m := NewMatcher()
	if s, _ := m.Score("ffx", "firefox"); s <= 0 {
		t.Errorf("Matching subsequence should score > 0, got %f", s)
	}
}

func TestSpansAreContiguousRuns(t *testing.T) {
	spans := spansFromIndexes([]int{0, 1, 4, 5, 6})
	want := [][2]int{{0, 2}, {4, 7}}
	if len(spans) != len(want) {
		t.Fatalf("Expected %v, got %v", want, spans)
	}
	for i := range want {
		if spans[i] != want[i] {
			t.Errorf("Span %d: expected %v, got %v", i, want[i], spans[i])
		}
	}
}
