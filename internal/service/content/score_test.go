package content

import "testing"

func TestWordBoundaryScore(t *testing.T) {
	s := WordBoundaryStrategy{}

	cases := []struct {
		name  string
		trend string
		entry Entry
		want  int
	}{
		{
			name:  "counts title and summary",
			trend: "eclipse",
			entry: Entry{Title: "Eclipse watchers gather", Summary: "The eclipse peaks at noon."},
			want:  2,
		},
		{
			name:  "case insensitive",
			trend: "NASA",
			entry: Entry{Title: "nasa launches probe"},
			want:  1,
		},
		{
			name:  "no partial word matches",
			trend: "art",
			entry: Entry{Title: "Martha departs the party"},
			want:  0,
		},
		{
			name:  "multi word trend",
			trend: "World Cup",
			entry: Entry{Title: "World Cup final set", Summary: "The World Cup ends Sunday."},
			want:  2,
		},
		{
			name:  "empty trend",
			trend: "",
			entry: Entry{Title: "anything"},
			want:  0,
		},
		{
			name:  "regex metacharacters are literal",
			trend: "d.c",
			entry: Entry{Title: "Protests in d.c today", Summary: "dec weather"},
			want:  1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Score(tc.trend, tc.entry); got != tc.want {
				t.Errorf("Score(%q) = %d, want %d", tc.trend, got, tc.want)
			}
		})
	}
}

func TestSubstringScore(t *testing.T) {
	s := SubstringStrategy{}

	entry := Entry{Title: "Martha departs the party", Summary: "art everywhere"}
	if got := s.Score("art", entry); got != 4 {
		t.Errorf("expected 4 substring hits, got %d", got)
	}

	if got := s.Score("", entry); got != 0 {
		t.Errorf("expected 0 for empty trend, got %d", got)
	}
}

func TestStrategyFor(t *testing.T) {
	if got := StrategyFor("substring").Name(); got != "substring" {
		t.Errorf("expected substring strategy, got %s", got)
	}
	if got := StrategyFor("word").Name(); got != "word" {
		t.Errorf("expected word strategy, got %s", got)
	}
	if got := StrategyFor("").Name(); got != "word" {
		t.Errorf("expected word default, got %s", got)
	}
}
