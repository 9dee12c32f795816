package textproc

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "punctuation", input: "Hello, World!!!", want: "hello world"},
		{name: "accents kept", input: "Economia BRASILEIRA: ação", want: "economia brasileira ação"},
		{name: "decomposed accents composed", input: "ação", want: "ação"},
		{name: "whitespace", input: "  foo\n\tbar  ", want: "foo bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenSetDeduplicates(t *testing.T) {
	set := TokenSet("The the THE cat.")
	if len(set) != 2 {
		t.Fatalf("expected 2 distinct tokens, got %d", len(set))
	}
	if _, ok := set["the"]; !ok {
		t.Error("expected 'the' in token set")
	}
}

func TestJoinSkipsBlank(t *testing.T) {
	if got := Join("Title", "  ", "", "Desc "); got != "Title Desc" {
		t.Errorf("Join = %q", got)
	}
	if got := Join("", " "); got != "" {
		t.Errorf("expected empty join, got %q", got)
	}
}
