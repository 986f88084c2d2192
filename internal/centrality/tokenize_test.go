package centrality_test

import (
	"reflect"
	"testing"

	"spyglass/internal/centrality"
)

func TestTokenizeMixedScripts(t *testing.T) {
	tok := centrality.NewTokenizer(nil)

	cases := []struct {
		name  string
		title string
		want  []string
	}{
		{"ascii words", "Learning Go Fast", []string{"learning", "go", "fast"}},
		{"cjk run", "深度学习入门", []string{"深度学习入门"}},
		{"mixed scripts split", "Python数据分析tutorial", []string{"python", "数据分析", "tutorial"}},
		{"digits break runs", "Top10秘诀2026", []string{"top", "秘诀"}},
		{"single chars dropped", "A 好 ok", []string{"ok"}},
		{"fullwidth folds", "ＡＢＣ分析", []string{"abc", "分析"}},
		{"punctuation breaks", "如何学习,编程【完整版】", []string{"如何学习", "编程", "完整版"}},
	}
	for _, tc := range cases {
		if got := tok.Tokenize(tc.title); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: Tokenize(%q) = %v, want %v", tc.name, tc.title, got, tc.want)
		}
	}
}

func TestTokenizeStopWords(t *testing.T) {
	tok := centrality.NewTokenizer([]string{"的", "the", "ＨＯＷ"})

	got := tok.Tokenize("The Secret of Go")
	want := []string{"secret", "of", "go"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}

	// Stop words fold and lowercase before matching.
	got = tok.Tokenize("how to win")
	want = []string{"to", "win"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	tok := centrality.NewTokenizer(nil)
	if got := tok.Tokenize(""); len(got) != 0 {
		t.Fatalf("expected no tokens, got %v", got)
	}
	if got := tok.Tokenize("!!! 123 ---"); len(got) != 0 {
		t.Fatalf("expected no tokens, got %v", got)
	}
}
