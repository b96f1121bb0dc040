package abcnn

import (
	"reflect"
	"testing"
)

func TestTokenizeContractions(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"What's the capital of France?", []string{"what", "is", "the", "capital", "of", "france"}},
		{"I can't believe it", []string{"i", "cannot", "believe", "it"}},
		{"they're not here", []string{"they", "are", "not", "here"}},
		{"I'll go, you'd stay", []string{"i", "will", "go", "you", "would", "stay"}},
	}
	for _, tc := range cases {
		got := Tokenize(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestTokenizePunctuationAndNumbers(t *testing.T) {
	got := Tokenize("Earn 10k fast! e-mail me: now.")
	want := []string{"earn", "10000", "fast", "!", "email", "me", ":", "now"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeKeepsMathSymbols(t *testing.T) {
	got := Tokenize("2+2=4")
	want := []string{"2", "+", "2", "=", "4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestRemoveStopWords(t *testing.T) {
	in := []string{"what", "is", "the", "capital", "of", "france"}
	got := RemoveStopWords(in)
	want := []string{"capital", "france"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RemoveStopWords(%v) = %v, want %v", in, got, want)
	}
}

func TestRemoveStopWordsKeepsOrder(t *testing.T) {
	in := []string{"cook", "pasta", "best", "way"}
	got := RemoveStopWords(in)
	if !reflect.DeepEqual(got, in) {
		t.Errorf("RemoveStopWords dropped non-stop words: %v", got)
	}
}
