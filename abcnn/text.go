package abcnn

import (
	_ "embed"
	"regexp"
	"strings"
)

//go:embed stopwords.txt
var stopwordsRaw string

var stopwords = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(stopwordsRaw) {
		set[w] = struct{}{}
	}
	return set
}()

// cleanupRule is a single ordered rewrite applied during tokenization.
type cleanupRule struct {
	pattern *regexp.Regexp
	repl    string
}

// cleanupRules normalize question text before splitting into words.
// The rules expand common English contractions, space out punctuation
// that carries meaning ("!", ":", arithmetic signs) and drop the rest.
// Order matters: contraction rewrites must run before apostrophes are
// stripped, and the whitespace collapse must run last.
var cleanupRules = []cleanupRule{
	{regexp.MustCompile(`[^A-Za-z0-9^,!./'+\-=:]`), " "},
	{regexp.MustCompile(`what's`), "what is "},
	{regexp.MustCompile(`'s`), " "},
	{regexp.MustCompile(`'ve`), " have "},
	{regexp.MustCompile(`can't`), "cannot "},
	{regexp.MustCompile(`n't`), " not "},
	{regexp.MustCompile(`i'm`), "i am "},
	{regexp.MustCompile(`'re`), " are "},
	{regexp.MustCompile(`'d`), " would "},
	{regexp.MustCompile(`'ll`), " will "},
	{regexp.MustCompile(`,`), " "},
	{regexp.MustCompile(`\.`), " "},
	{regexp.MustCompile(`!`), " ! "},
	{regexp.MustCompile(`/`), " "},
	{regexp.MustCompile(`\^`), " ^ "},
	{regexp.MustCompile(`\+`), " + "},
	{regexp.MustCompile(`-`), " - "},
	{regexp.MustCompile(`=`), " = "},
	{regexp.MustCompile(`'`), " "},
	{regexp.MustCompile(`(\d+)k`), "${1}000"},
	{regexp.MustCompile(`:`), " : "},
	{regexp.MustCompile(` e g `), " eg "},
	{regexp.MustCompile(` b g `), " bg "},
	{regexp.MustCompile(` u s `), " american "},
	{regexp.MustCompile(` 9 11 `), "911"},
	{regexp.MustCompile(`e - mail`), "email"},
	{regexp.MustCompile(`j k`), "jk"},
	{regexp.MustCompile(`\s{2,}`), " "},
}

// Tokenize lowercases the text, applies the cleanup rewrites and splits
// the result into words.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	for _, rule := range cleanupRules {
		text = rule.pattern.ReplaceAllString(text, rule.repl)
	}
	return strings.Fields(text)
}

// RemoveStopWords filters out English stop words, preserving order.
func RemoveStopWords(words []string) []string {
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := stopwords[w]; !ok {
			kept = append(kept, w)
		}
	}
	return kept
}
