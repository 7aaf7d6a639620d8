package naming

import (
	"regexp"
	"sort"
	"strings"
)

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Keywords returns the top n tokens of titles by frequency. Tokens are
// lower-cased words longer than two characters; ties keep first-seen order.
func Keywords(titles []string, n int) []string {
	text := strings.ToLower(strings.Join(titles, " "))
	text = nonWordRe.ReplaceAllString(text, " ")

	freq := map[string]int{}
	var order []string
	for _, tok := range whitespaceRe.Split(text, -1) {
		if len(tok) <= 2 {
			continue
		}
		if _, ok := freq[tok]; !ok {
			order = append(order, tok)
		}
		freq[tok]++
	}
	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if n > len(order) {
		n = len(order)
	}
	return order[:n]
}

// TitleCase lower-cases s and upper-cases the first letter of every
// space-separated word.
func TitleCase(s string) string {
	words := strings.Split(strings.ToLower(s), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
