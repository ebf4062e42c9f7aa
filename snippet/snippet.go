// Package snippet windows keyword matches out of document text and ranks
// them with a small occurrence-count heuristic. All offsets are in runes.
package snippet

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Itish41/DocIntel/models"
)

// Ellipsis marks a window clipped by the text boundary.
const Ellipsis = "…"

// StartBonus is added when a snippet begins with the keyword.
const StartBonus = 0.5

// Window is one match with its surrounding context.
type Window struct {
	// Core is the text inside the window, without ellipses.
	Core string
	// ClippedStart and ClippedEnd report whether text was cut on either side.
	ClippedStart bool
	ClippedEnd   bool
}

// String renders the window with ellipses on the clipped sides.
func (w Window) String() string {
	var sb strings.Builder
	if w.ClippedStart {
		sb.WriteString(Ellipsis)
	}
	sb.WriteString(w.Core)
	if w.ClippedEnd {
		sb.WriteString(Ellipsis)
	}
	return sb.String()
}

// lowerRunes lowercases rune by rune so offsets stay aligned with the input.
func lowerRunes(s string) []rune {
	rs := []rune(s)
	for i, r := range rs {
		rs[i] = unicode.ToLower(r)
	}
	return rs
}

// indexes returns the rune offsets of every non-overlapping, case-insensitive
// occurrence of keyword in text.
func indexes(text, keyword string) []int {
	if keyword == "" || text == "" {
		return nil
	}
	hay := string(lowerRunes(text))
	needle := string(lowerRunes(keyword))
	needleRunes := utf8.RuneCountInString(needle)

	var out []int
	bytePos, runePos := 0, 0
	for {
		i := strings.Index(hay[bytePos:], needle)
		if i < 0 {
			return out
		}
		runePos += utf8.RuneCountInString(hay[bytePos : bytePos+i])
		out = append(out, runePos)
		bytePos += i + len(needle)
		runePos += needleRunes
	}
}

// Windows returns one window per occurrence of keyword, extending
// snippetLength/2 runes before the match start and after the match end.
// A non-positive snippetLength gives windows that hold only the match.
func Windows(text, keyword string, snippetLength int) []Window {
	starts := indexes(text, keyword)
	if len(starts) == 0 {
		return nil
	}

	half := max(snippetLength/2, 0)
	runes := []rune(text)
	kw := utf8.RuneCountInString(keyword)

	windows := make([]Window, 0, len(starts))
	for _, s := range starts {
		from := max(s-half, 0)
		to := min(s+kw+half, len(runes))
		windows = append(windows, Window{
			Core:         string(runes[from:to]),
			ClippedStart: from > 0,
			ClippedEnd:   to < len(runes),
		})
	}
	return windows
}

// Extract returns the rendered windows for every occurrence of keyword.
func Extract(text, keyword string, snippetLength int) []string {
	windows := Windows(text, keyword, snippetLength)
	out := make([]string, 0, len(windows))
	for _, w := range windows {
		out = append(out, w.String())
	}
	return out
}

// Score counts keyword occurrences in text and adds StartBonus when text
// starts with the keyword, ignoring case.
func Score(text, keyword string) float64 {
	if keyword == "" {
		return 0
	}
	score := float64(len(indexes(text, keyword)))
	if strings.HasPrefix(string(lowerRunes(text)), string(lowerRunes(keyword))) {
		score += StartBonus
	}
	return score
}

// ForDocument builds scored snippets for one document in occurrence order.
// The score is computed over the window text, ellipses excluded.
func ForDocument(documentID, title, author, text, keyword string, snippetLength int) []models.Snippet {
	windows := Windows(text, keyword, snippetLength)
	out := make([]models.Snippet, 0, len(windows))
	for _, w := range windows {
		out = append(out, models.Snippet{
			DocumentID:     documentID,
			DocumentTitle:  title,
			Author:         author,
			SnippetText:    w.String(),
			RelevanceScore: Score(w.Core, keyword),
		})
	}
	return out
}

// Rank orders snippets by score, highest first, keeping discovery order for
// ties, then keeps the first maxResults. A nil or negative maxResults keeps all.
func Rank(snippets []models.Snippet, maxResults *int) []models.Snippet {
	sort.SliceStable(snippets, func(i, j int) bool {
		return snippets[i].RelevanceScore > snippets[j].RelevanceScore
	})
	if maxResults != nil && *maxResults >= 0 && *maxResults < len(snippets) {
		return snippets[:*maxResults]
	}
	return snippets
}
