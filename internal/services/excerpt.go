package services

import (
	"regexp"
	"strings"

	"learnpath/internal/config"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// stuckCapsRe splits words that PDF extraction glued together, like
	// "DNAReplication" -> "DNA Replication".
	stuckCapsRe = regexp.MustCompile(`([A-Z]{2,})([A-Z][a-z])`)

	ligatureReplacer = strings.NewReplacer("ﬁ", "fi", "ﬂ", "fl")
)

// CleanText normalizes extracted lesson text: typographic ligatures are
// expanded, run-together capitalized words are split, and all whitespace
// collapses to single spaces.
func CleanText(text string) string {
	text = ligatureReplacer.Replace(text)
	text = stuckCapsRe.ReplaceAllString(text, "$1 $2")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ChunkText splits cleaned text into word chunks of at most maxWords each.
// A non-positive maxWords uses the default chunk size.
func ChunkText(text string, maxWords int) []string {
	if maxWords < 1 {
		maxWords = config.DefaultChunkMaxWords
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for start := 0; start < len(words); start += maxWords {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// BuildExcerpt picks the passage quoted inside a generated question. The
// first sentence is used when it is substantial, a short opener is padded
// with the second sentence, and sentence-free text is cut at a word boundary
// within maxChars. The trailing sentence terminator is dropped because the
// excerpt is embedded mid-question. Never empty for input with any
// non-whitespace content.
func BuildExcerpt(text string, maxChars int) string {
	if maxChars < 1 {
		maxChars = config.DefaultExcerptMaxChars
	}
	cleaned := CleanText(text)
	if cleaned == "" {
		return ""
	}

	sentences := splitSentences(cleaned)

	var excerpt string
	switch {
	case len(sentences) > 0 && len(sentences[0]) >= config.MinFirstSentenceChars:
		excerpt = sentences[0]
	case len(sentences) >= 2:
		excerpt = strings.TrimSpace(sentences[0] + " " + sentences[1])
	case len([]rune(cleaned)) <= maxChars:
		excerpt = cleaned
	default:
		truncated := string([]rune(cleaned)[:maxChars])
		if idx := strings.LastIndexByte(truncated, ' '); idx > 0 {
			truncated = truncated[:idx]
		}
		excerpt = strings.TrimSpace(truncated)
	}

	excerpt = strings.TrimRight(excerpt, " ,;:")
	if n := len(excerpt); n > 0 && (excerpt[n-1] == '.' || excerpt[n-1] == '!' || excerpt[n-1] == '?') {
		excerpt = strings.TrimSpace(excerpt[:n-1])
	}
	if excerpt == "" {
		// Degenerate separator-only input: fall back to the raw cut.
		if runes := []rune(cleaned); len(runes) > maxChars {
			return string(runes[:maxChars])
		}
		return cleaned
	}
	return excerpt
}

// splitSentences splits on a sentence terminator followed by whitespace, the
// terminator staying with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		if (text[i] == '.' || text[i] == '!' || text[i] == '?') && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(text[start:i+1]))
			start = i + 2
			i++
		}
	}
	if start < len(text) {
		sentences = append(sentences, strings.TrimSpace(text[start:]))
	}
	return sentences
}
