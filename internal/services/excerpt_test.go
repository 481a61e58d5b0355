package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	t.Run("collapses whitespace", func(t *testing.T) {
		assert.Equal(t, "a b c", CleanText("  a\n\tb   c  "))
	})

	t.Run("expands ligatures", func(t *testing.T) {
		assert.Equal(t, "final flow", CleanText("ﬁnal ﬂow"))
	})

	t.Run("splits stuck capitalized words", func(t *testing.T) {
		assert.Equal(t, "DNA Replication", CleanText("DNAReplication"))
		assert.Equal(t, "PDF This", CleanText("PDFThis"))
	})

	t.Run("plain text is unchanged", func(t *testing.T) {
		assert.Equal(t, "Cells divide by mitosis.", CleanText("Cells divide by mitosis."))
	})

	t.Run("whitespace-only input becomes empty", func(t *testing.T) {
		assert.Empty(t, CleanText("  \n\t "))
	})
}

func TestChunkText(t *testing.T) {
	t.Run("splits on word boundaries", func(t *testing.T) {
		words := make([]string, 120)
		for i := range words {
			words[i] = "w"
		}
		chunks := ChunkText(strings.Join(words, " "), 50)
		require.Len(t, chunks, 3)
		assert.Len(t, strings.Fields(chunks[0]), 50)
		assert.Len(t, strings.Fields(chunks[1]), 50)
		assert.Len(t, strings.Fields(chunks[2]), 20)
	})

	t.Run("short text is a single chunk", func(t *testing.T) {
		chunks := ChunkText("one two three", 50)
		assert.Equal(t, []string{"one two three"}, chunks)
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		assert.Empty(t, ChunkText("   ", 50))
	})

	t.Run("non-positive size uses the default", func(t *testing.T) {
		chunks := ChunkText("one two three", 0)
		assert.Equal(t, []string{"one two three"}, chunks)
	})
}

func TestBuildExcerpt(t *testing.T) {
	t.Run("substantial first sentence, terminator dropped", func(t *testing.T) {
		text := "Photosynthesis converts light energy into chemical energy. Plants do this in chloroplasts."
		excerpt := BuildExcerpt(text, 120)
		assert.Equal(t, "Photosynthesis converts light energy into chemical energy", excerpt)
	})

	t.Run("short opener joins the second sentence", func(t *testing.T) {
		text := "Cells divide. This process produces two identical daughter cells."
		excerpt := BuildExcerpt(text, 120)
		assert.Equal(t, "Cells divide. This process produces two identical daughter cells", excerpt)
	})

	t.Run("sentence-free text within budget is used whole", func(t *testing.T) {
		text := "a short fragment without any terminator"
		assert.Equal(t, text, BuildExcerpt(text, 120))
	})

	t.Run("sentence-free long text cuts at a word boundary", func(t *testing.T) {
		text := strings.Repeat("word ", 60)
		excerpt := BuildExcerpt(text, 120)
		assert.LessOrEqual(t, len([]rune(excerpt)), 120)
		assert.NotEmpty(t, excerpt)
		assert.Equal(t, "word", excerpt[len(excerpt)-4:])
		assert.NotRegexp(t, `[ ,;:.!?]$`, excerpt)
	})

	t.Run("question and exclamation terminators dropped", func(t *testing.T) {
		excerpt := BuildExcerpt("Does photosynthesis happen in every single plant cell type? Mostly.", 120)
		assert.Equal(t, "Does photosynthesis happen in every single plant cell type", excerpt)

		excerpt = BuildExcerpt("Photosynthesis is how plants turn sunlight into usable energy! Amazing.", 120)
		assert.Equal(t, "Photosynthesis is how plants turn sunlight into usable energy", excerpt)
	})

	t.Run("trailing separators are stripped", func(t *testing.T) {
		excerpt := BuildExcerpt("An unusually long first sentence that definitely passes forty characters, trailing;  ", 120)
		assert.NotRegexp(t, `[ ,;:.!?]$`, excerpt)
	})

	t.Run("never empty for non-whitespace input", func(t *testing.T) {
		assert.NotEmpty(t, BuildExcerpt("x", 120))
		assert.NotEmpty(t, BuildExcerpt("a b", 1))
	})

	t.Run("whitespace input yields empty excerpt", func(t *testing.T) {
		assert.Empty(t, BuildExcerpt("   \n ", 120))
	})
}

func TestSplitSentences(t *testing.T) {
	t.Run("splits on terminator plus space", func(t *testing.T) {
		got := splitSentences("One. Two! Three? Four")
		assert.Equal(t, []string{"One.", "Two!", "Three?", "Four"}, got)
	})

	t.Run("keeps abbreviation-free text whole", func(t *testing.T) {
		got := splitSentences("no terminators here")
		assert.Equal(t, []string{"no terminators here"}, got)
	})

	t.Run("trailing terminator stays with the sentence", func(t *testing.T) {
		got := splitSentences("Only one sentence.")
		assert.Equal(t, []string{"Only one sentence."}, got)
	})
}
