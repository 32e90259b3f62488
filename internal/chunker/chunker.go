package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
)

// Chunk is a bounded segment of a source document. Overlap is the number of
// bytes at the start of Text that were carried over from the previous chunk;
// stripping it from every chunk after the first reconstructs the source.
type Chunk struct {
	Text    string
	Index   int
	Overlap int
}

var (
	spaceRuns = regexp.MustCompile(`[ \t]+`)
	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// Clean normalizes raw text before hashing and chunking: collapses runs of
// spaces and tabs, strips trailing whitespace per line, and caps consecutive
// blank lines at one. Identical pages with cosmetic whitespace differences
// clean to identical text.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spaceRuns.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	text = strings.Join(lines, "\n")

	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Hash returns the hex SHA-256 of the text. Callers hash the whole cleaned
// source, not individual chunks, so a document hashes identically regardless
// of chunk boundaries.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Split divides text into chunks of at most maxSize bytes, breaking on
// sentence boundaries. Each chunk after the first starts with the last
// overlap bytes of the previous chunk (rounded down to a rune boundary) for
// continuity across boundaries. A single sentence longer than maxSize is
// emitted as its own oversized chunk rather than truncated. Empty input
// yields no chunks.
func Split(text string, maxSize, overlap int) []Chunk {
	if maxSize < 1 {
		maxSize = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)

	var chunks []Chunk
	var buf strings.Builder
	bufOverlap := 0

	flush := func() string {
		out := buf.String()
		chunks = append(chunks, Chunk{Text: out, Index: len(chunks), Overlap: bufOverlap})
		buf.Reset()
		if overlap > 0 {
			tail := tailRunes(out, overlap)
			buf.WriteString(tail)
			bufOverlap = len(tail)
		} else {
			bufOverlap = 0
		}
		return out
	}

	for _, sentence := range sentences {
		if buf.Len() > bufOverlap && buf.Len()+len(sentence) > maxSize {
			flush()
		}
		buf.WriteString(sentence)
	}
	if buf.Len() > bufOverlap {
		chunks = append(chunks, Chunk{Text: buf.String(), Index: len(chunks), Overlap: bufOverlap})
	}

	return chunks
}

// splitSentences cuts text after terminal punctuation followed by whitespace.
// The trailing whitespace stays attached to the sentence it follows, so
// concatenating all sentences reproduces the input byte for byte.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		// Consume any run of closing punctuation and whitespace after the
		// terminator so it belongs to this sentence.
		j := i + 1
		for j < len(runes) && (isTerminal(runes[j]) || runes[j] == ')' || runes[j] == '"' || runes[j] == '\'') {
			j++
		}
		if j < len(runes) && !unicode.IsSpace(runes[j]) {
			continue // e.g. "3.14" or "e.g.x" — not a boundary
		}
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		sentences = append(sentences, string(runes[start:j]))
		start = j
		i = j - 1
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// tailRunes returns the last n bytes of s, extended down to the nearest rune
// boundary so the overlap never splits a multi-byte character.
func tailRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := len(s) - n
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[cut:]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
