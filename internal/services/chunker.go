package services

import (
	"strings"
	"unicode/utf8"
)

const defaultChunkSize = 1500

// TextChunker splits transcripts into embedding-sized pieces.
type TextChunker interface {
	ChunkText(text string, maxChunkSize int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText packs blank-line separated blocks into chunks of at most
// maxChunkSize runes. A block larger than that is split on sentence ends,
// and a single oversized sentence is cut by runes.
func (tc *textChunker) ChunkText(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = defaultChunkSize
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
	)

	flush := func() {
		if size > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}

	add := func(piece, sep string) {
		n := utf8.RuneCountInString(piece)
		if size > 0 && size+len(sep)+n > maxChunkSize {
			flush()
		}
		if size > 0 {
			current.WriteString(sep)
			size += len(sep)
		}
		current.WriteString(piece)
		size += n
	}

	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if utf8.RuneCountInString(block) <= maxChunkSize {
			add(block, "\n\n")
			continue
		}

		flush()
		for _, sentence := range splitIntoSentences(block) {
			for _, piece := range splitRunes(sentence, maxChunkSize) {
				add(piece, " ")
			}
		}
		flush()
	}
	flush()

	return chunks
}

// splitIntoSentences keeps the terminating punctuation on each sentence.
func splitIntoSentences(text string) []string {
	var (
		out   []string
		start int
	)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func splitRunes(s string, n int) []string {
	runes := []rune(s)
	if len(runes) <= n {
		return []string{s}
	}
	var out []string
	for len(runes) > 0 {
		end := n
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[:end]))
		runes = runes[end:]
	}
	return out
}
