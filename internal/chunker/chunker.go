// Package chunker splits document text into overlapping fixed-size segments
// for embedding and retrieval.
package chunker

import "strings"

// DefaultSeparator is the word separator used when splitting and rejoining text.
const DefaultSeparator = " "

// Split breaks text into chunks of at most targetSize characters, greedily
// accumulating separator-delimited words. When a chunk closes, the next chunk
// is seeded with the trailing overlap characters of the closed chunk, so
// consecutive chunks share context. The overlap is measured in characters of
// the closed chunk's tail and may split a word; chunk boundaries are
// word-preserving, not byte-exact windows.
//
// Sizes and the overlap window count runes, not bytes, so multi-byte text is
// never cut mid-character.
//
// A single word longer than targetSize becomes its own chunk. Empty input
// yields no chunks. Split is a pure function of its inputs.
func Split(text string, targetSize, overlap int, separator string) []string {
	if separator == "" {
		separator = DefaultSeparator
	}

	words := strings.Split(text, separator)
	sep := []rune(separator)

	var chunks []string
	var current []rune

	for _, word := range words {
		w := []rune(word)
		if len(current)+len(w)+1 > targetSize {
			if len(current) > 0 {
				chunks = append(chunks, string(current))

				if overlap > 0 {
					start := len(current) - overlap
					if start < 0 {
						start = 0
					}
					seed := append([]rune(nil), current[start:]...)
					seed = append(seed, sep...)
					current = append(seed, w...)
				} else {
					current = append(current[:0], w...)
				}
			} else {
				// A lone word exceeding targetSize becomes its own chunk.
				chunks = append(chunks, word)
			}
		} else {
			if len(current) > 0 {
				current = append(current, sep...)
			}
			current = append(current, w...)
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}

	return chunks
}
