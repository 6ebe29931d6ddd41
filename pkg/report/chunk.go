package report

import (
	"strings"

	"insiderkg/pkg/logger"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultMaxCharacters bounds a single chunk; governance reports run to
	// hundreds of pages and a chunk must fit one extraction call.
	DefaultMaxCharacters = 50000
	// DefaultOverlap is carried from the end of a chunk into the next so
	// that entities split across a boundary appear whole in at least one.
	DefaultOverlap = 100

	defaultEncoding = "o200k_base"
)

// TextChunk is one extraction unit of a report.
type TextChunk struct {
	Index  int
	Text   string
	Tokens int
}

// Chunker splits cleaned report text into overlapping character-bounded
// chunks, preferring paragraph boundaries and falling back to sentence and
// hard splits. Token counts are attached for observability.
type Chunker struct {
	MaxCharacters int
	Overlap       int
	Encoding      string
}

// NewChunker creates a Chunker; non-positive parameters take the defaults.
func NewChunker(maxCharacters, overlap int) *Chunker {
	if maxCharacters <= 0 {
		maxCharacters = DefaultMaxCharacters
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	return &Chunker{
		MaxCharacters: maxCharacters,
		Overlap:       overlap,
		Encoding:      defaultEncoding,
	}
}

// Chunk splits text into ordered chunks. The overlap never exceeds half the
// chunk budget so chunking always makes forward progress.
func (c *Chunker) Chunk(text string) ([]TextChunk, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	overlap := c.Overlap
	if overlap > c.MaxCharacters/2 {
		overlap = c.MaxCharacters / 2
	}

	// Token counts are observability only; chunking proceeds without them
	// when the encoding cannot be loaded.
	enc, err := tiktoken.GetEncoding(c.Encoding)
	if err != nil {
		logger.Warn("Token accounting disabled", "encoding", c.Encoding, "err", err)
		enc = nil
	}

	// A piece must leave room for the overlap carry and the piece separator
	// so an assembled chunk never exceeds MaxCharacters.
	pieceMax := c.MaxCharacters - overlap - 2
	if pieceMax < 1 {
		pieceMax = 1
	}
	pieces := splitPieces(text, pieceMax)

	var chunks []TextChunk
	var current strings.Builder
	var carry string

	flush := func() {
		body := strings.TrimSpace(current.String())
		if body == "" {
			return
		}
		tokens := 0
		if enc != nil {
			tokens = len(enc.Encode(body, nil, nil))
		}
		chunks = append(chunks, TextChunk{
			Index:  len(chunks),
			Text:   body,
			Tokens: tokens,
		})
		if overlap > 0 && len(body) > overlap {
			carry = body[len(body)-overlap:]
		} else {
			carry = ""
		}
		current.Reset()
	}

	for _, piece := range pieces {
		extra := len(piece)
		if current.Len() > 0 {
			extra += 2
		}
		if current.Len()+extra > c.MaxCharacters && current.Len() > 0 {
			flush()
			if carry != "" {
				current.WriteString(carry)
			}
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(piece)
	}
	flush()

	return chunks, nil
}

// splitPieces breaks text into paragraphs; paragraphs longer than the budget
// are split into sentences, and pathological sentences are hard-split.
func splitPieces(text string, maxLen int) []string {
	var pieces []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= maxLen {
			pieces = append(pieces, para)
			continue
		}
		for _, sentence := range splitSentences(para) {
			if len(sentence) <= maxLen {
				pieces = append(pieces, sentence)
				continue
			}
			for len(sentence) > maxLen {
				pieces = append(pieces, sentence[:maxLen])
				sentence = sentence[maxLen:]
			}
			if sentence != "" {
				pieces = append(pieces, sentence)
			}
		}
	}
	return pieces
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i := 0; i < len(text); i++ {
		current.WriteByte(text[i])
		if text[i] == '.' || text[i] == '!' || text[i] == '?' {
			// keep trailing closers with the sentence
			j := i + 1
			for j < len(text) && (text[j] == '"' || text[j] == '\'' || text[j] == ')' || text[j] == ']') {
				current.WriteByte(text[j])
				j++
			}
			sentence := strings.TrimSpace(current.String())
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
			i = j - 1
		}
	}

	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		sentences = append(sentences, remaining)
	}
	return sentences
}
