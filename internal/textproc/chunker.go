package textproc

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Strategy selects how CreateChunks segments a page of text.
type Strategy string

const (
	StrategyTokens    Strategy = "tokens"
	StrategySentences Strategy = "sentences"

	defaultOverlapTokens = 200
)

// Chunk is one token-bounded segment of a source page, ready for embedding.
// IDs are unique per call; re-chunking the same text produces new IDs.
type Chunk struct {
	ID         string `json:"chunk_id"`
	Index      int    `json:"chunk_index"`
	Text       string `json:"text"`
	SourceFile string `json:"source_file"`
	PageNumber int    `json:"page_number"`
	TokenCount int    `json:"token_count"`
	WordCount  int    `json:"word_count"`
	CharCount  int    `json:"char_count"`
}

// Chunker splits normalized text into chunks with a configurable
// token overlap carried across chunk boundaries.
type Chunker struct {
	overlapTokens int
}

func NewChunker(overlapTokens int) *Chunker {
	if overlapTokens < 0 {
		overlapTokens = defaultOverlapTokens
	}
	return &Chunker{overlapTokens: overlapTokens}
}

// CountTokens counts whitespace-delimited tokens.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// OptimalChunkSize picks the target chunk size from the total document
// token count: short documents get smaller chunks so they are not
// under-fragmented, long ones get larger chunks.
func OptimalChunkSize(text string) int {
	total := CountTokens(text)
	switch {
	case total < 3000:
		return 500
	case total < 10000:
		return 800
	default:
		return 1000
	}
}

// CreateChunks splits text using the selected strategy. Empty or
// whitespace-only text yields no chunks. Chunk boundaries are
// deterministic for identical inputs; only the generated IDs differ.
func (c *Chunker) CreateChunks(text, sourceFile string, pageNumber int, strategy Strategy) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	size := OptimalChunkSize(text)
	if strategy == StrategySentences {
		return c.chunkBySentences(text, sourceFile, pageNumber, size)
	}
	return c.chunkByTokens(text, sourceFile, pageNumber, size)
}

func (c *Chunker) chunkByTokens(text, sourceFile string, pageNumber, chunkSize int) []Chunk {
	tokens := strings.Fields(text)
	overlap := c.overlapTokens
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}

	var chunks []Chunk
	index := 0
	for start := 0; start < len(tokens); start += chunkSize - overlap {
		end := start + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, newChunk(tokens[start:end], index, sourceFile, pageNumber))
		index++
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

func (c *Chunker) chunkBySentences(text, sourceFile string, pageNumber, maxTokens int) []Chunk {
	// A large overlap against a small tier would leave no room for new
	// sentences, so the carried context is capped at a quarter chunk.
	overlap := c.overlapTokens
	if overlap > maxTokens/4 {
		overlap = maxTokens / 4
	}

	var chunks []Chunk
	var current []string
	index := 0

	emit := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, newChunk(current, index, sourceFile, pageNumber))
		index++
	}

	for _, sentence := range SplitSentences(text) {
		words := strings.Fields(sentence)
		if len(words) == 0 {
			continue
		}

		// A single sentence longer than the budget is hard-split so no
		// chunk can ever exceed maxTokens.
		if len(words) > maxTokens {
			emit()
			current = nil
			for start := 0; start < len(words); start += maxTokens {
				end := start + maxTokens
				if end > len(words) {
					end = len(words)
				}
				current = words[start:end]
				if end < len(words) {
					emit()
					current = nil
				}
			}
			continue
		}

		if len(current)+len(words) <= maxTokens {
			current = append(current, words...)
			continue
		}

		emit()
		seed := tailTokens(current, overlap)
		if len(seed)+len(words) > maxTokens {
			seed = tailTokens(seed, maxTokens-len(words))
		}
		current = append(append([]string{}, seed...), words...)
	}
	emit()
	return chunks
}

func newChunk(tokens []string, index int, sourceFile string, pageNumber int) Chunk {
	text := strings.Join(tokens, " ")
	return Chunk{
		ID:         uuid.NewString(),
		Index:      index,
		Text:       text,
		SourceFile: sourceFile,
		PageNumber: pageNumber,
		TokenCount: len(tokens),
		WordCount:  len(tokens),
		CharCount:  len(text),
	}
}

func tailTokens(tokens []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if len(tokens) <= n {
		return tokens
	}
	return tokens[len(tokens)-n:]
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

// SplitSentences splits on sentence-ending punctuation. A trailing
// fragment without terminal punctuation is kept as its own sentence;
// text with no punctuation at all is one sentence.
func SplitSentences(text string) []string {
	locs := sentenceRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	sentences := make([]string, 0, len(locs)+1)
	for _, loc := range locs {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
	}
	if rest := strings.TrimSpace(text[locs[len(locs)-1][1]:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
