package qa

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"smartdocs/internal/ai"
	"smartdocs/internal/search"
)

const (
	// AnswerNotFound is returned verbatim when retrieval produced nothing
	// to ground an answer on.
	AnswerNotFound = "Answer not found in documents."

	// AnswerUnavailable is returned verbatim once every completion attempt
	// has failed.
	AnswerUnavailable = "AI service unavailable. Please check your connection or API credits."

	systemPrompt = "You are an expert assistant. Answer ONLY using the provided context. " +
		"At the end of your response, you MUST cite your sources using this exact format: " +
		"[Source: filename.pdf, Page: X]. Do not deviate from this format."

	maxHistoryTurns = 3
	maxAttempts     = 3
	retryDelay      = 5 * time.Second
	attemptTimeout  = 30
)

var citationRe = regexp.MustCompile(`\[Source:\s*(.+?),\s*Page:\s*(\d+)\]`)

// Citation is one source reference parsed out of the model's answer.
type Citation struct {
	SourceFile string `json:"source_file"`
	PageNumber int    `json:"page_number"`
}

// Answer is the composed response. Citations is never nil so JSON
// consumers always see an array.
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// HistoryTurn is one prior question/answer pair replayed into the prompt.
type HistoryTurn struct {
	Question string
	Answer   string
}

// Completer is the completion call; ai.OpenAICompatibleClient satisfies it.
type Completer interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

// Composer turns retrieved chunks plus conversation history into a cited
// answer, with bounded retries against the completion provider.
type Composer struct {
	completer Completer
	cfg       ai.ChatConfig
	delay     time.Duration
}

func NewComposer(completer Completer, cfg ai.ChatConfig) *Composer {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = attemptTimeout
	}
	return &Composer{completer: completer, cfg: cfg, delay: retryDelay}
}

// Compose answers the question from the retrieved chunks. With no chunks
// it returns the canned not-found answer without touching the provider;
// with a provider that keeps failing it returns the canned unavailable
// answer. Neither canned path is an error.
func (c *Composer) Compose(ctx context.Context, question string, chunks []search.Result, history []HistoryTurn) (Answer, error) {
	if len(chunks) == 0 {
		return Answer{Answer: AnswerNotFound, Citations: []Citation{}}, nil
	}

	messages := c.buildMessages(question, chunks, history)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := c.completer.Complete(ctx, c.cfg, messages)
		if err == nil {
			return Answer{Answer: text, Citations: ParseCitations(text)}, nil
		}
		lastErr = err
		log.Printf("qa: completion attempt %d/%d failed: %v", attempt, maxAttempts, err)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return Answer{}, ctx.Err()
		case <-time.After(c.delay):
		}
	}

	log.Printf("qa: all completion attempts failed: %v", lastErr)
	return Answer{Answer: AnswerUnavailable, Citations: []Citation{}}, nil
}

func (c *Composer) buildMessages(question string, chunks []search.Result, history []HistoryTurn) []ai.ChatMessage {
	messages := []ai.ChatMessage{{Role: "system", Content: systemPrompt}}

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, turn := range history {
		messages = append(messages,
			ai.ChatMessage{Role: "user", Content: turn.Question},
			ai.ChatMessage{Role: "assistant", Content: turn.Answer},
		)
	}

	messages = append(messages, ai.ChatMessage{
		Role:    "user",
		Content: fmt.Sprintf("Context:\n%s\n\nQ: %s", FormatContext(chunks), question),
	})
	return messages
}

// FormatContext renders the retrieved chunks as source-labeled blocks,
// one blank line apart, in retrieval order.
func FormatContext(chunks []search.Result) string {
	blocks := make([]string, len(chunks))
	for i, chunk := range chunks {
		blocks[i] = fmt.Sprintf("[Source: %s, Page: %d]\n%s", chunk.SourceFile, chunk.PageNumber, chunk.ChunkText)
	}
	return strings.Join(blocks, "\n\n")
}

// ParseCitations extracts every well-formed citation marker from the
// answer text. Malformed markers are ignored, never an error.
func ParseCitations(text string) []Citation {
	citations := []Citation{}
	for _, match := range citationRe.FindAllStringSubmatch(text, -1) {
		page, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		citations = append(citations, Citation{
			SourceFile: strings.TrimSpace(match[1]),
			PageNumber: page,
		})
	}
	return citations
}
