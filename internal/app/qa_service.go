package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"smartdocs/internal/model"
	"smartdocs/internal/qa"
	"smartdocs/internal/repository"
	"smartdocs/internal/search"
	"smartdocs/internal/vectorstore"
)

var ErrSessionNotFound = errors.New("session not found")

const historyTurns = 3

// Retriever is the slice of the search engine the QA flow needs.
type Retriever interface {
	Search(ctx context.Context, ns vectorstore.Namespace, query string, k int) ([]search.Result, error)
	KeywordSearch(ctx context.Context, ns vectorstore.Namespace, query string, k int) ([]search.Result, error)
}

// Answerer composes the final answer; qa.Composer satisfies it.
type Answerer interface {
	Compose(ctx context.Context, question string, chunks []search.Result, history []qa.HistoryTurn) (qa.Answer, error)
}

// QAService runs the retrieve-then-answer flow for one user question and
// records the exchange in the session history.
type QAService struct {
	retriever   Retriever
	answerer    Answerer
	sessionRepo *repository.QASessionRepository
	topK        int
}

func NewQAService(retriever Retriever, answerer Answerer, sessionRepo *repository.QASessionRepository, topK int) *QAService {
	if topK <= 0 {
		topK = search.DefaultTopK
	}
	return &QAService{
		retriever:   retriever,
		answerer:    answerer,
		sessionRepo: sessionRepo,
		topK:        topK,
	}
}

type AskInput struct {
	UserID uint
	// SessionID of 0 starts a new session titled after the question.
	SessionID uint
	Question  string
}

type AskResult struct {
	SessionID uint            `json:"session_id"`
	Answer    qa.Answer       `json:"answer"`
	Sources   []search.Result `json:"sources"`
}

// Ask retrieves context for the question and composes a cited answer.
// When vector search is unavailable it degrades to the keyword scan, and
// only when that fails too does the caller see the canned unavailable
// answer. Neither degradation is an error.
func (s *QAService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	question := strings.TrimSpace(input.Question)
	if input.UserID == 0 || question == "" {
		return nil, ErrInvalidInput
	}

	session, err := s.resolveSession(input.UserID, input.SessionID, question)
	if err != nil {
		return nil, err
	}

	history, err := s.loadHistory(session.ID)
	if err != nil {
		log.Printf("qa: load history for session %d failed: %v", session.ID, err)
		history = nil
	}

	ns := vectorstore.UserNamespace(input.UserID)
	results, err := s.retriever.Search(ctx, ns, question, s.topK)
	switch {
	case err == nil:
	case errors.Is(err, search.ErrEmptyQuery):
		return nil, ErrInvalidInput
	case errors.Is(err, search.ErrEmbedding), errors.Is(err, vectorstore.ErrStorage):
		log.Printf("qa: vector search degraded, trying keyword scan: %v", err)
		results, err = s.retriever.KeywordSearch(ctx, ns, question, s.topK)
		if err != nil {
			log.Printf("qa: keyword fallback failed too: %v", err)
			answer := qa.Answer{Answer: qa.AnswerUnavailable, Citations: []qa.Citation{}}
			s.persistTurn(session.ID, input.UserID, question, answer)
			return &AskResult{SessionID: session.ID, Answer: answer, Sources: []search.Result{}}, nil
		}
	default:
		return nil, err
	}

	answer, err := s.answerer.Compose(ctx, question, results, history)
	if err != nil {
		return nil, err
	}

	s.persistTurn(session.ID, input.UserID, question, answer)
	if results == nil {
		results = []search.Result{}
	}
	return &AskResult{SessionID: session.ID, Answer: answer, Sources: results}, nil
}

func (s *QAService) ListSessions(userID uint) ([]model.QASession, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.ListByUser(userID)
}

func (s *QAService) ListTurns(userID, sessionID uint) ([]model.QATurn, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return s.sessionRepo.ListTurns(sessionID)
}

func (s *QAService) resolveSession(userID, sessionID uint, question string) (*model.QASession, error) {
	if sessionID == 0 {
		title := question
		if len(title) > 120 {
			title = title[:120]
		}
		session := &model.QASession{UserID: userID, Title: title}
		if err := s.sessionRepo.Create(session); err != nil {
			return nil, err
		}
		return session, nil
	}

	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *QAService) loadHistory(sessionID uint) ([]qa.HistoryTurn, error) {
	turns, err := s.sessionRepo.RecentTurns(sessionID, historyTurns)
	if err != nil {
		return nil, err
	}
	history := make([]qa.HistoryTurn, len(turns))
	for i, turn := range turns {
		history[i] = qa.HistoryTurn{Question: turn.Question, Answer: turn.Answer}
	}
	return history, nil
}

// persistTurn is best effort: a failed history write never costs the
// user their answer.
func (s *QAService) persistTurn(sessionID, userID uint, question string, answer qa.Answer) {
	citations, err := json.Marshal(answer.Citations)
	if err != nil {
		log.Printf("qa: marshal citations failed: %v", err)
		citations = []byte("[]")
	}
	turn := &model.QATurn{
		SessionID: sessionID,
		UserID:    userID,
		Question:  question,
		Answer:    answer.Answer,
		Citations: string(citations),
	}
	if err := s.sessionRepo.CreateTurn(turn); err != nil {
		log.Printf("qa: persist turn for session %d failed: %v", sessionID, err)
	}
}
