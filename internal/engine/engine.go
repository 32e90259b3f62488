package engine

import (
	"context"
	"strings"
	"time"

	"github.com/ziadkadry99/sitechat/internal/config"
	"github.com/ziadkadry99/sitechat/internal/llm"
	"github.com/ziadkadry99/sitechat/internal/vectordb"
)

// defaultSessionTTL evicts chat sessions after an hour of inactivity.
const defaultSessionTTL = time.Hour

// Engine answers questions about ingested websites. One-shot queries
// go through a TTL response cache; chat sessions carry history.
type Engine struct {
	store        vectordb.Store
	provider     llm.Provider
	model        string
	topK         int
	historyLimit int
	sessions     SessionStore
	cache        *responseCache
}

// New creates an Engine. A nil sessions store gets an in-memory store
// with the default TTL.
func New(store vectordb.Store, provider llm.Provider, cfg *config.Config, sessions SessionStore) *Engine {
	if sessions == nil {
		sessions = NewMemorySessionStore(defaultSessionTTL)
	}
	return &Engine{
		store:        store,
		provider:     provider,
		model:        cfg.Model,
		topK:         cfg.Retrieval.TopK,
		historyLimit: cfg.Retrieval.HistoryLimit,
		sessions:     sessions,
		cache: newResponseCache(
			time.Duration(cfg.Cache.TTLMinutes)*time.Minute,
			cfg.Cache.MaxEntries,
		),
	}
}

// QueryOptions tune a single query. Zero values fall back to the
// engine's configuration.
type QueryOptions struct {
	TopK        int              `json:"top_k,omitempty"`
	Model       string           `json:"model,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	Filter      *vectordb.Filter `json:"filter,omitempty"`

	// NoCache skips the response cache for this query. It does not
	// participate in the cache key.
	NoCache bool `json:"-"`
}

// Source points at a page that contributed context to an answer.
type Source struct {
	URL   string  `json:"url"`
	Title string  `json:"title"`
	Score float32 `json:"score"`
}

// QueryResponse is the answer to a one-shot query.
type QueryResponse struct {
	Answer       string   `json:"answer"`
	Sources      []Source `json:"sources"`
	Model        string   `json:"model,omitempty"`
	Cached       bool     `json:"cached"`
	InputTokens  int      `json:"input_tokens,omitempty"`
	OutputTokens int      `json:"output_tokens,omitempty"`
}

// ChatReply is the assistant's turn in a chat session.
type ChatReply struct {
	Content string   `json:"content"`
	Sources []Source `json:"sources"`
	Model   string   `json:"model,omitempty"`
}

// Query answers a standalone question against a namespace. Identical
// questions with identical options are served from the cache until the
// TTL expires.
func (e *Engine) Query(ctx context.Context, namespace, question string, opts QueryOptions) (*QueryResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &ContextRetrievalError{Namespace: namespace, Err: errEmptyQuestion}
	}

	key := cacheKey(namespace, question, opts)
	if !opts.NoCache {
		if cached, ok := e.cache.get(key); ok {
			cached.Cached = true
			return cached, nil
		}
	}

	matches, err := e.retrieve(ctx, namespace, question, opts.TopK, opts.Filter)
	if err != nil {
		return nil, err
	}

	messages := buildMessages(question, matches, nil, 0)
	resp, err := e.complete(ctx, messages, opts, nil)
	if err != nil {
		return nil, err
	}

	answer := &QueryResponse{
		Answer:       strings.TrimSpace(resp.Content),
		Sources:      collectSources(matches),
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}
	if !opts.NoCache {
		e.cache.put(key, *answer)
	}
	return answer, nil
}

// CreateSession starts a new chat session bound to a namespace.
func (e *Engine) CreateSession(namespace string) *Session {
	return e.sessions.Create(namespace)
}

// History returns every message exchanged in the session.
func (e *Engine) History(sessionID string) ([]ChatMessage, error) {
	sess, err := e.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

// DeleteSession removes a session and its history.
func (e *Engine) DeleteSession(sessionID string) error {
	return e.sessions.Delete(sessionID)
}

// Sessions lists the live sessions, oldest first.
func (e *Engine) Sessions() []*Session {
	return e.sessions.List()
}

// SendMessage runs one chat turn: retrieve context for the message,
// generate a reply with the session's recent history, and record both
// sides in the session.
func (e *Engine) SendMessage(ctx context.Context, sessionID, text string) (*ChatReply, error) {
	return e.chat(ctx, sessionID, text, nil)
}

// StreamMessage is SendMessage with incremental delivery. History is
// only recorded once the full reply has been generated.
func (e *Engine) StreamMessage(ctx context.Context, sessionID, text string, onDelta llm.DeltaFunc) (*ChatReply, error) {
	return e.chat(ctx, sessionID, text, onDelta)
}

func (e *Engine) chat(ctx context.Context, sessionID, text string, onDelta llm.DeltaFunc) (*ChatReply, error) {
	text = strings.TrimSpace(text)
	sess, err := e.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	matches, err := e.retrieve(ctx, sess.Namespace, text, 0, nil)
	if err != nil {
		return nil, err
	}

	messages := buildMessages(text, matches, sess.Messages, e.historyLimit)
	resp, err := e.complete(ctx, messages, QueryOptions{}, onDelta)
	if err != nil {
		return nil, err
	}

	reply := &ChatReply{
		Content: strings.TrimSpace(resp.Content),
		Sources: collectSources(matches),
		Model:   resp.Model,
	}

	now := time.Now()
	if err := e.sessions.Append(sessionID,
		ChatMessage{Role: llm.RoleUser, Content: text, CreatedAt: now},
		ChatMessage{Role: llm.RoleAssistant, Content: reply.Content, CreatedAt: now},
	); err != nil {
		return nil, err
	}
	return reply, nil
}

func (e *Engine) retrieve(ctx context.Context, namespace, question string, topK int, filter *vectordb.Filter) ([]vectordb.Match, error) {
	if topK <= 0 {
		topK = e.topK
	}
	matches, err := e.store.Query(ctx, namespace, question, topK, filter)
	if err != nil {
		return nil, &ContextRetrievalError{Namespace: namespace, Err: err}
	}
	return matches, nil
}

func (e *Engine) complete(ctx context.Context, messages []llm.Message, opts QueryOptions, onDelta llm.DeltaFunc) (*llm.CompletionResponse, error) {
	model := opts.Model
	if model == "" {
		model = e.model
	}
	req := llm.CompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	var (
		resp *llm.CompletionResponse
		err  error
	)
	if onDelta != nil {
		resp, err = llm.StreamOrComplete(ctx, e.provider, req, onDelta)
	} else {
		resp, err = e.provider.Complete(ctx, req)
	}
	if err != nil {
		return nil, &ResponseGenerationError{Provider: e.provider.Name(), Err: err}
	}
	return resp, nil
}

// collectSources dedupes matches by page URL, preserving score order.
func collectSources(matches []vectordb.Match) []Source {
	seen := make(map[string]bool)
	var sources []Source
	for _, m := range matches {
		if seen[m.Metadata.SourceURL] {
			continue
		}
		seen[m.Metadata.SourceURL] = true
		sources = append(sources, Source{
			URL:   m.Metadata.SourceURL,
			Title: m.Metadata.Title,
			Score: m.Score,
		})
	}
	return sources
}
