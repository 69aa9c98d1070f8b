// Package router is the top-level dispatcher: it resolves each inbound
// message to exactly one action and orchestrates the temporal parser,
// classifier, log store, summary aggregator, and the LLM collaborator into
// one reply string. Collaborator failures never escape; every call site
// applies a documented static fallback.
package router

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pbaille/jot/internal/classify"
	"github.com/pbaille/jot/internal/domain"
	"github.com/pbaille/jot/internal/journal"
	"github.com/pbaille/jot/internal/llm"
	"github.com/pbaille/jot/internal/summary"
	"github.com/pbaille/jot/internal/temporal"
	"go.uber.org/zap"
)

const (
	// turnWindow bounds the conversation history kept for reply continuity.
	turnWindow = 5

	// summaryLimit is the condensed-status length convention (runes).
	summaryLimit = 15

	defaultPersona = "你是一個親切的生活記錄助手，回覆簡短自然。"

	// defaultMaxReply caps conversation replies at the outbound channel's
	// message limit.
	defaultMaxReply = 500

	fallbackPhrase = "記下來了！"
	busyReply      = "😵 我現在有點忙，等等再聊！"
	nothingToUndo  = "⚠️ 沒有可刪除的紀錄"
)

// Fetcher enriches URL-bearing messages with page text for summarization.
type Fetcher interface {
	Fetch(rawURL string) (string, error)
	FindURL(text string) (string, bool)
}

// Router processes one message at a time. A mutex serializes Handle so
// concurrent transport delivery cannot interleave two messages: the
// conversation window stays consistent and "most recent entry" undo
// semantics hold across in-flight requests.
type Router struct {
	mu         sync.Mutex
	store      *journal.Store
	classifier *classify.Classifier
	collab     llm.Collaborator
	fetcher    Fetcher
	logger     *zap.Logger
	persona    string
	maxReply   int
	now        func() time.Time
	turns      []domain.Turn
}

// Option tweaks Router construction.
type Option func(*Router)

// WithPersona overrides the dialogue persona.
func WithPersona(p string) Option {
	return func(r *Router) { r.persona = p }
}

// WithMaxReply overrides the conversation reply cap (runes).
func WithMaxReply(n int) Option {
	return func(r *Router) { r.maxReply = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithFetcher enables URL text enrichment.
func WithFetcher(f Fetcher) Option {
	return func(r *Router) { r.fetcher = f }
}

// New wires a Router. collab must not be nil; use llm.Unavailable when no
// collaborator is configured.
func New(store *journal.Store, classifier *classify.Classifier, collab llm.Collaborator, logger *zap.Logger, opts ...Option) *Router {
	r := &Router{
		store:      store,
		classifier: classifier,
		collab:     collab,
		logger:     logger,
		persona:    defaultPersona,
		maxReply:   defaultMaxReply,
		now:        time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Handle processes one inbound message to completion and returns the reply.
// Messages are handled strictly one at a time, collaborator calls included.
func (r *Router) Handle(ctx context.Context, text string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	d := Detect(text, now)
	r.logger.Info("message routed", zap.String("intent", d.Intent.String()))

	switch d.Intent {
	case IntentUndo:
		return r.handleUndo(d)
	case IntentBacklog:
		return r.handleLog(ctx, d.Payload, domain.KindBacklog, now)
	case IntentSummary:
		return r.handleSummary(d)
	case IntentInstant:
		return r.handleLog(ctx, d.Payload, domain.KindInstant, now)
	default:
		return r.handleConversation(ctx, d.Payload)
	}
}

func (r *Router) handleUndo(d Decision) string {
	target := r.store.Undo(d.UndoToken)
	if target == nil {
		return nothingToUndo
	}
	return fmt.Sprintf("🗑 已刪除：%s %s", target.EventTimeDisplay, target.Summary)
}

func (r *Router) handleSummary(d Decision) string {
	entries := r.store.QueryRange(d.Range.Start, d.Range.End)
	return summary.Render(entries, d.Range.Label)
}

// handleLog runs the shared backlog/instant pipeline: resolve the activity
// time, classify, condense, phrase, append, confirm.
func (r *Router) handleLog(ctx context.Context, text string, kind domain.Kind, now time.Time) string {
	var res temporal.Resolution
	if kind == domain.KindBacklog {
		res = temporal.Parse(text, now)
	} else {
		// Instant entries happen at authoring time.
		t := now.UTC()
		local := now.In(temporal.RefZone)
		res = temporal.Resolution{
			Display: local.Format("2006-01-02 15:04"),
			Instant: &t,
		}
	}

	cls := r.classifier.Classify(ctx, text)

	entry := &domain.LogEntry{
		Kind:             kind,
		CreatedAt:        now.UTC(),
		EventTime:        res.Instant,
		EventTimeDisplay: res.Display,
		RawText:          text,
		Summary:          r.summarize(ctx, text),
		Modules:          cls.Modules,
		Tags:             cls.Tags,
	}
	r.store.Append(entry)

	phrase, err := r.collab.Phrase(ctx, text, kind == domain.KindBacklog)
	if err != nil {
		r.logger.Warn("phrase collaborator failed", zap.Error(err))
		phrase = fallbackPhrase
	}

	header := "📝 已記錄"
	if kind == domain.KindBacklog {
		header = "📝 已補記"
	}

	var sb strings.Builder
	sb.WriteString(header)
	fmt.Fprintf(&sb, "\n🕰 %s", entry.EventTimeDisplay)
	fmt.Fprintf(&sb, "\n📌 %s", entry.Summary)
	fmt.Fprintf(&sb, "\n🏷 模組：%s", joinModules(entry.Modules))
	fmt.Fprintf(&sb, "\n🔖 標籤：%s", joinTags(entry.Tags))
	fmt.Fprintf(&sb, "\n💬 %s", phrase)
	return sb.String()
}

// summarize condenses text via the collaborator, enriching with fetched page
// text when the message carries a URL. Failure falls back to the truncated
// raw text.
func (r *Router) summarize(ctx context.Context, text string) string {
	input := text
	if r.fetcher != nil {
		if u, ok := r.fetcher.FindURL(text); ok {
			if page, err := r.fetcher.Fetch(u); err == nil {
				input = text + "\n" + page
			} else {
				r.logger.Warn("url fetch failed", zap.String("url", u), zap.Error(err))
			}
		}
	}

	s, err := r.collab.Summarize(ctx, input)
	if err != nil {
		r.logger.Warn("summarize collaborator failed", zap.Error(err))
		return truncateRunes(text, summaryLimit)
	}
	return truncateRunes(strings.TrimRight(s, "。.!！?？"), summaryLimit)
}

func (r *Router) handleConversation(ctx context.Context, text string) string {
	r.pushTurn(domain.Turn{Role: "user", Content: text})

	reply, err := r.collab.Chat(ctx, r.persona, r.turns)
	if err != nil {
		r.logger.Warn("dialogue collaborator failed", zap.Error(err))
		return busyReply
	}

	reply = truncateRunes(reply, r.maxReply)
	r.pushTurn(domain.Turn{Role: "assistant", Content: reply})
	return reply
}

// pushTurn appends to the rolling window, dropping the oldest turns past the
// bound.
func (r *Router) pushTurn(t domain.Turn) {
	r.turns = append(r.turns, t)
	if len(r.turns) > turnWindow {
		r.turns = r.turns[len(r.turns)-turnWindow:]
	}
}

// Turns exposes a copy of the conversation window, for tests and debugging.
func (r *Router) Turns() []domain.Turn {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Turn, len(r.turns))
	copy(out, r.turns)
	return out
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func joinModules(ms []domain.Module) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = string(m)
	}
	return strings.Join(parts, "/")
}

func joinTags(tags []domain.Tag) string {
	if len(tags) == 0 {
		return "無"
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, "/")
}
