// Package chat runs one assistant turn end to end: moderation, deterministic
// planning, prompt assembly, and reply generation. Everything up to the
// provider call is deterministic; when no provider is configured or the call
// fails, a canned reply derived from the plan is returned instead.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/stockunlock/stockunlock/internal/chat/prompts"
	"github.com/stockunlock/stockunlock/internal/conversation"
	"github.com/stockunlock/stockunlock/internal/llm"
	"github.com/stockunlock/stockunlock/internal/news"
	"github.com/stockunlock/stockunlock/pkg/models"
)

// Headlines is the slice of the news feed the service needs.
type Headlines interface {
	CompanyHeadlines(ctx context.Context, market models.MarketMode, terms []string, limit int) ([]models.NewsItem, error)
}

var _ Headlines = (*news.Feed)(nil)

// Options configures a Service.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Moderation  bool
	NewsMax     int
}

// Service wires the planner to the optional provider and news feed.
type Service struct {
	planner  *conversation.Planner
	provider llm.Provider // nil means canned replies only
	news     Headlines    // nil disables headline context
	opts     Options
}

// NewService creates a turn service. provider and headlines may be nil.
func NewService(planner *conversation.Planner, provider llm.Provider, headlines Headlines, opts Options) *Service {
	return &Service{planner: planner, provider: provider, news: headlines, opts: opts}
}

// TurnResult is the outcome of one turn.
type TurnResult struct {
	Reply     string          `json:"reply"`
	Decision  models.Decision `json:"decision"`
	Generated bool            `json:"generated"` // true when the reply came from the model
}

// TurnChunk is one streamed fragment of a turn: the decision first, then
// text deltas, then a done marker. Err reports a mid-stream provider failure
// after deltas were already emitted.
type TurnChunk struct {
	Decision *models.Decision `json:"decision,omitempty"`
	Delta    string           `json:"delta,omitempty"`
	Done     bool             `json:"done"`
	Err      error            `json:"-"`
}

// Respond runs one turn over the full message history. The last user-role
// message is the turn being answered; everything before it is history.
func (s *Service) Respond(ctx context.Context, messages []models.ChatMessage) (*TurnResult, error) {
	history, latest := splitLatestUser(messages)

	if flagged := s.moderated(ctx, latest); flagged {
		return &TurnResult{Reply: prompts.ModerationDenialReply}, nil
	}

	decision := s.planner.PlanTurn(ctx, history, latest)

	// No market chosen and not a selection: fixed greeting, no model call.
	if decision.Action == models.ActionAskMarket {
		return &TurnResult{Reply: prompts.ChooseMarketReply, Decision: decision}, nil
	}

	system, err := prompts.ForDecision(decision)
	if err != nil {
		return nil, err
	}
	system = prompts.WithNews(system, s.headlines(ctx, decision))

	if s.provider != nil {
		reply, err := s.generate(ctx, system, messages)
		if err == nil {
			return &TurnResult{Reply: reply, Decision: decision, Generated: true}, nil
		}
		log.Printf("chat: generation failed, using canned reply: %v", err)
	}

	return &TurnResult{Reply: cannedReply(decision), Decision: decision}, nil
}

// moderated checks the latest user text when moderation is enabled. A
// moderation outage fails open: the turn proceeds.
func (s *Service) moderated(ctx context.Context, latest string) bool {
	if !s.opts.Moderation || s.provider == nil || latest == "" {
		return false
	}
	res, err := s.provider.Moderate(ctx, latest)
	if err != nil {
		log.Printf("chat: moderation check failed: %v", err)
		return false
	}
	return res.Flagged
}

// headlines fetches company headlines for turns that resolved a stock.
func (s *Service) headlines(ctx context.Context, d models.Decision) []models.NewsItem {
	if s.news == nil {
		return nil
	}

	var terms []string
	switch {
	case d.US != nil:
		terms = []string{d.US.Symbol, d.US.Quote.Name}
	case d.India != nil:
		terms = []string{d.India.Symbol, d.India.CompanyName}
	default:
		return nil
	}

	items, err := s.news.CompanyHeadlines(ctx, d.Market, terms, s.opts.NewsMax)
	if err != nil {
		log.Printf("chat: headlines unavailable: %v", err)
		return nil
	}
	return items
}

// RespondStream runs one turn like Respond but delivers the reply
// incrementally. The channel carries the decision first, then text deltas,
// then a done marker, and is closed when the turn is over. Turns that never
// reach the model (moderation denial, ask-market, no provider, provider
// failure) arrive as a single canned delta.
func (s *Service) RespondStream(ctx context.Context, messages []models.ChatMessage) (<-chan TurnChunk, error) {
	history, latest := splitLatestUser(messages)

	out := make(chan TurnChunk, 64)

	if flagged := s.moderated(ctx, latest); flagged {
		go emitCanned(out, models.Decision{}, prompts.ModerationDenialReply)
		return out, nil
	}

	decision := s.planner.PlanTurn(ctx, history, latest)

	if decision.Action == models.ActionAskMarket {
		go emitCanned(out, decision, prompts.ChooseMarketReply)
		return out, nil
	}

	system, err := prompts.ForDecision(decision)
	if err != nil {
		close(out)
		return nil, err
	}
	system = prompts.WithNews(system, s.headlines(ctx, decision))

	if s.provider == nil {
		go emitCanned(out, decision, cannedReply(decision))
		return out, nil
	}

	chunks, err := s.provider.ChatStream(ctx, s.assembleMessages(system, messages), s.chatOptions())
	if err != nil {
		log.Printf("chat: stream start failed, using canned reply: %v", err)
		go emitCanned(out, decision, cannedReply(decision))
		return out, nil
	}

	go func() {
		defer close(out)
		out <- TurnChunk{Decision: &decision}

		var emitted bool
		for chunk := range chunks {
			if chunk.Err != nil {
				log.Printf("chat: stream failed: %v", chunk.Err)
				if !emitted {
					// Nothing sent yet: degrade to the canned reply.
					out <- TurnChunk{Delta: cannedReply(decision)}
				} else {
					out <- TurnChunk{Err: chunk.Err}
				}
				out <- TurnChunk{Done: true}
				return
			}
			if chunk.Content != "" {
				emitted = true
				out <- TurnChunk{Delta: chunk.Content}
			}
			if chunk.Done {
				out <- TurnChunk{Done: true}
				return
			}
		}
		out <- TurnChunk{Done: true}
	}()
	return out, nil
}

// emitCanned delivers a non-generated turn as one delta and closes the channel.
func emitCanned(out chan<- TurnChunk, decision models.Decision, reply string) {
	defer close(out)
	out <- TurnChunk{Decision: &decision}
	out <- TurnChunk{Delta: reply}
	out <- TurnChunk{Done: true}
}

func (s *Service) assembleMessages(system string, messages []models.ChatMessage) []llm.Message {
	convo := make([]llm.Message, 0, len(messages)+1)
	convo = append(convo, llm.SystemMessage(system))
	for _, m := range messages {
		convo = append(convo, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	return convo
}

func (s *Service) chatOptions() *llm.ChatOptions {
	return &llm.ChatOptions{
		Model:       s.opts.Model,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	}
}

func (s *Service) generate(ctx context.Context, system string, messages []models.ChatMessage) (string, error) {
	resp, err := s.provider.Chat(ctx, s.assembleMessages(system, messages), s.chatOptions())
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("chat: empty completion")
	}
	return resp.Content, nil
}

// splitLatestUser separates the most recent user-role message from the rest.
// Messages after it (a trailing assistant message, say) stay in history.
func splitLatestUser(messages []models.ChatMessage) ([]models.ChatMessage, string) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			history := make([]models.ChatMessage, 0, len(messages)-1)
			history = append(history, messages[:i]...)
			history = append(history, messages[i+1:]...)
			return history, messages[i].Content
		}
	}
	return messages, ""
}

// cannedReply phrases a decision without a model.
func cannedReply(d models.Decision) string {
	switch d.Action {
	case models.ActionAcknowledgeSelection:
		if d.Market == models.MarketIN {
			return "You're researching Indian NIFTY 500 stocks. Type a company name or symbol, like HDFC Bank or TCS."
		}
		return "You're researching US stocks. Type a stock symbol, like AAPL or MSFT."

	case models.ActionAnalyzeUS:
		if d.US != nil {
			return fmt.Sprintf("Here is the latest data for %s: price %.2f. Indicators and returns are attached.", d.US.Symbol, d.US.Quote.Price)
		}
		return fmt.Sprintf("Live data is not available right now for %s. Please double-check the symbol.", d.Turn.Text)

	case models.ActionResolveIndia:
		if d.India != nil {
			return fmt.Sprintf("%s (%s) is in the NIFTY 500 list. Fundamentals are attached.", d.India.CompanyName, d.India.Symbol)
		}
		return fmt.Sprintf("%q is not part of the NIFTY 500 list in the current version. Please enter a stock that is part of NIFTY 500.", d.Turn.Text)

	case models.ActionAskClarification:
		if d.Market == models.MarketUS {
			return "Please type a single uppercase US stock symbol, like AAPL."
		}
		return "Which NIFTY 500 company or symbol would you like to research?"
	}
	return prompts.ChooseMarketReply
}
