// Package conversation implements the deterministic per-turn decision core:
// a stateless resolver that replays message history to classify the active
// market and the latest turn, and a planner that turns that classification
// into an action. No language-model involvement anywhere in this package.
package conversation

import (
	"strings"

	"github.com/stockunlock/stockunlock/pkg/models"
)

// Default classifier thresholds, overridable via Options / config.
const (
	DefaultSymbolMinLen = 1
	DefaultSymbolMaxLen = 15
)

// DefaultGreetingKeywords is the help-keyword set that counts as a greeting
// when no market has been chosen yet.
var DefaultGreetingKeywords = []string{"hi", "hello", "help", "stock", "analyse", "analyze", "research"}

// Market-selection phrase sets. Exact phrases must equal the whole trimmed
// lowercased message; contains phrases may appear anywhere in it.
var (
	usExact    = []string{"us", "usa"}
	usContains = []string{"us stocks", "united states"}
	inExact    = []string{"india"}
	inContains = []string{"indian stocks", "nifty 500"}
)

// Options tunes the resolver's heuristics. Zero values fall back to the
// package defaults.
type Options struct {
	SymbolMinLen     int
	SymbolMaxLen     int
	GreetingKeywords []string
}

// Resolver classifies market mode and turn kind from raw message text.
// It is stateless across requests: the same history always yields the same
// classification.
type Resolver struct {
	symbolMinLen int
	symbolMaxLen int
	greetings    map[string]struct{}
}

// NewResolver creates a resolver with the given options.
func NewResolver(opts Options) *Resolver {
	if opts.SymbolMinLen <= 0 {
		opts.SymbolMinLen = DefaultSymbolMinLen
	}
	if opts.SymbolMaxLen <= 0 {
		opts.SymbolMaxLen = DefaultSymbolMaxLen
	}
	if len(opts.GreetingKeywords) == 0 {
		opts.GreetingKeywords = DefaultGreetingKeywords
	}

	greetings := make(map[string]struct{}, len(opts.GreetingKeywords))
	for _, kw := range opts.GreetingKeywords {
		greetings[strings.ToLower(kw)] = struct{}{}
	}
	return &Resolver{
		symbolMinLen: opts.SymbolMinLen,
		symbolMaxLen: opts.SymbolMaxLen,
		greetings:    greetings,
	}
}

// matchSelection tests a lowercased, trimmed message against the two
// market-selection phrase sets. Returns MarketUnknown when neither matches.
func matchSelection(text string) models.MarketMode {
	for _, p := range usExact {
		if text == p {
			return models.MarketUS
		}
	}
	for _, p := range usContains {
		if strings.Contains(text, p) {
			return models.MarketUS
		}
	}
	for _, p := range inExact {
		if text == p {
			return models.MarketIN
		}
	}
	for _, p := range inContains {
		if strings.Contains(text, p) {
			return models.MarketIN
		}
	}
	return models.MarketUnknown
}

// ClassifyMarket replays all user messages in chronological order and returns
// the market selected by the most recent matching message. Messages matching
// neither phrase set leave the running mode unchanged. Returns MarketUnknown
// when no message ever matched.
func (r *Resolver) ClassifyMarket(history []models.ChatMessage) models.MarketMode {
	mode := models.MarketUnknown
	for _, msg := range history {
		if msg.Role != models.RoleUser {
			continue
		}
		text := strings.ToLower(strings.TrimSpace(msg.Content))
		if text == "" {
			continue
		}
		if m := matchSelection(text); m != models.MarketUnknown {
			mode = m
		}
	}
	return mode
}

// LooksLikeSymbol reports whether text is shaped like a ticker: non-empty,
// within the length bounds, no whitespace, and only uppercase letters,
// digits, and dots. Lowercase text never counts — greetings and company
// names must fall through to later classification tiers. A heuristic gate,
// not a validity guarantee.
func (r *Resolver) LooksLikeSymbol(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) < r.symbolMinLen || len(text) > r.symbolMaxLen {
		return false
	}
	for _, c := range text {
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.':
		default:
			return false
		}
	}
	return true
}

// ClassifyTurn classifies the latest user message given the market mode in
// effect before this turn. Checks apply in priority order: market selection
// beats symbol shape, which beats greetings; under the India market any
// non-empty leftover text is kept as a potential directory query.
func (r *Resolver) ClassifyTurn(latest string, mode models.MarketMode) models.TurnClassification {
	trimmed := strings.TrimSpace(latest)
	lower := strings.ToLower(trimmed)

	if m := matchSelection(lower); m != models.MarketUnknown {
		return models.TurnClassification{Kind: models.TurnMarketSelection, Market: m, Text: trimmed}
	}
	if r.LooksLikeSymbol(trimmed) {
		return models.TurnClassification{Kind: models.TurnSymbolLike, Text: trimmed}
	}
	if mode == models.MarketUnknown {
		if trimmed == "" {
			return models.TurnClassification{Kind: models.TurnGreeting}
		}
		if _, ok := r.greetings[lower]; ok {
			return models.TurnClassification{Kind: models.TurnGreeting, Text: trimmed}
		}
	}
	return models.TurnClassification{Kind: models.TurnOther, Text: trimmed}
}
