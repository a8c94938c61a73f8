// Package prompts contains the assistant's system prompt, canned replies for
// turns that never reach the model, and the deterministic per-turn prompt
// assembly from a planner decision.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stockunlock/stockunlock/pkg/models"
)

// SystemPrompt is the base persona for every generated turn.
const SystemPrompt = `You are "Stock Unlock", a conversational equity research assistant covering US stocks and Indian NIFTY 500 stocks.

<tone_style>
- Maintain a friendly, approachable, and helpful tone at all times.
- Explain metrics in plain language; define jargon the first time you use it.
</tone_style>

<guardrails>
- You provide research and education, never personalised investment advice.
- Strictly refuse and end engagement if a request involves dangerous, illegal, shady, or inappropriate activities.
- Only discuss numbers that appear in the structured data you are given. Never fabricate prices, ratios, or returns.
</guardrails>`

// ChooseMarketReply is sent verbatim, without calling the model, whenever no
// market has been chosen and the turn is not a selection.
const ChooseMarketReply = "Hello, Welcome to Stock Unlock. Do you want to research **Indian stocks** or **US stocks**?"

// ModerationDenialReply is sent verbatim when moderation flags the input.
const ModerationDenialReply = "Your message violates our guidelines. I can't answer that."

// ForDecision assembles the full system prompt for one turn. The output is a
// pure function of the decision: same decision, same prompt.
func ForDecision(d models.Decision) (string, error) {
	var b strings.Builder
	b.WriteString(SystemPrompt)

	switch d.Action {
	case models.ActionAcknowledgeSelection:
		market := "US stocks."
		ask := "type the stock symbol"
		if d.Market == models.MarketIN {
			market = "Indian NIFTY 500 stocks."
			ask = "type the company name or symbol"
		}
		fmt.Fprintf(&b, "\n\nThe user has just chosen their market: %s\nAcknowledge their choice briefly and ask them to %s. Do not analyse any stock yet.", market, ask)

	case models.ActionAnalyzeUS:
		if d.US != nil {
			data, err := json.Marshal(d.US)
			if err != nil {
				return "", fmt.Errorf("prompts: marshal US analysis: %w", err)
			}
			b.WriteString("\n\nThe user is analysing a **US stock**. Here is structured JSON data for this symbol:\n")
			b.Write(data)
		} else {
			b.WriteString("\n\nThe user asked for a US stock symbol, but live data could not be fetched from the API. Politely tell them that live data is not available right now for that symbol and ask them to double-check it.")
		}

	case models.ActionResolveIndia:
		if d.India != nil {
			data, err := json.Marshal(d.India)
			if err != nil {
				return "", fmt.Errorf("prompts: marshal India record: %w", err)
			}
			b.WriteString("\n\nThe user is analysing an **Indian stock from the NIFTY 500 list**. Here is structured JSON data for this stock:\n")
			b.Write(data)
		} else {
			b.WriteString("\n\nThe user asked for an Indian stock that is **not present in the NIFTY 500 list**. Politely tell them that this stock is not part of the NIFTY 500 list in the current version and ask them to enter a stock that is part of NIFTY 500.")
		}

	case models.ActionAskClarification:
		if d.Market == models.MarketUS {
			b.WriteString("\n\nThe user's message is not a US ticker symbol. Ask them to type a single uppercase US stock symbol, like AAPL or MSFT.")
		} else {
			b.WriteString("\n\nAsk the user which NIFTY 500 company or symbol they would like to research.")
		}
	}

	return b.String(), nil
}

// WithNews appends recent headlines to a system prompt as extra context for
// the model. An empty item list returns the prompt unchanged.
func WithNews(prompt string, items []models.NewsItem) string {
	if len(items) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nRecent market headlines, most recent first. Cite the source name when you reference one:")
	for _, item := range items {
		fmt.Fprintf(&b, "\n- [%s] %s", item.Source, item.Title)
	}
	return b.String()
}
