package models

// Role identifies the sender of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single role-tagged message in a conversation. Only
// user-role messages feed market/turn classification.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// MarketMode is the active market for a conversation. It is recomputed from
// the full message history on every turn, never stored.
type MarketMode string

const (
	MarketUS      MarketMode = "US"
	MarketIN      MarketMode = "IN"
	MarketUnknown MarketMode = ""
)

// TurnKind classifies the latest user message.
type TurnKind string

const (
	// TurnMarketSelection means the message selects (or re-selects) a market.
	TurnMarketSelection TurnKind = "market_selection"
	// TurnSymbolLike means the message is shaped like a ticker symbol.
	TurnSymbolLike TurnKind = "symbol_like"
	// TurnGreeting means the message is a greeting or help keyword sent
	// before any market was chosen.
	TurnGreeting TurnKind = "greeting"
	// TurnOther covers everything else, including free-form company-name
	// text that the India market accepts as a directory query.
	TurnOther TurnKind = "other"
)

// TurnClassification is the result of classifying the latest user message.
// Market is set only for TurnMarketSelection; Text carries the trimmed
// message for symbol-shaped and free-form turns.
type TurnClassification struct {
	Kind   TurnKind   `json:"kind"`
	Market MarketMode `json:"market,omitempty"`
	Text   string     `json:"text,omitempty"`
}

// Action is what the planner decided to do this turn.
type Action string

const (
	ActionAcknowledgeSelection Action = "acknowledge_selection"
	ActionAskMarket            Action = "ask_market"
	ActionAskClarification     Action = "ask_clarification"
	ActionAnalyzeUS            Action = "analyze_us"
	ActionResolveIndia         Action = "resolve_india"
)

// FailureReason explains why a planned fetch produced no data. Empty when the
// turn succeeded or no fetch was planned.
type FailureReason string

const (
	FailureNone           FailureReason = ""
	FailureNoLiveData     FailureReason = "no_live_data"
	FailureNotInDirectory FailureReason = "not_in_directory"
)

// Decision is the structured per-turn outcome handed to the downstream
// generation collaborator. Exactly one of US / India is set when a fetch
// succeeded; Failure is set when a planned fetch came back empty.
type Decision struct {
	Market  MarketMode         `json:"market"`
	Turn    TurnClassification `json:"turn"`
	Action  Action             `json:"action"`
	US      *USStockAnalysis   `json:"us,omitempty"`
	India   *EquityRecord      `json:"india,omitempty"`
	Failure FailureReason      `json:"failure,omitempty"`
}
