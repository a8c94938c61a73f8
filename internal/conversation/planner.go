package conversation

import (
	"context"

	"github.com/stockunlock/stockunlock/pkg/models"
)

// MarketData fetches the normalized US analysis record for a symbol.
type MarketData interface {
	Assemble(ctx context.Context, symbol string) (*models.USStockAnalysis, error)
}

// Lookup resolves free text against the India reference directory.
type Lookup interface {
	Resolve(query string) *models.EquityRecord
}

// Planner combines the resolver's classification with the market mode to
// decide what this turn does. The decision table:
//
//	mode     | classification        | action
//	---------+-----------------------+----------------------------------
//	Unknown  | MarketSelection       | acknowledge choice, no fetch
//	Unknown  | anything else         | ask which market
//	US / IN  | MarketSelection       | acknowledge (re-)selection, no fetch
//	US       | SymbolLike            | assemble US data
//	US       | Other                 | ask for a valid symbol
//	IN       | SymbolLike / Other(+) | resolve in directory
//	IN       | Other(empty)          | ask for a name or symbol
//
// A selection turn never triggers a fetch, even when the selection text also
// happens to be symbol-shaped — selection is classified first.
type Planner struct {
	resolver  *Resolver
	marketUS  MarketData
	directory Lookup
}

// NewPlanner creates a planner over the given collaborators.
func NewPlanner(r *Resolver, us MarketData, dir Lookup) *Planner {
	return &Planner{resolver: r, marketUS: us, directory: dir}
}

// Resolver exposes the planner's resolver for callers that classify directly.
func (p *Planner) Resolver() *Resolver { return p.resolver }

// PlanTurn replays history to establish the market mode, classifies the
// latest user message, and executes the decision table. Remote or directory
// misses degrade to a failure reason on the decision — PlanTurn never returns
// an error.
func (p *Planner) PlanTurn(ctx context.Context, history []models.ChatMessage, latest string) models.Decision {
	mode := p.resolver.ClassifyMarket(history)
	turn := p.resolver.ClassifyTurn(latest, mode)

	d := models.Decision{Market: mode, Turn: turn}

	if turn.Kind == models.TurnMarketSelection {
		d.Market = turn.Market
		d.Action = models.ActionAcknowledgeSelection
		return d
	}

	switch mode {
	case models.MarketUnknown:
		d.Action = models.ActionAskMarket

	case models.MarketUS:
		if turn.Kind != models.TurnSymbolLike {
			d.Action = models.ActionAskClarification
			break
		}
		d.Action = models.ActionAnalyzeUS
		// Symbol passed through as typed; plausibility was the classifier's job.
		analysis, err := p.marketUS.Assemble(ctx, turn.Text)
		if err != nil {
			d.Failure = models.FailureNoLiveData
			break
		}
		d.US = analysis

	case models.MarketIN:
		if turn.Text == "" {
			d.Action = models.ActionAskClarification
			break
		}
		d.Action = models.ActionResolveIndia
		rec := p.directory.Resolve(turn.Text)
		if rec == nil {
			d.Failure = models.FailureNotInDirectory
			break
		}
		d.India = rec
	}

	return d
}
