package marketdata

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stockunlock/stockunlock/internal/indicator"
	"github.com/stockunlock/stockunlock/pkg/models"
)

// DefaultHistoryDays is how many daily closes the assembler requests — enough
// calendar slack to cover the longest configured return window (252 trading
// days).
const DefaultHistoryDays = 400

// Assembler builds the normalized US analysis record: quote fields plus the
// indicator set computed from the daily closing series. The quote and the
// series are fetched concurrently; the assembly fails atomically — a partial
// fetch never yields a partial record.
type Assembler struct {
	client      Client
	historyDays int
}

// NewAssembler creates an assembler over the given remote client.
// historyDays <= 0 falls back to DefaultHistoryDays.
func NewAssembler(client Client, historyDays int) *Assembler {
	if historyDays <= 0 {
		historyDays = DefaultHistoryDays
	}
	return &Assembler{client: client, historyDays: historyDays}
}

// Assemble fetches quote and history for symbol and computes the indicators.
// The symbol is passed through exactly as received. All remote failures are
// reported as ErrDataUnavailable; callers degrade to a "no live data" turn
// rather than aborting the conversation.
func (a *Assembler) Assemble(ctx context.Context, symbol string) (*models.USStockAnalysis, error) {
	var (
		quote  *Quote
		closes []float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := a.client.GetQuote(gctx, symbol)
		if err != nil {
			return fmt.Errorf("quote: %w", err)
		}
		quote = q
		return nil
	})
	g.Go(func() error {
		c, err := a.client.GetDailyCloses(gctx, symbol, a.historyDays)
		if err != nil {
			return fmt.Errorf("series: %w", err)
		}
		if len(c) == 0 {
			return fmt.Errorf("series: empty for %s", symbol)
		}
		closes = c
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("marketdata: assemble %s: %v", symbol, err)
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, symbol)
	}

	return &models.USStockAnalysis{
		Symbol: symbol,
		Quote: models.Quote{
			Symbol:     quote.Symbol,
			Name:       quote.Name,
			Price:      quote.Price,
			WeekHigh52: quote.WeekHigh52,
			WeekLow52:  quote.WeekLow52,
			MarketCap:  quote.MarketCap,
		},
		Indicators: indicator.Compute(closes),
		FetchedAt:  time.Now(),
	}, nil
}
