package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stockunlock/stockunlock/pkg/models"
	"github.com/stockunlock/stockunlock/pkg/utils"
)

// fakeMarketData records calls and serves a canned analysis or error.
type fakeMarketData struct {
	calls    []string
	analysis *models.USStockAnalysis
	err      error
}

func (f *fakeMarketData) Assemble(_ context.Context, symbol string) (*models.USStockAnalysis, error) {
	f.calls = append(f.calls, symbol)
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

// fakeLookup resolves a single known query.
type fakeLookup struct {
	calls  []string
	known  string
	record *models.EquityRecord
}

func (f *fakeLookup) Resolve(query string) *models.EquityRecord {
	f.calls = append(f.calls, query)
	if query == f.known {
		return f.record
	}
	return nil
}

func newTestPlanner(md *fakeMarketData, dir *fakeLookup) *Planner {
	return NewPlanner(NewResolver(Options{}), md, dir)
}

func TestPlanGreetingAsksMarket(t *testing.T) {
	md := &fakeMarketData{}
	dir := &fakeLookup{}
	p := newTestPlanner(md, dir)

	d := p.PlanTurn(context.Background(), nil, "hello")

	if d.Turn.Kind != models.TurnGreeting {
		t.Errorf("kind = %q, want greeting", d.Turn.Kind)
	}
	if d.Action != models.ActionAskMarket {
		t.Errorf("action = %q, want ask_market", d.Action)
	}
	if len(md.calls)+len(dir.calls) != 0 {
		t.Error("greeting turn must not fetch anything")
	}
}

func TestPlanSymbolBeforeMarketAsksMarket(t *testing.T) {
	md := &fakeMarketData{}
	p := newTestPlanner(md, &fakeLookup{})

	d := p.PlanTurn(context.Background(), nil, "AAPL")

	if d.Turn.Kind != models.TurnSymbolLike {
		t.Errorf("kind = %q, want symbol_like", d.Turn.Kind)
	}
	if d.Action != models.ActionAskMarket {
		t.Errorf("action = %q, want ask_market", d.Action)
	}
	if len(md.calls) != 0 {
		t.Error("no fetch is allowed before a market is chosen")
	}
}

func TestPlanSelectionAcknowledgesWithoutFetch(t *testing.T) {
	md := &fakeMarketData{}
	dir := &fakeLookup{}
	p := newTestPlanner(md, dir)

	d := p.PlanTurn(context.Background(), nil, "us")

	if d.Action != models.ActionAcknowledgeSelection {
		t.Errorf("action = %q, want acknowledge_selection", d.Action)
	}
	if d.Market != models.MarketUS {
		t.Errorf("market = %q, want US", d.Market)
	}
	if len(md.calls)+len(dir.calls) != 0 {
		t.Error("selection turn must not fetch, even though 'us' is symbol-shaped")
	}
}

func TestPlanReselectionUnderActiveMarket(t *testing.T) {
	p := newTestPlanner(&fakeMarketData{}, &fakeLookup{})

	d := p.PlanTurn(context.Background(), userMessages("india"), "us stocks please")

	if d.Action != models.ActionAcknowledgeSelection {
		t.Errorf("action = %q, want acknowledge_selection", d.Action)
	}
	if d.Market != models.MarketUS {
		t.Errorf("market should flip to US, got %q", d.Market)
	}
}

func TestPlanUSSymbolFetches(t *testing.T) {
	md := &fakeMarketData{analysis: &models.USStockAnalysis{
		Symbol: "AAPL",
		Quote:  models.Quote{Symbol: "AAPL", Price: 231.5},
	}}
	p := newTestPlanner(md, &fakeLookup{})

	d := p.PlanTurn(context.Background(), userMessages("us"), "AAPL")

	if d.Action != models.ActionAnalyzeUS {
		t.Fatalf("action = %q, want analyze_us", d.Action)
	}
	if len(md.calls) != 1 || md.calls[0] != "AAPL" {
		t.Fatalf("assembler calls = %v, want [AAPL]", md.calls)
	}
	if d.US == nil || d.US.Quote.Price != 231.5 {
		t.Errorf("decision should carry the assembled record, got %+v", d.US)
	}
	if d.Failure != models.FailureNone {
		t.Errorf("unexpected failure %q", d.Failure)
	}
}

func TestPlanUSFetchFailureDegrades(t *testing.T) {
	md := &fakeMarketData{err: errors.New("remote down")}
	p := newTestPlanner(md, &fakeLookup{})

	d := p.PlanTurn(context.Background(), userMessages("us"), "AAPL")

	if d.Failure != models.FailureNoLiveData {
		t.Errorf("failure = %q, want no_live_data", d.Failure)
	}
	if d.US != nil {
		t.Error("no partial record should survive a failed fetch")
	}
}

func TestPlanUSSentenceAsksClarification(t *testing.T) {
	md := &fakeMarketData{}
	p := newTestPlanner(md, &fakeLookup{})

	d := p.PlanTurn(context.Background(), userMessages("us"), "is apple a good buy?")

	if d.Action != models.ActionAskClarification {
		t.Errorf("action = %q, want ask_clarification", d.Action)
	}
	if len(md.calls) != 0 {
		t.Error("sentence under US must not fetch")
	}
}

func TestPlanIndiaFreeTextResolves(t *testing.T) {
	dir := &fakeLookup{
		known:  "HDFC Bank",
		record: &models.EquityRecord{Symbol: "HDFCBANK", CompanyName: "HDFC Bank Ltd", PE: utils.Float64Ptr(19.6)},
	}
	p := newTestPlanner(&fakeMarketData{}, dir)

	d := p.PlanTurn(context.Background(), userMessages("india"), "HDFC Bank")

	if d.Turn.Kind != models.TurnOther {
		t.Errorf("kind = %q, want other (free text)", d.Turn.Kind)
	}
	if d.Action != models.ActionResolveIndia {
		t.Errorf("action = %q, want resolve_india", d.Action)
	}
	if d.India == nil || d.India.Symbol != "HDFCBANK" {
		t.Errorf("decision should carry the directory record, got %+v", d.India)
	}
}

func TestPlanIndiaMissDegrades(t *testing.T) {
	p := newTestPlanner(&fakeMarketData{}, &fakeLookup{})

	d := p.PlanTurn(context.Background(), userMessages("india"), "Unknown Company")

	if d.Action != models.ActionResolveIndia {
		t.Errorf("action = %q, want resolve_india", d.Action)
	}
	if d.Failure != models.FailureNotInDirectory {
		t.Errorf("failure = %q, want not_in_directory", d.Failure)
	}
}

func TestPlanMostRecentSelectionRoutesSymbol(t *testing.T) {
	md := &fakeMarketData{}
	dir := &fakeLookup{known: "TCS", record: &models.EquityRecord{Symbol: "TCS"}}
	p := newTestPlanner(md, dir)

	// "us" then "india": IN wins, so the symbol-shaped text goes to the
	// directory, not the US assembler.
	d := p.PlanTurn(context.Background(), userMessages("us", "india"), "TCS")

	if d.Market != models.MarketIN {
		t.Fatalf("market = %q, want IN", d.Market)
	}
	if d.Turn.Kind != models.TurnSymbolLike {
		t.Errorf("kind = %q, want symbol_like", d.Turn.Kind)
	}
	if len(md.calls) != 0 {
		t.Error("US assembler must not be called under IN mode")
	}
	if len(dir.calls) != 1 || d.India == nil {
		t.Errorf("directory resolve expected, calls=%v india=%v", dir.calls, d.India)
	}
}

func TestPlanDeterministic(t *testing.T) {
	p := newTestPlanner(&fakeMarketData{}, &fakeLookup{})
	history := userMessages("india", "hello there")
	a := p.PlanTurn(context.Background(), history, "something")
	b := p.PlanTurn(context.Background(), history, "something")
	if a.Action != b.Action || a.Market != b.Market || a.Turn != b.Turn {
		t.Error("planner must be idempotent for identical history")
	}
}
