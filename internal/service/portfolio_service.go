package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"stock-lot-tracker/internal/model"
	"stock-lot-tracker/internal/repository"
)

// PortfolioService derives read-only summaries from the ledger. It is
// stateless: every call recomputes from current ledger state.
type PortfolioService struct {
	transactionRepo *repository.TransactionRepository
	instrumentRepo  *repository.InstrumentRepository
	batchRepo       *repository.BatchRepository
}

// NewPortfolioService creates a new PortfolioService with the provided repository dependencies.
func NewPortfolioService(
	transactionRepo *repository.TransactionRepository,
	instrumentRepo *repository.InstrumentRepository,
	batchRepo *repository.BatchRepository,
) *PortfolioService {
	return &PortfolioService{
		transactionRepo: transactionRepo,
		instrumentRepo:  instrumentRepo,
		batchRepo:       batchRepo,
	}
}

// SummarizeLots folds a set of open lots into units held, weighted average
// buy price and capital deployed. The average is the zero value, not a
// division error, when no lots are open.
func SummarizeLots(ticker string, lots []model.OpenLot) model.OpenLotSummary {
	units := decimal.Zero
	cost := decimal.Zero
	for _, lot := range lots {
		units = units.Add(lot.Quantity)
		cost = cost.Add(lot.Quantity.Mul(lot.Price))
	}

	avg := decimal.Zero
	if units.Sign() > 0 {
		avg = cost.DivRound(units, 8)
	}

	return model.OpenLotSummary{
		Ticker:          ticker,
		UnitsHeld:       units,
		AverageBuyPrice: avg,
		CapitalDeployed: cost,
	}
}

// OpenLotSummary computes the derived metrics over one instrument's open
// lots.
func (s *PortfolioService) OpenLotSummary(ticker string) (model.OpenLotSummary, error) {
	instrument, err := s.instrumentRepo.GetByTicker(ticker)
	if err != nil {
		return model.OpenLotSummary{}, err
	}

	lots, err := s.transactionRepo.GetOpenLots(instrument.ID)
	if err != nil {
		return model.OpenLotSummary{}, err
	}

	return SummarizeLots(instrument.Ticker, lots), nil
}

// Overview returns, for each instrument with positive net quantity
// (BUY minus SELL), the units held and the weighted average price of its
// open lots. Instruments with zero or negative net position are excluded.
func (s *PortfolioService) Overview() ([]model.OverviewRow, error) {
	rows, err := s.transactionRepo.GetPositionRows()
	if err != nil {
		return nil, err
	}

	type position struct {
		net      decimal.Decimal
		openQty  decimal.Decimal
		openCost decimal.Decimal
	}
	positions := make(map[string]*position)

	for _, row := range rows {
		p, ok := positions[row.Ticker]
		if !ok {
			p = &position{}
			positions[row.Ticker] = p
		}

		switch row.Type {
		case model.TypeBuy:
			p.net = p.net.Add(row.Quantity)
			if row.IsOpen {
				p.openQty = p.openQty.Add(row.Quantity)
				p.openCost = p.openCost.Add(row.Quantity.Mul(row.Price))
			}
		case model.TypeSell:
			p.net = p.net.Sub(row.Quantity)
		}
	}

	realized, err := s.RealizedPnL()
	if err != nil {
		return nil, err
	}

	overview := []model.OverviewRow{}
	for ticker, p := range positions {
		if p.net.Sign() <= 0 {
			continue
		}

		avg := decimal.Zero
		if p.openQty.Sign() > 0 {
			avg = p.openCost.DivRound(p.openQty, 8)
		}

		overview = append(overview, model.OverviewRow{
			Ticker:          ticker,
			UnitsHeld:       p.net,
			AverageBuyPrice: avg,
			CapitalDeployed: p.openCost,
			RealizedPnL:     realized[ticker],
		})
	}

	sort.Slice(overview, func(i, j int) bool {
		return overview[i].Ticker < overview[j].Ticker
	})
	return overview, nil
}

// RealizedPnL aggregates realized profit per instrument over every closed
// (buy, sell) pair in the ledger.
func (s *PortfolioService) RealizedPnL() (map[string]decimal.Decimal, error) {
	pairs, err := s.batchRepo.AllPairs()
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	for _, pair := range pairs {
		totals[pair.Ticker] = totals[pair.Ticker].Add(pair.RealizedPnL)
	}
	return totals, nil
}
