package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"stock-lot-tracker/internal/apperrors"
	"stock-lot-tracker/internal/broker/kite"
	"stock-lot-tracker/internal/model"
	"stock-lot-tracker/internal/repository"
)

// quoteChunkSize caps instrument keys per broker request; Kite rejects
// oversized quote calls.
const quoteChunkSize = 250

// MarketService serves live quotes and broker order data. Quotes for
// instruments with open lots are also refreshed on a schedule into a local
// cache so the UI has prices between broker round-trips.
type MarketService struct {
	client          kite.Client
	session         *kite.SessionManager
	transactionRepo *repository.TransactionRepository
	exchange        string

	mu          sync.RWMutex
	cache       map[string]model.Quote
	refreshedAt time.Time
}

// NewMarketService creates a new MarketService. exchange prefixes bare
// tickers into broker instrument keys (EXCHANGE:SYMBOL).
func NewMarketService(
	client kite.Client,
	session *kite.SessionManager,
	transactionRepo *repository.TransactionRepository,
	exchange string,
) *MarketService {
	return &MarketService{
		client:          client,
		session:         session,
		transactionRepo: transactionRepo,
		exchange:        exchange,
		cache:           make(map[string]model.Quote),
	}
}

// InstrumentKey converts a bare ticker into the broker's key format.
func (s *MarketService) InstrumentKey(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if strings.Contains(ticker, ":") {
		return ticker
	}
	return s.exchange + ":" + ticker
}

// Quotes fetches live quotes for the given tickers, keyed by bare ticker.
// Requests are chunked and fetched concurrently.
func (s *MarketService) Quotes(ctx context.Context, tickers []string) (map[string]model.Quote, error) {
	if !s.session.Connected() {
		return nil, apperrors.ErrBrokerDisconnected
	}
	if len(tickers) == 0 {
		return map[string]model.Quote{}, nil
	}

	keys := make([]string, 0, len(tickers))
	keyToTicker := make(map[string]string, len(tickers))
	for _, ticker := range tickers {
		key := s.InstrumentKey(ticker)
		keys = append(keys, key)
		keyToTicker[key] = strings.ToUpper(strings.TrimSpace(ticker))
	}

	var (
		resultMu sync.Mutex
		result   = make(map[string]model.Quote, len(tickers))
	)

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(keys); start += quoteChunkSize {
		end := start + quoteChunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		g.Go(func() error {
			quotes, err := s.client.Quotes(ctx, chunk)
			if err != nil {
				return err
			}

			resultMu.Lock()
			defer resultMu.Unlock()
			for key, quote := range quotes {
				if ticker, ok := keyToTicker[key]; ok {
					result[ticker] = quote
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// RefreshActive fetches quotes for every instrument that currently has an
// open lot and replaces the cache. Runs on a cron schedule; a disconnected
// session is skipped silently since the user simply has not logged in.
func (s *MarketService) RefreshActive(ctx context.Context) error {
	if !s.session.Connected() {
		return nil
	}

	tickers, err := s.transactionRepo.ActiveTickers()
	if err != nil {
		return err
	}
	if len(tickers) == 0 {
		return nil
	}

	quotes, err := s.Quotes(ctx, tickers)
	if err != nil {
		return fmt.Errorf("failed to refresh quotes: %w", err)
	}

	s.mu.Lock()
	s.cache = quotes
	s.refreshedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// CachedQuotes returns the last refreshed quote set and its timestamp.
func (s *MarketService) CachedQuotes() (map[string]model.Quote, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotes := make(map[string]model.Quote, len(s.cache))
	for ticker, quote := range s.cache {
		quotes[ticker] = quote
	}
	return quotes, s.refreshedAt
}

// ActiveTickers returns the tickers with open lots, the set worth keeping
// live prices for.
func (s *MarketService) ActiveTickers() ([]string, error) {
	return s.transactionRepo.ActiveTickers()
}

// TodaysOrders returns the broker's order book annotated with whether each
// order already has a local transaction, so recorded orders are not
// entered twice.
func (s *MarketService) TodaysOrders(ctx context.Context) ([]model.BrokerOrder, error) {
	if !s.session.Connected() {
		return nil, apperrors.ErrBrokerDisconnected
	}

	orders, err := s.client.Orders(ctx)
	if err != nil {
		return nil, err
	}

	orderIDs := make([]string, 0, len(orders))
	for _, order := range orders {
		orderIDs = append(orderIDs, order.OrderID)
	}

	recorded, err := s.transactionRepo.RecordedOrderIDs(orderIDs)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Recorded = recorded[orders[i].OrderID]
	}
	return orders, nil
}

// Status describes the broker session state.
type Status struct {
	Connected   bool      `json:"connected"`
	TokenValid  bool      `json:"token_valid"`
	UserName    string    `json:"user_name,omitempty"`
	RefreshedAt time.Time `json:"quotes_refreshed_at"`
}

// Status reports whether a session is loaded and whether the broker still
// accepts its token.
func (s *MarketService) Status(ctx context.Context) Status {
	_, refreshedAt := s.CachedQuotes()
	return Status{
		Connected:   s.session.Connected(),
		TokenValid:  s.session.Valid(ctx),
		UserName:    s.session.UserName(),
		RefreshedAt: refreshedAt,
	}
}
