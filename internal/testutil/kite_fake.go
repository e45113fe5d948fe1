package testutil

import (
	"context"

	"stock-lot-tracker/internal/apperrors"
	"stock-lot-tracker/internal/broker/kite"
	"stock-lot-tracker/internal/model"
)

// FakeBroker is an in-memory kite.Client for tests. Quotes and orders are
// served from the configured maps; Err, when set, is returned from every
// broker call to simulate an outage or rejected token.
type FakeBroker struct {
	QuoteMap    map[string]model.Quote
	OrderList   []model.BrokerOrder
	UserName    string
	AccessToken string
	Err         error
}

var _ kite.Client = (*FakeBroker)(nil)

// NewFakeBroker creates a FakeBroker with empty quote and order books.
func NewFakeBroker() *FakeBroker {
	return &FakeBroker{
		QuoteMap: make(map[string]model.Quote),
		UserName: "Test User",
	}
}

func (f *FakeBroker) LoginURL() string {
	return "https://kite.fake/connect/login"
}

func (f *FakeBroker) GenerateSession(_ context.Context, requestToken string) (kite.Session, error) {
	if f.Err != nil {
		return kite.Session{}, f.Err
	}
	return kite.Session{AccessToken: "access-" + requestToken, UserName: f.UserName}, nil
}

func (f *FakeBroker) SetAccessToken(token string) {
	f.AccessToken = token
}

func (f *FakeBroker) Quotes(_ context.Context, instrumentKeys []string) (map[string]model.Quote, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	quotes := make(map[string]model.Quote, len(instrumentKeys))
	for _, key := range instrumentKeys {
		if quote, ok := f.QuoteMap[key]; ok {
			quotes[key] = quote
		}
	}
	return quotes, nil
}

func (f *FakeBroker) Profile(_ context.Context) (kite.Profile, error) {
	if f.Err != nil {
		return kite.Profile{}, f.Err
	}
	if f.AccessToken == "" {
		return kite.Profile{}, apperrors.ErrBrokerDisconnected
	}
	return kite.Profile{UserID: "TST001", UserName: f.UserName}, nil
}

func (f *FakeBroker) Orders(_ context.Context) ([]model.BrokerOrder, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.OrderList, nil
}
