// Package kite wraps the Zerodha Kite Connect SDK behind a small interface
// so the rest of the application never touches SDK types and tests can
// substitute a fake broker.
package kite

import (
	"context"
	"fmt"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"stock-lot-tracker/internal/apperrors"
	"stock-lot-tracker/internal/model"
)

// Session is the result of exchanging a request token after login.
type Session struct {
	AccessToken string
	UserName    string
}

// Profile identifies the logged-in broker user. Fetching it doubles as a
// liveness probe for the stored access token.
type Profile struct {
	UserID   string
	UserName string
}

// Client is the broker surface the application depends on.
type Client interface {
	LoginURL() string
	GenerateSession(ctx context.Context, requestToken string) (Session, error)
	SetAccessToken(token string)
	Quotes(ctx context.Context, instrumentKeys []string) (map[string]model.Quote, error)
	Profile(ctx context.Context) (Profile, error)
	Orders(ctx context.Context) ([]model.BrokerOrder, error)
}

// KiteClient is the production Client backed by gokiteconnect.
type KiteClient struct {
	kc        *kiteconnect.Client
	apiSecret string
}

var _ Client = (*KiteClient)(nil)

// NewClient creates a Kite Connect client for the given API credentials.
func NewClient(apiKey, apiSecret string) *KiteClient {
	return &KiteClient{
		kc:        kiteconnect.New(apiKey),
		apiSecret: apiSecret,
	}
}

// LoginURL returns the Zerodha login URL the user must visit to start a
// session. The broker redirects back with a request token.
func (c *KiteClient) LoginURL() string {
	return c.kc.GetLoginURL()
}

// GenerateSession exchanges a request token for an access token.
func (c *KiteClient) GenerateSession(_ context.Context, requestToken string) (Session, error) {
	session, err := c.kc.GenerateSession(requestToken, c.apiSecret)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", apperrors.ErrBrokerUnavailable, err)
	}

	return Session{
		AccessToken: session.AccessToken,
		UserName:    session.UserName,
	}, nil
}

// SetAccessToken attaches an access token to subsequent API calls.
func (c *KiteClient) SetAccessToken(token string) {
	c.kc.SetAccessToken(token)
}

// Quotes fetches full quotes for the given instrument keys (EXCHANGE:SYMBOL).
func (c *KiteClient) Quotes(_ context.Context, instrumentKeys []string) (map[string]model.Quote, error) {
	quotes, err := c.kc.GetQuote(instrumentKeys...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBrokerUnavailable, err)
	}

	result := make(map[string]model.Quote, len(quotes))
	for key, q := range quotes {
		result[key] = model.Quote{
			InstrumentKey: key,
			LastPrice:     q.LastPrice,
			OHLC: model.OHLC{
				Open:  q.OHLC.Open,
				High:  q.OHLC.High,
				Low:   q.OHLC.Low,
				Close: q.OHLC.Close,
			},
		}
	}
	return result, nil
}

// Profile fetches the logged-in user's profile.
func (c *KiteClient) Profile(_ context.Context) (Profile, error) {
	profile, err := c.kc.GetUserProfile()
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", apperrors.ErrBrokerUnavailable, err)
	}

	return Profile{
		UserID:   profile.UserID,
		UserName: profile.UserName,
	}, nil
}

// Orders fetches the day's order book.
func (c *KiteClient) Orders(_ context.Context) ([]model.BrokerOrder, error) {
	orders, err := c.kc.GetOrders()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBrokerUnavailable, err)
	}

	result := make([]model.BrokerOrder, 0, len(orders))
	for _, order := range orders {
		result = append(result, model.BrokerOrder{
			OrderID:         order.OrderID,
			Ticker:          order.TradingSymbol,
			TransactionType: order.TransactionType,
			Quantity:        order.Quantity,
			AveragePrice:    order.AveragePrice,
			Status:          order.Status,
			OrderTimestamp:  order.OrderTimestamp.Format("2006-01-02 15:04:05"),
		})
	}
	return result, nil
}
