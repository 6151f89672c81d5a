package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
)

type Side int

const (
	SideBuy Side = iota + 1
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

type TimeInForce int

const (
	// Day orders expire unfilled at the end of the current session.
	Day TimeInForce = iota + 1
)

func (t TimeInForce) String() string {
	if t == Day {
		return "day"
	}
	return fmt.Sprintf("TimeInForce(%d)", int(t))
}

func ParseTimeInForce(value string) (TimeInForce, error) {
	switch value {
	case "day":
		return Day, nil
	default:
		return 0, fmt.Errorf("unsupported time in force: %s", value)
	}
}

// OrderRequest is a market order. It carries no alpaca types.
type OrderRequest struct {
	Symbol        string
	Qty           int
	Side          Side
	TimeInForce   TimeInForce
	ClientOrderID string
}

type OrderRef struct {
	ID            string
	ClientOrderID string
	Status        string
}

type Client struct {
	client *alpaca.Client
}

func New(apiKey, apiSecret, baseURL string) *Client {
	opts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	}
	return &Client{client: alpaca.NewClient(opts)}
}

func (c *Client) IsMarketOpen(ctx context.Context) (bool, error) {
	clock, err := c.client.GetClock()
	if err != nil {
		slog.Error("fetch market clock failed", "error", err, "status", statusCode(err))
		return false, fmt.Errorf("get clock: %w", err)
	}
	slog.Info("market clock fetched", "is_open", clock.IsOpen, "next_open", clock.NextOpen, "next_close", clock.NextClose)
	return clock.IsOpen, nil
}

func (c *Client) SubmitOrder(ctx context.Context, req OrderRequest) (OrderRef, error) {
	orderReq, err := toAlpaca(req)
	if err != nil {
		return OrderRef{}, err
	}

	order, err := c.client.PlaceOrder(orderReq)
	if err != nil {
		slog.Error("place order failed", "side", req.Side, "symbol", req.Symbol, "qty", req.Qty, "error", err, "status", statusCode(err))
		return OrderRef{}, fmt.Errorf("place %s order for %s: %w", req.Side, req.Symbol, err)
	}

	slog.Info("place order success", "order_id", order.ID, "client_order_id", order.ClientOrderID, "side", req.Side, "symbol", req.Symbol, "qty", req.Qty, "status", order.Status)
	return OrderRef{
		ID:            order.ID,
		ClientOrderID: order.ClientOrderID,
		Status:        string(order.Status),
	}, nil
}

func toAlpaca(req OrderRequest) (alpaca.PlaceOrderRequest, error) {
	if req.Qty <= 0 {
		return alpaca.PlaceOrderRequest{}, fmt.Errorf("invalid quantity: %d", req.Qty)
	}
	var side alpaca.Side
	switch req.Side {
	case SideBuy:
		side = alpaca.Buy
	case SideSell:
		side = alpaca.Sell
	default:
		return alpaca.PlaceOrderRequest{}, fmt.Errorf("unsupported side: %s", req.Side)
	}
	var tif alpaca.TimeInForce
	switch req.TimeInForce {
	case Day:
		tif = alpaca.Day
	default:
		return alpaca.PlaceOrderRequest{}, fmt.Errorf("unsupported time in force: %s", req.TimeInForce)
	}

	qty := decimal.NewFromInt(int64(req.Qty))
	return alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          side,
		Type:          alpaca.Market,
		TimeInForce:   tif,
		ClientOrderID: req.ClientOrderID,
	}, nil
}

func statusCode(err error) int {
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
