package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"time"

	"kotrader/internal/broker"
	"kotrader/internal/strategy"
)

// MarketClock reports whether the market is open right now.
type MarketClock interface {
	IsMarketOpen(ctx context.Context) (bool, error)
}

type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderRef, error)
}

type Options struct {
	Symbol      string
	Qty         int
	TimeInForce broker.TimeInForce
	Cutoff      strategy.Cutoff
	RunID       string
	Now         func() time.Time
	Out         io.Writer
}

type Engine struct {
	opts     Options
	strategy strategy.Strategy
	clock    MarketClock
	orders   OrderSubmitter
}

func New(opts Options, clock MarketClock, orders OrderSubmitter) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.RunID == "" {
		opts.RunID = GenerateRunID()
	}
	return &Engine{
		opts:     opts,
		strategy: strategy.CutoffStrategy{Cutoff: opts.Cutoff, Qty: opts.Qty},
		clock:    clock,
		orders:   orders,
	}
}

// RunOnce makes one decision and submits at most one order. Market clock
// failures count as a closed market; submission failures are returned.
func (e *Engine) RunOnce(ctx context.Context) (Outcome, error) {
	now := e.opts.Now().In(e.opts.Cutoff.Location)
	outcome := Outcome{
		RunID:     e.opts.RunID,
		Timestamp: now,
		Symbol:    e.opts.Symbol,
		Cutoff:    e.opts.Cutoff,
		Action:    strategy.NoAction,
	}

	open, err := e.clock.IsMarketOpen(ctx)
	if err != nil {
		slog.Warn("could not read market clock, treating market as closed", "error", err)
		open = false
	}

	intent := e.strategy.Decide(strategy.MarketSnapshot{Timestamp: now, MarketOpen: open})
	outcome.Action = intent.Action
	outcome.Qty = intent.Qty
	outcome.Reason = intent.Reason
	slog.Info("decision", "run_id", e.opts.RunID, "time", now.Format(timestampLayout), "cutoff", e.opts.Cutoff.String(), "market_open", open, "action", intent.Action, "reason", intent.Reason)

	if intent.Action == strategy.NoAction {
		e.report(outcome)
		return outcome, nil
	}

	req, err := e.buildOrder(intent)
	if err != nil {
		return outcome, err
	}
	outcome.ClientOrderID = req.ClientOrderID

	ref, err := e.orders.SubmitOrder(ctx, req)
	if err != nil {
		return outcome, fmt.Errorf("submit order: %w", err)
	}
	outcome.OrderID = ref.ID
	outcome.Status = ref.Status
	e.report(outcome)
	return outcome, nil
}

func (e *Engine) buildOrder(intent strategy.TradeIntent) (broker.OrderRequest, error) {
	var side broker.Side
	switch intent.Action {
	case strategy.Buy:
		side = broker.SideBuy
	case strategy.Sell:
		side = broker.SideSell
	default:
		return broker.OrderRequest{}, fmt.Errorf("no order side for action %s", intent.Action)
	}
	return broker.OrderRequest{
		Symbol:        e.opts.Symbol,
		Qty:           intent.Qty,
		Side:          side,
		TimeInForce:   e.opts.TimeInForce,
		ClientOrderID: e.opts.RunID + "-1",
	}, nil
}

func (e *Engine) report(outcome Outcome) {
	if _, err := fmt.Fprintln(e.opts.Out, outcome.Line()); err != nil {
		slog.Error("failed to write outcome", "error", err)
	}
}

func GenerateRunID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return timestamp
	}
	return timestamp + "-" + hex.EncodeToString(randomBytes)
}
