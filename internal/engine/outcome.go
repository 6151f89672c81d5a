package engine

import (
	"fmt"
	"time"

	"kotrader/internal/strategy"
)

const timestampLayout = "2006-01-02T15:04:05.000000-07:00"

type Outcome struct {
	RunID         string
	Timestamp     time.Time
	Symbol        string
	Cutoff        strategy.Cutoff
	Action        strategy.Action
	Qty           int
	Reason        string
	OrderID       string
	ClientOrderID string
	Status        string
}

// Placed reports whether an order was accepted by the broker.
func (o Outcome) Placed() bool {
	return o.OrderID != ""
}

func (o Outcome) Line() string {
	ts := o.Timestamp.Format(timestampLayout)
	switch {
	case o.Placed():
		return fmt.Sprintf("%s %s %d %s order_id=%s", ts, o.Action, o.Qty, o.Symbol, o.OrderID)
	case o.Reason == "market_closed":
		return fmt.Sprintf("%s market closed, no action", ts)
	default:
		return fmt.Sprintf("%s exactly %s cutoff, no action", ts, o.Cutoff)
	}
}
