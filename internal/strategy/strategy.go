package strategy

import "time"

type Action string

const (
	NoAction Action = "NONE"
	Buy      Action = "BUY"
	Sell     Action = "SELL"
)

type MarketSnapshot struct {
	Timestamp  time.Time
	MarketOpen bool
}

type TradeIntent struct {
	Action Action
	Qty    int
	Reason string
}

type Strategy interface {
	Decide(snapshot MarketSnapshot) TradeIntent
}
