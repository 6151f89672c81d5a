package strategy

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Cutoff is a wall-clock time of day in a fixed location.
type Cutoff struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
	Location   *time.Location
}

// ParseCutoff accepts HH:MM or HH:MM:SS.
func ParseCutoff(value string, loc *time.Location) (Cutoff, error) {
	if loc == nil {
		return Cutoff{}, fmt.Errorf("cutoff location is required")
	}
	var parsed time.Time
	var err error
	for _, layout := range []string{"15:04:05", "15:04"} {
		parsed, err = time.Parse(layout, value)
		if err == nil {
			break
		}
	}
	if err != nil {
		return Cutoff{}, fmt.Errorf("invalid cutoff %q: want HH:MM or HH:MM:SS", value)
	}
	return Cutoff{
		Hour:     parsed.Hour(),
		Minute:   parsed.Minute(),
		Second:   parsed.Second(),
		Location: loc,
	}, nil
}

// On returns the cutoff instant on the calendar day of t, as seen in the cutoff location.
func (c Cutoff) On(t time.Time) time.Time {
	local := t.In(c.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), c.Hour, c.Minute, c.Second, c.Nanosecond, c.Location)
}

func (c Cutoff) String() string {
	if c.Second == 0 {
		return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
	}
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// Decide picks the order side for a single run. A closed market and the exact
// cutoff instant both yield NoAction. Times compare at microsecond resolution.
func Decide(now time.Time, cutoff Cutoff, marketOpen bool) Action {
	if !marketOpen {
		return NoAction
	}
	now = now.Truncate(time.Microsecond)
	at := cutoff.On(now)
	switch {
	case now.Before(at):
		return Buy
	case now.After(at):
		return Sell
	default:
		return NoAction
	}
}

type CutoffStrategy struct {
	Cutoff Cutoff
	Qty    int
}

func (s CutoffStrategy) Decide(snapshot MarketSnapshot) TradeIntent {
	action := Decide(snapshot.Timestamp, s.Cutoff, snapshot.MarketOpen)
	switch {
	case !snapshot.MarketOpen:
		return TradeIntent{Action: NoAction, Reason: "market_closed"}
	case action == Buy:
		return TradeIntent{Action: Buy, Qty: s.Qty, Reason: "before_cutoff"}
	case action == Sell:
		return TradeIntent{Action: Sell, Qty: s.Qty, Reason: "after_cutoff"}
	default:
		return TradeIntent{Action: NoAction, Reason: "at_cutoff"}
	}
}
