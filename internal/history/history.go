// Package history loads daily bars for a list of symbols. The order-side
// decision never consults the loaded data.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Dataset holds bars per symbol, oldest first.
type Dataset struct {
	Bars map[string][]Bar
}

func (d Dataset) Symbols() []string {
	symbols := make([]string, 0, len(d.Bars))
	for symbol := range d.Bars {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Rows is the number of distinct bar dates across all symbols.
func (d Dataset) Rows() int {
	dates := map[time.Time]struct{}{}
	for _, bars := range d.Bars {
		for _, bar := range bars {
			dates[bar.Time.UTC().Truncate(24*time.Hour)] = struct{}{}
		}
	}
	return len(dates)
}

type BarSource interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

type Loader struct {
	source BarSource
	feed   marketdata.Feed
}

func NewClient(apiKey, apiSecret, baseURL string) *marketdata.Client {
	return marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
}

func NewLoader(source BarSource, feed string) *Loader {
	return &Loader{source: source, feed: parseFeed(feed)}
}

func (l *Loader) Load(ctx context.Context, symbols []string, start, end time.Time) (Dataset, error) {
	if len(symbols) == 0 {
		return Dataset{}, errors.New("no symbols to load")
	}
	if !end.After(start) {
		return Dataset{}, fmt.Errorf("end %s must be after start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}

	raw, err := l.source.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.Split,
		Start:      start,
		End:        end,
		Feed:       l.feed,
	})
	if err != nil {
		slog.Error("error loading data", "symbols", symbols, "error", err)
		return Dataset{}, fmt.Errorf("get bars: %w", err)
	}

	dataset := Dataset{Bars: make(map[string][]Bar, len(symbols))}
	for _, symbol := range symbols {
		bars := raw[symbol]
		converted := make([]Bar, 0, len(bars))
		for _, bar := range bars {
			converted = append(converted, Bar{
				Time:   bar.Timestamp,
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: float64(bar.Volume),
			})
		}
		sort.Slice(converted, func(i, j int) bool { return converted[i].Time.Before(converted[j].Time) })
		dataset.Bars[symbol] = converted
	}

	slog.Info("loaded data", "symbols", len(symbols), "rows", dataset.Rows())
	return dataset, nil
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "iex":
		return marketdata.IEX
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
