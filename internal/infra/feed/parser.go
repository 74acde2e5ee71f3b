package feed

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"quotebook/internal/infra"
)

// Parser extracts a price from one raw feed message.
// ok is false for anything that is not a usable price tick.
type Parser interface {
	Parse(msg []byte) (price float64, ok bool)
}

// tradeMessage covers both supported payloads. decimal accepts the price
// as a JSON string or a bare number.
type tradeMessage struct {
	Event string           `json:"e"`
	Price *decimal.Decimal `json:"p"`
}

// BinanceTradeParser reads the Binance <symbol>@trade stream: any object with a "p" field.
type BinanceTradeParser struct{}

func (BinanceTradeParser) Parse(msg []byte) (float64, bool) {
	var m tradeMessage
	if err := json.Unmarshal(msg, &m); err != nil || m.Price == nil {
		return 0, false
	}
	return positive(*m.Price)
}

// TradeEventParser only accepts objects tagged "e":"trade", skipping
// subscription acks and other control frames.
type TradeEventParser struct{}

func (TradeEventParser) Parse(msg []byte) (float64, bool) {
	var m tradeMessage
	if err := json.Unmarshal(msg, &m); err != nil || m.Event != "trade" || m.Price == nil {
		return 0, false
	}
	return positive(*m.Price)
}

func positive(d decimal.Decimal) (float64, bool) {
	if !d.IsPositive() {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// ParserFor returns the parser for a configured feed format.
func ParserFor(format string) (Parser, error) {
	switch format {
	case infra.FormatBinanceTrade:
		return BinanceTradeParser{}, nil
	case infra.FormatTradeEvent:
		return TradeEventParser{}, nil
	default:
		return nil, fmt.Errorf("unknown feed format %q", format)
	}
}
